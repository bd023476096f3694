package security

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Rambha123/voxspace/internal/domain"

	"github.com/golang-jwt/jwt"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidIssuer   = errors.New("invalid token issuer")
	ErrInvalidAudience = errors.New("invalid token audience")
	ErrTokenExpired    = errors.New("token expired or not yet valid")
	ErrInvalidSubject  = errors.New("invalid token subject")
)

// Verifier validates access tokens issued by the identity service. Only
// verification lives here; issuing is the identity service's job.
type Verifier struct {
	method    jwt.SigningMethod
	key       any
	issuer    string
	audience  string
	clockSkew time.Duration
	now       func() time.Time
}

type VerifierConfig struct {
	Alg           string // RS256 | HS256
	PublicKeyPath string
	Secret        string
	Issuer        string
	Audience      string
	ClockSkew     time.Duration
}

func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	v := &Verifier{
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		clockSkew: cfg.ClockSkew,
		now:       time.Now,
	}

	switch strings.ToUpper(cfg.Alg) {
	case "RS256":
		pub, err := LoadRSAPublicKeyFromPEM(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load public key: %w", err)
		}
		v.method, v.key = jwt.SigningMethodRS256, pub
	case "HS256":
		if cfg.Secret == "" {
			return nil, errors.New("auth.secret is required for HS256")
		}
		v.method, v.key = jwt.SigningMethodHS256, []byte(cfg.Secret)
	default:
		return nil, fmt.Errorf("unsupported jwt alg %q", cfg.Alg)
	}
	return v, nil
}

// NewRSAVerifier is used when the key is already in memory.
func NewRSAVerifier(pub *rsa.PublicKey, issuer, audience string, clockSkew time.Duration) *Verifier {
	return &Verifier{
		method:    jwt.SigningMethodRS256,
		key:       pub,
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
		now:       time.Now,
	}
}

// ParseAndValidate checks signature, algorithm, issuer, audience and the
// time claims with clock skew tolerance.
func (v *Verifier) ParseAndValidate(tokenStr string) (*jwt.StandardClaims, error) {
	claims := &jwt.StandardClaims{}
	parser := &jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != v.method.Alg() {
			return nil, ErrInvalidToken
		}
		return v.key, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, ErrInvalidIssuer
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return nil, ErrInvalidAudience
	}

	now := v.now()
	if claims.NotBefore != 0 && now.Before(time.Unix(claims.NotBefore, 0).Add(-v.clockSkew)) {
		return nil, ErrTokenExpired
	}
	if claims.ExpiresAt == 0 || now.After(time.Unix(claims.ExpiresAt, 0).Add(v.clockSkew)) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}

// UserID verifies the token and returns its subject as a caller id.
func (v *Verifier) UserID(tokenStr string) (string, error) {
	claims, err := v.ParseAndValidate(tokenStr)
	if err != nil {
		return "", err
	}
	if domain.ValidateID(claims.Subject) != nil {
		return "", ErrInvalidSubject
	}
	return claims.Subject, nil
}

func LoadRSAPublicKeyFromPEM(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(b)
}
