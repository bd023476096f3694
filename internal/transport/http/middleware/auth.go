package httpmw

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Rambha123/voxspace/pkg/logger"
)

type ctxKey string

const ctxKeyUserID ctxKey = "user_id"

type TokenVerifier interface {
	UserID(token string) (string, error)
}

// Auth requires a valid "Authorization: Bearer <jwt>" and stores the
// token subject as the caller id.
func Auth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if len(auth) <= 7 || !strings.EqualFold(auth[:7], "bearer ") {
				unauthorized(w, "missing bearer token")
				return
			}

			uid, err := v.UserID(strings.TrimSpace(auth[7:]))
			if err != nil {
				logger.Ctx(r.Context()).Debug("auth rejected", slog.Any("err", err))
				unauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUserID, uid)
			ctx = logger.WithAttrs(ctx, slog.String("user", uid))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// WithUserID is used by tests and internal callers that authenticate by
// other means.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}
