package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type GRPC struct {
	Addr string `yaml:"addr"` // empty disables the gRPC listener
}

type HTTP struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdownTimeout"` // 10s
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // chat-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Storage struct {
	Driver string `yaml:"driver"` // postgres|sqlite
}

type Postgres struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
	Migrate  bool   `yaml:"migrate"` // create chat_messages on start
}

type SQLite struct {
	Path string `yaml:"path"`
}

type Redis struct {
	URL     string `yaml:"url"`     // empty disables the user cache
	UserTTL string `yaml:"userTTL"` // 5m
}

type Auth struct {
	Alg           string `yaml:"alg"` // RS256|HS256
	PublicKeyPath string `yaml:"publicKeyPath"`
	Secret        string `yaml:"secret"`
	Issuer        string `yaml:"issuer"`
	Audience      string `yaml:"audience"`
	ClockSkew     string `yaml:"clockSkew"` // 30s
}

type Chat struct {
	ReplayLimit      int      `yaml:"replayLimit"`
	MaxMessageLength int      `yaml:"maxMessageLength"`
	StoreTimeout     string   `yaml:"storeTimeout"`
	SendBuffer       int      `yaml:"sendBuffer"`
	PingInterval     string   `yaml:"pingInterval"`
	AllowedOrigins   []string `yaml:"allowedOrigins"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	GRPC     GRPC     `yaml:"grpc"`
	Logging  Logging  `yaml:"logging"`
	Storage  Storage  `yaml:"storage"`
	Postgres Postgres `yaml:"postgres"`
	SQLite   SQLite   `yaml:"sqlite"`
	Redis    Redis    `yaml:"redis"`
	Auth     Auth     `yaml:"auth"`
	Chat     Chat     `yaml:"chat"`
}

// LoadConfig reads .env (if present) and then the YAML file named by
// CONFIG_PATH.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// secrets and per-host values may come from the environment
func (c *Config) applyEnv() {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.SQLite.Path = v
	}
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}

	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = "postgres"
		fallthrough
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required")
		}
	case "sqlite":
		if c.SQLite.Path == "" {
			c.SQLite.Path = "./data/chat.db"
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}

	if c.Auth.Alg == "" {
		c.Auth.Alg = "RS256"
	}
	switch strings.ToUpper(c.Auth.Alg) {
	case "RS256":
		if c.Auth.PublicKeyPath == "" {
			return errors.New("auth.publicKeyPath is required for RS256")
		}
	case "HS256":
		if c.Auth.Secret == "" {
			return errors.New("auth.secret is required for HS256")
		}
	default:
		return fmt.Errorf("auth.alg %q is not supported", c.Auth.Alg)
	}

	// defaults for anything left out
	if c.Logging.Service == "" {
		c.Logging.Service = "chat-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Chat.ReplayLimit <= 0 {
		c.Chat.ReplayLimit = 50
	}
	if c.Chat.MaxMessageLength <= 0 {
		c.Chat.MaxMessageLength = 4000
	}
	if c.Chat.SendBuffer <= 0 {
		c.Chat.SendBuffer = 64
	}
	return nil
}

func (c *Config) ShutdownTimeout() time.Duration {
	return parseDurationOr(10*time.Second, c.HTTP.ShutdownTimeout)
}

func (c *Config) StoreTimeout() time.Duration {
	return parseDurationOr(5*time.Second, c.Chat.StoreTimeout)
}

func (c *Config) PingInterval() time.Duration {
	return parseDurationOr(15*time.Second, c.Chat.PingInterval)
}

func (c *Config) UserCacheTTL() time.Duration {
	return parseDurationOr(5*time.Minute, c.Redis.UserTTL)
}

func (c *Config) ClockSkew() time.Duration {
	return parseDurationOr(30*time.Second, c.Auth.ClockSkew)
}

// falls back to def on empty or invalid input
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
