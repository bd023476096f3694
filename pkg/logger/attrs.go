package logger

import (
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// ensureInstanceID prefers an explicit id, then POD_NAME, then
// hostname plus a short random suffix so replicas on one host differ.
func ensureInstanceID(v string) string {
	switch {
	case v != "":
		return v
	case os.Getenv("POD_NAME") != "":
		return os.Getenv("POD_NAME")
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "chat"
	}
	return host + "-" + uuid.NewString()[:8]
}

func commonAttrs(cfg Config) []slog.Attr {
	attrs := make([]slog.Attr, 0, 6)
	attrs = append(attrs,
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("instance_id", cfg.InstanceID),
	)
	if cfg.Version != "" {
		attrs = append(attrs, slog.String("version", cfg.Version))
	}
	return append(attrs,
		slog.String("go", runtime.Version()),
		slog.Time("started_at", time.Now().UTC()),
	)
}
