package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rambha123/voxspace/config"
	"github.com/Rambha123/voxspace/internal/postgres"
	"github.com/Rambha123/voxspace/internal/rediscache"
	"github.com/Rambha123/voxspace/internal/security"
	"github.com/Rambha123/voxspace/internal/service"
	"github.com/Rambha123/voxspace/internal/sqlite"
	grpcx "github.com/Rambha123/voxspace/internal/transport/grpc"
	httpx "github.com/Rambha123/voxspace/internal/transport/http"
	"github.com/Rambha123/voxspace/internal/transport/ws"
	"github.com/Rambha123/voxspace/pkg/logger"

	"google.golang.org/grpc"
)

type stores struct {
	messages service.MessageStore
	users    service.UserDirectory
	members  service.Membership
	closers  []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		s := sqlite.NewStore(db)
		return &stores{messages: s, users: s, members: s, closers: []io.Closer{db}}, nil
	default:
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			ApplicationName: cfg.Logging.Service,
		})
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.Migrate {
			if err := postgres.EnsureSchema(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &stores{
			messages: postgres.NewMessageRepository(pool),
			users:    postgres.NewUserRepository(pool),
			members:  postgres.NewMemberRepository(pool),
			closers:  []io.Closer{closerFunc(func() error { pool.Close(); return nil })},
		}, nil
	}
}

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting chat-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "storage", cfg.Storage.Driver)

	// --- storage ---
	ctx := context.Background()
	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer func() {
		for _, c := range st.closers {
			_ = c.Close()
		}
	}()

	// --- identity cache ---
	users := st.users
	if cfg.Redis.URL != "" {
		rdb, err := rediscache.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		users = rediscache.NewDirectory(rdb, st.users, cfg.UserCacheTTL())
		slog.Info("user cache enabled", "ttl", cfg.UserCacheTTL().String())
	}

	verifier, err := security.NewVerifier(security.VerifierConfig{
		Alg:           cfg.Auth.Alg,
		PublicKeyPath: cfg.Auth.PublicKeyPath,
		Secret:        cfg.Auth.Secret,
		Issuer:        cfg.Auth.Issuer,
		Audience:      cfg.Auth.Audience,
		ClockSkew:     cfg.ClockSkew(),
	})
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	// --- services ---
	hub := ws.NewHub()
	chatSvc := service.NewChatService(st.messages, st.members, hub, service.ChatOptions{
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		StoreTimeout:     cfg.StoreTimeout(),
	})
	contactSvc := service.NewContactService(st.messages, users)

	// --- WS Server ---
	wsServer := ws.NewServer(hub, chatSvc, verifier, users, ws.Options{
		ReplayLimit:    cfg.Chat.ReplayLimit,
		SendBuffer:     cfg.Chat.SendBuffer,
		PingInterval:   cfg.PingInterval(),
		AllowedOrigins: cfg.Chat.AllowedOrigins,
	})

	// --- HTTP ---
	router := httpx.NewRouter(httpx.Deps{
		Handler:        httpx.NewHandler(chatSvc, contactSvc),
		WS:             wsServer.HandleWS,
		Verifier:       verifier,
		AllowedOrigins: cfg.Chat.AllowedOrigins,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// --- gRPC ---
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcx.UnaryServerInterceptor()),
	)
	grpcx.Register(grpcServer, grpcx.NewServer(chatSvc, contactSvc, verifier))

	// --- run both servers ---
	errCh := make(chan error, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if cfg.GRPC.Addr != "" {
		go func() {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				errCh <- err
				return
			}
			slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	// push connections are hijacked, Shutdown does not wait for them
	hub.CloseAll()
	grpcServer.GracefulStop()
	if err := httpSrv.Shutdown(ctxShutdown); err != nil {
		slog.Warn("http shutdown", "err", err)
	}
	slog.Info("stopped")
}
