package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mosaic-cms/mosaic-auth/internal/acl"
	"github.com/mosaic-cms/mosaic-auth/internal/app"
	"github.com/mosaic-cms/mosaic-auth/internal/auth"
	"github.com/mosaic-cms/mosaic-auth/internal/authz"
	"github.com/mosaic-cms/mosaic-auth/internal/observability"
	"github.com/mosaic-cms/mosaic-auth/internal/platform/cache"
	"github.com/mosaic-cms/mosaic-auth/internal/platform/db"
	"github.com/mosaic-cms/mosaic-auth/internal/token"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	roleConfig, err := acl.LoadConfig(cfg.RolesPath)
	if err != nil {
		logger.Error("load role configuration", slog.Any("error", err))
		os.Exit(1)
	}
	registry, err := acl.Build(roleConfig, logger)
	if err != nil {
		logger.Error("build role registry", slog.Any("error", err))
		os.Exit(1)
	}
	engine := acl.NewEngine(registry, logger)

	metrics := observability.NewMetrics()

	authzOpts := []authz.Option{authz.WithMetrics(metrics)}
	if cfg.RequireRoles {
		authzOpts = append(authzOpts, authz.WithRequireRoles())
	}
	authorizer := authz.New(engine, logger, authzOpts...)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	var tokenRepo token.Repository = token.NewPGRepository(dbpool)
	if cfg.TokenStore == "redis" {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		tokenRepo = token.NewRedisRepository(redisClient)
	}

	tokens := token.NewService(tokenRepo, logger,
		token.WithTTL(cfg.TokenTTL),
		token.WithHashCost(cfg.TokenHashCost),
		token.WithMetrics(metrics),
	)

	userRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(userRepo)
	authenticator := auth.NewTokenAuthenticator(tokens, userRepo, cfg.TokenCookie, logger)
	gate := auth.NewGate(authenticator, authorizer)

	var jwtHandler *auth.JWTHandler
	if cfg.JWTPrivateKeyPath != "" && cfg.JWTPublicKeyPath != "" {
		privateKey, err := os.ReadFile(cfg.JWTPrivateKeyPath)
		if err != nil {
			logger.Error("read jwt private key", slog.Any("error", err))
			os.Exit(1)
		}
		publicKey, err := os.ReadFile(cfg.JWTPublicKeyPath)
		if err != nil {
			logger.Error("read jwt public key", slog.Any("error", err))
			os.Exit(1)
		}
		jwtHandler, err = auth.NewJWTHandler(auth.JWTConfig{
			PrivateKeyPEM: privateKey,
			PublicKeyPEM:  publicKey,
			Issuer:        cfg.JWTIssuer,
			Audience:      cfg.JWTAudience,
			Expiry:        cfg.JWTExpiry,
		})
		if err != nil {
			logger.Error("configure jwt handler", slog.Any("error", err))
			os.Exit(1)
		}
	}

	authHandler := auth.NewHandler(logger, authService, tokens, gate, jwtHandler, cfg.TokenCookie, cfg.IsProduction())
	aclHandler := acl.NewHandler(logger, engine)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthHandler:    authHandler,
		ACLHandler:     aclHandler,
		AuthMiddleware: auth.Middleware{Gate: gate, Logger: logger},
		Tokens:         tokens,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
