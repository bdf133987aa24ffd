package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"askhub.org/internal/audit"
	"askhub.org/internal/auth"
	"askhub.org/internal/config"
	"askhub.org/internal/httpapi"
	"askhub.org/internal/obs"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := obs.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	obs.Init()
	obs.InitBuildInfo(version, commit)
	audit.Init(logger)

	db, err := sql.Open("pgx", cfg.DB.DSN)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)
	defer func() { _ = db.Close() }()

	var blocklist auth.Blocklist
	if cfg.Redis.Addr != "" {
		redisBlocklist, err := auth.NewRedisBlocklist(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("connect redis", zap.Error(err))
		}
		defer func() { _ = redisBlocklist.Close() }()
		blocklist = redisBlocklist
	} else {
		logger.Warn("redis not configured, using in-process blocklist; logout will not propagate across instances")
		memory := auth.NewMemoryBlocklist()
		defer memory.Close()
		blocklist = memory
	}

	svc, err := auth.NewService(
		auth.NewPGStore(db, cfg.DB.OpTimeout),
		blocklist,
		cfg.Auth.Secret,
		auth.WithAccessTTL(cfg.Auth.AccessTTL),
		auth.WithRefreshTTL(cfg.Auth.RefreshTTL),
		auth.WithVerifyTTL(cfg.Auth.VerifyTTL),
		auth.WithRegistrationOpen(cfg.Auth.RegistrationOpen),
		auth.WithAllowedEmailDomains(cfg.Auth.AllowedEmailDomains),
		auth.WithEmailVerification(cfg.Auth.RequireEmailVerification),
		auth.WithHasher(auth.NewHasher(cfg.Auth.BcryptCost, cfg.Auth.MaxParallelHashes)),
		auth.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("build auth service", zap.Error(err))
	}

	api := httpapi.New(svc, httpapi.ReadyProbe{DB: db}, logger, version)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	logger.Info("starting askhub-api", zap.String("version", version), zap.String("addr", srv.Addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info("stopped")
}
