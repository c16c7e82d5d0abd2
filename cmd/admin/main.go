package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"studio/admin/internal/app"
	"studio/admin/internal/assets"
	"studio/admin/internal/config"
	"studio/admin/internal/content"
	"studio/admin/internal/docstore/backend"
	"studio/admin/internal/email"
	"studio/admin/internal/logging"
	"studio/admin/internal/rbac"
	"studio/admin/internal/search"
	"studio/admin/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("admin api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("document store opened", zap.String("driver", cfg.DocstoreDriver))

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		sessions = redisStore
		logger.Info("using redis for sessions")
	} else {
		sessions = session.NewMemoryStore()
		logger.Warn("REDIS_URL not set; sessions are kept in memory")
	}

	enforcer, err := rbac.New(cfg.RBACPolicyFile)
	if err != nil {
		return err
	}

	var bucket app.AssetStore
	if cfg.S3AccessKey != "" {
		b, err := assets.New(assets.Config{
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			UseSSL:        cfg.S3UseSSL,
			PublicBaseURL: cfg.S3PublicBaseURL,
			MaxBytes:      cfg.MaxUploadBytes,
		})
		if err != nil {
			return err
		}
		bucket = b
	} else {
		logger.Warn("S3_ACCESS_KEY not set; asset uploads are disabled")
	}

	kinds := []content.Kind{content.Projects, content.Books, content.Press, content.News}
	var meili *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		names := make([]string, 0, len(kinds))
		for _, kind := range kinds {
			names = append(names, kind.Name)
		}
		meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, names, logger.Named("meili"))
	}
	searchService := search.NewService(meili, store, kinds, logger.Named("search"))
	defer searchService.Close()

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		To:       cfg.InquiryTo,
	})
	if !mailer.IsConfigured() {
		logger.Info("SMTP not configured; inquiry notifications are disabled")
	}

	service, err := app.New(app.Deps{
		Config:   cfg,
		Store:    store,
		Sessions: sessions,
		RBAC:     enforcer,
		Assets:   bucket,
		Search:   searchService,
		Notifier: mailer,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger.Named("http"))
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("studio admin api listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	return nil
}
