package main

import (
	"chatlog/internal/blob"
	"chatlog/internal/config"
	"chatlog/internal/handlers"
	"chatlog/internal/middleware"
	"chatlog/internal/repo"
	"chatlog/internal/service"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}
	defer func() {
		if err := repo.CloseDB(gormDB); err != nil {
			sugar.Errorw("failed to close database", "error", err)
		}
	}()

	blobs, err := blob.New(blob.Config{
		Backend:   cfg.BlobBackend,
		Dir:       cfg.BlobDir,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		sugar.Fatalw("failed to initialize blob store", "backend", cfg.BlobBackend, "error", err)
	}
	defer func() {
		if err := blobs.Close(); err != nil {
			sugar.Errorw("failed to close blob store", "error", err)
		}
	}()

	messageRepo := repo.NewMessageRepository(gormDB)
	messageService := service.NewMessageService(messageRepo, blobs, sugar, service.Options{
		StoreTimeout:       cfg.StoreTimeout,
		MaxAttachmentBytes: cfg.BlobMaxBytes,
	})

	h := handlers.NewHandler(messageService, sugar, cfg)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"BlobBackend", cfg.BlobBackend,
		"BlobMaxSize", cfg.BlobMaxSize,
		"StoreTimeout", cfg.StoreTimeout,
	)

	srv := &http.Server{
		Addr:              cfg.BaseURL,
		Handler:           h.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("Starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		sugar.Infow("Shutting down")
	case err := <-errCh:
		if err != nil {
			sugar.Errorw("Server failed", "error", err)
			return
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("graceful shutdown failed", "error", err)
	}
}
