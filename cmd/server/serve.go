package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"infrasalama/backend/internal/health"
	"infrasalama/backend/internal/mailer"
	"infrasalama/backend/internal/monitoring"
	"infrasalama/backend/internal/security"
	"infrasalama/backend/internal/storage/filesystem"
	httptransport "infrasalama/backend/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

// runServe 启动 HTTP 服务，收到 SIGINT/SIGTERM 后优雅退出
func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting infrasalama server",
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
		zap.String("mail_driver", cfg.Mail.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := monitoring.NewMetrics()

	audit, err := mailer.OpenAuditLog(cfg.Audit.File, log)
	if err != nil {
		return err
	}
	defer audit.Close()

	transport, err := mailer.NewTransport(ctx, cfg.Mail, cfg.App.IsLocal(), log)
	if err != nil {
		return fmt.Errorf("failed to initialize mail transport: %w", err)
	}

	composer, err := mailer.NewComposer(cfg.Mail.FromName)
	if err != nil {
		return fmt.Errorf("failed to load mail templates: %w", err)
	}

	uploads, err := filesystem.NewStore(cfg.Upload.Dir)
	if err != nil {
		return fmt.Errorf("failed to initialize upload storage: %w", err)
	}
	if err := uploads.EnsureDir(); err != nil {
		// 不阻止启动，每次保存前会再次检查并返回对应的错误消息
		log.Warn("upload directory not ready", zap.String("dir", uploads.Dir()), zap.Error(err))
	}

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:   cfg,
		Mailer:   mailer.NewService(cfg.Mail, transport, audit, metrics, log),
		Composer: composer,
		Guard:    security.NewUploadGuard(),
		Uploads:  uploads,
		Metrics:  metrics,
		Health:   health.NewHealthChecker(cfg, uploads, metrics.Registry(), log),
		Logger:   log,
	})

	httpAddr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute, // SMTP 投递在请求内同步完成
		IdleTimeout:       120 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
			return err
		}
		log.Info("HTTP server stopped")
		return nil
	})

	return group.Wait()
}
