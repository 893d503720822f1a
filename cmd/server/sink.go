package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"infrasalama/backend/internal/smtpsink"
)

var sinkAddr string

var sinkCmd = &cobra.Command{
	Use:   "sink",
	Short: "Run a local SMTP sink that logs every received message",
	Long: `Accepts any message on SINK_ADDR and logs its subject, recipients and
attachments. Point MAIL_HOST/MAIL_PORT at it with MAIL_ENCRYPTION=none
for local development.`,
	RunE: runSink,
}

func init() {
	sinkCmd.Flags().StringVar(&sinkAddr, "addr", "", "listen address (default: SINK_ADDR)")
}

func runSink(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	addr := firstNonEmpty(sinkAddr, cfg.Sink.Addr)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink := smtpsink.New("localhost", log)
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return sink.ListenAndServe(addr)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sink.Shutdown(shutdownCtx); err != nil {
			log.Warn("SMTP sink shutdown error", zap.Error(err))
			return sink.Close()
		}
		log.Info("SMTP sink stopped", zap.Int("messages", len(sink.Messages())))
		return nil
	})

	return group.Wait()
}
