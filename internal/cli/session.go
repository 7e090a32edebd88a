package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/adi-253/msglist/internal/config"
	"github.com/adi-253/msglist/internal/logger"
	"github.com/adi-253/msglist/internal/metrics"
	"github.com/adi-253/msglist/internal/services"
	"github.com/adi-253/msglist/internal/store"
	"github.com/adi-253/msglist/internal/tui"
	"github.com/adi-253/msglist/internal/version"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// session is everything one command invocation needs to talk to the store.
type session struct {
	ctl        *services.MessageListController
	metricsSrv *metrics.Server
}

func openSession(cfg *config.Config) (*session, error) {
	if err := logger.Init(cfg.LogLevel, cfg.LogSink); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	rec := metrics.NewRecorder()
	s := &session{}
	if cfg.MetricsAddr != "" {
		srv, err := rec.Serve(cfg.MetricsAddr)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("failed to start metrics listener: %w", err), logger.Sync())
		}
		s.metricsSrv = srv
		logger.Info("metrics listening", "addr", srv.Addr())
	}

	client := store.NewClient(cfg, store.WithMetrics(rec))
	s.ctl = services.NewMessageListController(client, services.Options{RevertFailed: cfg.RevertFailed})

	logger.Info("session started", "version", version.Info(), "store_url", cfg.StoreURL, "timeout", cfg.RequestTimeout, "revert_failed", cfg.RevertFailed)
	return s, nil
}

// Close stops the controller, the metrics listener and the log sink, in that order.
func (s *session) Close() error {
	var err error
	err = multierr.Append(err, s.ctl.Close())
	if s.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err = multierr.Append(err, s.metricsSrv.Shutdown(ctx))
	}
	logger.Info("session closed")
	err = multierr.Append(err, logger.Sync())
	return err
}

func runInteractive(cmd *cobra.Command, cfg *config.Config) (err error) {
	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, s.Close()) }()

	if cfg.RefreshInterval > 0 {
		refresher := services.NewRefreshService(s.ctl, cfg.RefreshInterval)
		go refresher.Start()
		defer refresher.Stop()
	}

	p := tea.NewProgram(tui.NewApp(s.ctl), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}

// runOnce opens a session, runs fn against its controller and closes it.
func runOnce(cfg *config.Config, fn func(ctl *services.MessageListController) error) (err error) {
	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, s.Close()) }()

	return fn(s.ctl)
}
