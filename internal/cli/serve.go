package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tabtree/internal/logging"
	"github.com/mesh-intelligence/tabtree/internal/monitoring"
	"github.com/mesh-intelligence/tabtree/internal/server"
	"github.com/mesh-intelligence/tabtree/internal/tracker"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Track tabs and serve the HTTP API",
		Long: `Serve loads the stored windows, accepts host events over HTTP and persists
the whole state after every change. Windows from the previous session are kept
as restoration candidates until a window with the same tabs opens.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			if addr != "" {
				s.Server.Addr = addr
			}

			logger, err := logging.New(s.Log)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			backend, err := attachBackend(s, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := backend.Detach(); err != nil {
					logger.Error("detach backend", zap.Error(err))
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics := monitoring.NewMetrics(reg)

			t, err := tracker.New(ctx, backend,
				tracker.WithLogger(logger),
				tracker.WithMetrics(metrics),
				tracker.WithConfig(s.Store),
			)
			if err != nil {
				return sysError(err)
			}
			defer t.Close()

			logger.Info("tabtree serving",
				zap.String("version", Version),
				zap.String("backend", s.Store.Backend),
				zap.String("data_dir", s.Store.DataDir))
			if err := server.New(t, metrics, reg, logger, s.Server).Run(ctx); err != nil {
				return sysError(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
