package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/warp/worktime-engine/api"
	"github.com/warp/worktime-engine/certification"
	"github.com/warp/worktime-engine/config"
	"github.com/warp/worktime-engine/notify"
	"github.com/warp/worktime-engine/store"
	"github.com/warp/worktime-engine/store/sqlite"
	"github.com/warp/worktime-engine/worktime"
)

const shutdownTimeout = 30 * time.Second

// NewRootCmd creates the top-level command. Running it without a
// subcommand serves the API.
func NewRootCmd(cfg *config.Config, log zerolog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "worktime",
		Short:         "Work-session timer, earnings ledger and certification ROI server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg, log)
		},
	}
	root.PersistentFlags().IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	root.PersistentFlags().StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, `SQLite database path (":memory:" for in-memory)`)

	root.AddCommand(
		newServeCmd(cfg, log),
		newResetCmd(cfg, log),
		newInspectCmd(cfg),
	)
	return root
}

func newServeCmd(cfg *config.Config, log zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg, log)
		},
	}
}

func newResetCmd(cfg *config.Config, log zerolog.Logger) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored record, configuration included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			kv, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer kv.Close()

			if err := store.NewGateway(kv).Wipe(cmd.Context()); err != nil {
				return err
			}
			log.Warn().Str("db", cfg.DatabasePath).Msg("All data removed")
			fmt.Fprintln(cmd.OutOrStdout(), "reset complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func newInspectCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer kv.Close()

			entries, err := kv.Entries(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tKIND\tBYTES\tUPDATED")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.Key, e.Kind, e.Size, e.UpdatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

// =============================================================================
// SERVE
// =============================================================================

func serve(parent context.Context, cfg *config.Config, log zerolog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer kv.Close()

	gw := store.NewGateway(kv)
	if n, err := gw.DropLegacy(ctx); err != nil {
		log.Warn().Err(err).Msg("Legacy keys not cleaned up")
	} else if n > 0 {
		log.Info().Int("keys", n).Msg("Removed legacy keys")
	}

	routerOpts := api.RouterOptions{AllowedOrigins: cfg.CORSOrigins}
	hub := api.NewLiveHub(log)
	hub.OriginPatterns = originPatterns(routerOpts.Origins())

	engine := worktime.NewEngine(gw, log, worktime.Options{
		TickInterval: cfg.TickInterval,
		Notifier:     notify.Fanout{notify.NewLog(log), hub},
	})
	if err := engine.Load(ctx); err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	defer engine.Close()

	plans := certification.NewPlanBook(gw, engine.Clock())
	if err := plans.Load(ctx); err != nil {
		return fmt.Errorf("load certification plans: %w", err)
	}

	scheduler := api.NewShiftScheduler(engine, log)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer scheduler.Stop()

	handler := api.NewHandler(engine, plans, hub, log)
	handler.Scheduler = scheduler

	// No WriteTimeout: live feed connections stay open for the whole session.
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(handler, routerOpts),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("db", cfg.DatabasePath).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

// originPatterns turns CORS origins into websocket host patterns.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		for _, scheme := range []string{"https://", "http://"} {
			if host, ok := strings.CutPrefix(o, scheme); ok {
				out = append(out, host)
				break
			}
		}
	}
	return out
}
