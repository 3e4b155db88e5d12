package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"logtail/internal/agent"
	"logtail/internal/checkpoint"
	"logtail/internal/commithistory"
	"logtail/internal/config"
	"logtail/internal/follower"
	"logtail/internal/framer"
	"logtail/internal/observability"
	"logtail/internal/router"
)

// newRunCommand mirrors SteelMorgan-1c-log-checker/cmd/parser/main.go's
// load-config -> init-logger -> init-tracer -> run -> signal-driven-shutdown
// shape, generalized into a cobra RunE.
func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run [config-path]",
		Short: "Run the agent loop until an interrupt or terminal error",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), configPathArg(args))
		},
	}
}

func runAgent(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	observability.InitLogger(cfg.LoggingLevel)
	// A fresh run_id on every process start lets an operator grep one
	// invocation's log lines out of an aggregated stream, since the agent
	// itself carries no other stable identifier.
	log.Logger = log.With().Str("run_id", uuid.NewString()).Logger()

	var shutdownTracer func(context.Context) error
	if cfg.LoggingTracingEnabled {
		shutdown, err := observability.InitTracer(observability.TracerConfig{
			ServiceName: "logtail",
			Endpoint:    cfg.LoggingTracingEndpoint,
			Protocol:    "grpc",
			Enabled:     true,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize tracer, continuing without tracing")
		} else {
			shutdownTracer = shutdown
		}
	}

	routerCfg := router.Config{AckPolicy: router.AckAny}
	if cfg.RouterRulesPath != "" {
		routerCfg, err = router.LoadConfig(cfg.RouterRulesPath)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}

	registry, closers, err := buildSinks(ctx, routerCfg.Sinks)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	rt := router.New(routerCfg, registry)
	if err := rt.Validate(); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	fs := afero.NewOsFs()
	followerCfg := follower.Config{
		PollInterval:     cfg.FollowerPollInterval,
		RotateSettleTime: cfg.FollowerRotateSettleTime,
		MaxReadBytes:     cfg.FollowerMaxReadBytes,
	}
	f := follower.New(fs, cfg.InputPath, followerCfg)
	fr := framer.New()
	store := checkpoint.NewFileStore(fs, cfg.CheckpointPath)

	var history *commithistory.Store
	if cfg.CheckpointHistoryPath != "" {
		history, err = commithistory.Open(cfg.CheckpointHistoryPath, 200)
		if err != nil {
			log.Warn().Err(err).Msg("failed to open commit history, continuing without it")
			history = nil
		} else {
			defer history.Close()
		}
	}

	a := agent.New(f, fr, rt, store, history)
	if err := a.Startup(ctx); err != nil {
		return fmt.Errorf("run: agent startup: %w", err)
	}

	log.Info().Str("input", cfg.InputPath).Msg("logtail agent starting")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(cfg.FollowerPollInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-sigCh:
			log.Info().Msg("received shutdown signal, finishing current tick")
			break loop
		case <-runCtx.Done():
			break loop
		case <-ticker.C:
			a.Tick(runCtx)
		}
	}

	if shutdownTracer != nil {
		_ = shutdownTracer(context.Background())
	}
	log.Info().Uint64("committed_offset", a.CommittedOffset()).Msg("logtail agent stopped")
	return nil
}
