package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"logtail/internal/config"
	"logtail/internal/router"
)

func newValidateConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config [config-path]",
		Short: "Validate the config file and router rules without starting the agent",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPathArg(args))
			if err != nil {
				return fmt.Errorf("validate-config: %w", err)
			}

			routerCfg := router.Config{AckPolicy: router.AckAny}
			if cfg.RouterRulesPath != "" {
				routerCfg, err = router.LoadConfig(cfg.RouterRulesPath)
				if err != nil {
					return fmt.Errorf("validate-config: %w", err)
				}
			}

			registry, closers, err := buildSinks(context.Background(), routerCfg.Sinks)
			if err != nil {
				return fmt.Errorf("validate-config: %w", err)
			}
			defer func() {
				for _, c := range closers {
					_ = c.Close()
				}
			}()

			rt := router.New(routerCfg, registry)
			if err := rt.Validate(); err != nil {
				return fmt.Errorf("validate-config: %w", err)
			}

			fmt.Println("config and router rules are valid")
			return nil
		},
	}
}
