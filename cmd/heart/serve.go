package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func serveCmd(configPath *string) *cobra.Command {
	var (
		scenario string
		addr     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a scenario behind the inspector",
		Long: `Run a scenario continuously and serve the inspector.

Routes:
  /healthz  liveness probe
  /tree     layout tree as JSON
  /keys     key labels
  /stats    last update cycle
  /metrics  Prometheus metrics
  /ws       live cycle stream

Examples:
  heart serve
  heart serve --scenario=list --addr=0.0.0.0:7070`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if scenario != "" {
				cfg.Demo.Scenario = scenario
			}
			if addr != "" {
				cfg.Inspector.Addr = addr
			}

			s, err := newSession(cfg, cfg.Demo.Scenario, true)
			if err != nil {
				return err
			}

			printBanner()
			info("scenario %s, frame every %s", cfg.Demo.Scenario, cfg.TickDuration())
			info("inspector on http://%s", cfg.Inspector.Addr)
			fmt.Println()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := s.run(ctx, 0, nil); err != nil {
				return err
			}
			fmt.Println("\n  Shutting down...")
			return nil
		},
	}

	cmd.Flags().StringVarP(&scenario, "scenario", "s", "", "Scenario to run (default from config)")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Inspector listen address (default from config)")

	return cmd
}
