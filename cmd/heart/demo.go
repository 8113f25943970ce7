package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/heart/internal/demo"
)

func demoCmd(configPath *string) *cobra.Command {
	var (
		scenario string
		frames   int
		tick     string
		showOps  bool
		showTree bool
		inspect  bool
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Step a scenario and print each frame",
		Long: `Step a built-in scenario and print what each update cycle did.

Scenarios:
  ` + strings.Join(demo.Names(), ", ") + `

Examples:
  heart demo
  heart demo --scenario=list --frames=5 --ops
  heart demo --scenario=chain --tree`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if scenario != "" {
				cfg.Demo.Scenario = scenario
			}
			if tick != "" {
				cfg.Demo.Tick = tick
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			s, err := newSession(cfg, cfg.Demo.Scenario, inspect || cfg.Inspector.Enabled)
			if err != nil {
				return err
			}

			printBanner()
			info("scenario %s, %d frames every %s", cfg.Demo.Scenario, frames, cfg.TickDuration())
			fmt.Println()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = s.run(ctx, frames, func(f demo.Frame) {
				printFrame(f, showOps)
			})
			if err != nil {
				return err
			}

			if showTree {
				fmt.Println()
				s.runner.Tree.Dump(os.Stdout, s.runner.Evaluator.RootHandle())
			}
			fmt.Println()
			success("%d frames done", frames)
			return nil
		},
	}

	cmd.Flags().StringVarP(&scenario, "scenario", "s", "", "Scenario to run (default from config)")
	cmd.Flags().IntVarP(&frames, "frames", "n", 10, "Number of frames to run")
	cmd.Flags().StringVarP(&tick, "tick", "t", "", "Interval between frames, e.g. 50ms (default from config)")
	cmd.Flags().BoolVar(&showOps, "ops", false, "Print layout operations of each frame")
	cmd.Flags().BoolVar(&showTree, "tree", false, "Print the layout tree after the last frame")
	cmd.Flags().BoolVar(&inspect, "inspect", false, "Serve the inspector while running")

	return cmd
}

func printFrame(f demo.Frame, showOps bool) {
	s := f.Stats
	fmt.Printf("  frame %3d  changed=%-5v touched=%d reevaluated=%d new=%d removed=%d drains=%d callbacks=%d  %s\n",
		f.Index, f.Changed, s.Touched, s.Reevaluated, s.Evaluated, s.Removed, s.Drains, f.Callbacks, s.Duration)
	if showOps {
		for _, op := range f.Ops {
			fmt.Printf("      %s\n", op)
		}
	}
}
