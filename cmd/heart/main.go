package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/heart/internal/config"
	"github.com/vango-dev/heart/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╷ ╷┌─╴┌─┐┌─┐╶┬╴
  ├─┤├╴ ├─┤├┬┘ │
  ╵ ╵└─╴╵ ╵╵└╴ ╵
`

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "heart",
		Short: "Incremental evaluation engine for fragment trees",
		Long: `heart re-evaluates only the fragments of a tree whose state or
arguments changed, and keeps a layout tree in sync with the result.

The CLI runs built-in scenarios and serves an inspector for them:

  • demo   step a scenario and print what changed each frame
  • serve  run a scenario continuously behind the HTTP inspector`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to heart.json or heart.yaml")

	rootCmd.AddCommand(
		demoCmd(&configPath),
		serveCmd(&configPath),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config at path, or discovers one from the working
// directory. Without a config file the defaults are used.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.LoadFromWorkingDir()
		if errors.Code(err) == "H141" {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
