// Jukebox is a voice-driven jukebox daemon. It turns trigger requests from a
// voice assistant or home-automation hub into Logitech Media Server CLI
// commands.
//
// Usage:
//
//	jukebox [serve] [flags]
//	jukebox --config /path/to/jukebox.yaml
//	jukebox parse play some jazz in the kitchen
//	jukebox players
//	jukebox send next track on the lounge
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nadzzz/jukebox/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

type app struct {
	cfg *config.Config
	out io.Writer
}

type appKey struct{}

func fromContext(cmd *cobra.Command) *app {
	val := cmd.Context().Value(appKey{})
	if val == nil {
		return nil
	}
	return val.(*app)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configFile string
		debug      bool
	)

	root := &cobra.Command{
		Use:          "jukebox",
		Short:        "Voice-driven jukebox for Logitech Media Server",
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), fromContext(cmd))
		},
	}
	root.SetVersionTemplate("jukebox {{.Version}}\n")

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file (e.g. configs/jukebox.yaml)")
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "debug logging, mirrored to stdout when logging to a file")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if debug {
			cfg.Logging.Level = "debug"
			cfg.Logging.Stdout = true
		}
		config.SetupLogging(cfg.Logging)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(context.WithValue(ctx, appKey{}, &app{cfg: cfg, out: cmd.OutOrStdout()}))
		return nil
	}

	root.AddCommand(serveCommand())
	root.AddCommand(parseCommand())
	root.AddCommand(playersCommand())
	root.AddCommand(sendCommand())

	return root
}
