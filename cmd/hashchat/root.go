package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/hashchat-engine/internal/app"
	"github.com/vovakirdan/hashchat-engine/internal/config"
	"github.com/vovakirdan/hashchat-engine/internal/log"
)

// globalFlags override values from the config file and environment.
type globalFlags struct {
	configPath string
	override   config.Config
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "hashchat",
		Short: "Local chat session engine with simulated room activity",
		Long: `hashchat keeps a persisted chat session: login, rooms, message history
and simulated presence. Commands share the store configured in config.yaml.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file path (default is ./config.yaml)")
	pf.StringVar(&flags.override.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.override.Storage.Driver, "storage", "", "storage driver (sqlite, pebble, redis, memory)")
	pf.StringVar(&flags.override.Storage.Path, "storage-path", "", "sqlite file or pebble directory")
	pf.StringVar(&flags.override.Storage.RedisAddr, "redis-addr", "", "redis address for the redis driver")

	root.AddCommand(
		newServeCmd(flags),
		newLoginCmd(flags),
		newSignupCmd(flags),
		newLogoutCmd(flags),
		newWhoamiCmd(flags),
		newProfileCmd(flags),
		newThemeCmd(flags),
		newRoomsCmd(flags),
		newCreateCmd(flags),
		newJoinCmd(flags),
		newLeaveCmd(flags),
		newSendCmd(flags),
		newAttachCmd(flags),
		newHistoryCmd(flags),
		newWatchCmd(flags),
	)
	return root
}

// loadConfig resolves configuration with flag overrides applied last.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	bootstrap := log.New(f.override.LogLevel)
	cfg, path, err := config.Load(bootstrap, f.configPath)
	if err != nil {
		return nil, err
	}
	cfg.UpdateFrom(f.override)
	bootstrap.Debug().Str("path", path).Msg("config loaded")
	return &cfg, nil
}

// withApp builds the application, runs fn and closes it.
func (f *globalFlags) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := f.loadConfig()
	if err != nil {
		return err
	}
	logger := log.New(cfg.LogLevel)

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// readLine prompts on out and returns the next trimmed line from in.
func readLine(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
