package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rhuss/respkit/pkg/client"
	"github.com/rhuss/respkit/pkg/config"
	"github.com/rhuss/respkit/pkg/debug"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

// app is the state shared by all subcommands once the root has loaded the
// configuration.
type app struct {
	configPath string
	envFile    string

	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "respkit",
		Short:         "Client, codec and stub server for the OpenAI Responses API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default $RESPKIT_CONFIG, ./config.yaml, /etc/respkit/config.yaml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading RESPKIT_* variables")

	root.AddCommand(
		newServeCmd(a),
		newDecodeCmd(a),
		newSendCmd(a),
		newCheckpointCmd(a),
	)
	client.Version = version
	return root
}

func (a *app) load() error {
	if a.envFile != "" {
		// Variables already in the environment win over the file.
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, a.logCloser = newLogger(cfg.Logging, nil)
	slog.SetDefault(a.logger)
	debug.Init(cfg.Observability.Debug)
	return nil
}
