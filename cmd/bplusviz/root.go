package main

import (
	"fmt"
	"io"

	"github.com/cabewaldrop/bplusviz/internal/config"
	"github.com/cabewaldrop/bplusviz/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const version = "0.3.0"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgPath   string
	logLevel  string
	logFormat string

	cfg    config.Config
	log    zerolog.Logger
	closer io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "bplusviz",
		Short:        "B+ tree visualizer: watch inserts and deletes split, borrow and merge",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closer != nil {
				return a.closer.Close()
			}
			return nil
		},
		// Without a subcommand, start the REPL.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd, a, a.cfg.Tree.Order)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "bplusviz.yaml", "path to the YAML config file")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "", "log format (auto, console, json)")

	root.AddCommand(
		newReplCmd(a),
		newPlayCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the config and builds the logger. Flags beat the environment,
// which beats the file.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, closer, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg, a.log, a.closer = cfg, log, closer
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bplusviz version %s\n", version)
		},
	}
}
