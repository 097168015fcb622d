package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"ocorrencias/internal/cli"
	"ocorrencias/internal/config"
	applog "ocorrencias/internal/log"

	"github.com/spf13/cobra"
)

type rootConfig struct {
	Ctx    context.Context
	Logger *applog.Logger
	Out    io.Writer

	CSVPath  string
	DBPath   string
	LogLevel string
}

func newRootCommand() *cobra.Command {
	// Environment (and .env) supplies the flag defaults.
	env, err := config.Load()
	if err != nil {
		env = &config.Config{CSVPath: "ocorrencias_ride.csv", SQLiteDBPath: "./data/ocorrencias.db", LogLevel: "info", LogFormat: "text"}
	}

	cfg := new(rootConfig)
	cmd := &cobra.Command{
		Use:   "ocorrencias-import",
		Short: "Validate the occurrence CSV and load it into SQLite",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.Ctx = cmdCtx()
			cfg.Out = cmd.OutOrStdout()
			env.LogLevel = cfg.LogLevel
			logger, err := cli.SetupLogger(env)
			if err != nil {
				return usageErr.Wrap(err)
			}
			cfg.Logger = logger.WithComponent(applog.ComponentImport)
			return nil
		},
		SilenceUsage: true,
		Version:      getVersion(),
	}
	cmd.PersistentFlags().StringVarP(&cfg.CSVPath, "csv", "", env.CSVPath,
		"Path of the occurrence CSV file")
	cmd.PersistentFlags().StringVarP(&cfg.DBPath, "db", "", env.SQLiteDBPath,
		"Path of the SQLite database")
	cmd.PersistentFlags().StringVarP(&cfg.LogLevel, "log-level", "", env.LogLevel,
		"Log level (debug, info, warn, error)")

	cmd.AddCommand(newLoadCommand(cfg))
	cmd.AddCommand(newCheckCommand(cfg))
	return cmd
}

func getVersion() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s (built with %s)", buildInfo.Main.Version, runtime.Version())
}
