package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/hiring-evaluator/internal/config"
	"alfredoptarigan/hiring-evaluator/internal/logger"
)

const app = "hiring-evaluator"

// Actual version can be specified in build command.
var version = "unknown"

var (
	debugLogs bool
	jsonLogs  bool

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "hiring-evaluator ranks resumes against a job description",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debugLogs, "debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&jsonLogs, "json", "j", false, "json format for logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s version: %s\n", app, version)
		},
	})
}

// setup loads the environment config and a stderr logger; flags override
// the LOG_* variables.
func setup() (*config.Config, *zap.Logger, error) {
	cfg := config.Load()

	zl, err := logger.NewWithOutput(jsonLogs || cfg.Log.JSON, debugLogs || cfg.Log.Debug, "stderr")
	if err != nil {
		return nil, nil, err
	}

	return cfg, zl, nil
}
