package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootFlags struct {
	verbose bool
	logJSON bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	var logger *zap.Logger

	cmd := &cobra.Command{
		Use:           "dingo",
		Short:         "Gravitational-wave inference pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			logger, err = buildLogger(flags)
			if err != nil {
				return errors.Wrap(err, "unable to build logger")
			}

			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "log as JSON instead of console lines")

	log := func() *zap.Logger { return logger }
	cmd.AddCommand(
		newGenerateDatasetCmd(log),
		newBuildSVDCmd(log),
		newAnalyzeEventCmd(log),
		newImportanceSampleCmd(log),
		newInjectionCmd(log),
		newSummaryCmd(log),
		newPipeCmd(log),
		newValidateConfigCmd(log),
	)

	return cmd
}

func buildLogger(flags *rootFlags) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if !flags.logJSON {
		cfg = zap.NewDevelopmentConfig()
	}
	if flags.verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return cfg.Build()
}
