package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dingo-gw/dingo/internal/condor"
	"github.com/dingo-gw/dingo/internal/config"
	"github.com/dingo-gw/dingo/internal/result"
)

func newPipeCmd(log func() *zap.Logger) *cobra.Command {
	var (
		settingsPath string
		executable   string
		stripKeys    bool
	)
	cmd := &cobra.Command{
		Use:   "pipe",
		Short: "Plan an event analysis as condor jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := condor.LoadSettings(settingsPath)
			if err != nil {
				return err
			}
			exe := executable
			if exe == "" {
				if exe, err = os.Executable(); err != nil {
					return err
				}
			}
			dag, err := condor.Plan(settings, exe)
			if err != nil {
				return err
			}
			if stripKeys {
				for _, job := range dag.Jobs() {
					job.StripUnwantedSubmissionKeys()
				}
			}
			dagPath, err := condor.WriteFiles(dag, settings.Outdir, settings.Label)
			if err != nil {
				return err
			}
			log().Info("dag written",
				zap.String("path", dagPath),
				zap.Int("jobs", len(dag.Jobs())))

			return nil
		},
	}
	cmd.Flags().StringVar(&settingsPath, "settings", "", "run settings INI")
	cmd.Flags().StringVar(&executable, "executable", "", "pipeline executable for the jobs, defaults to this binary")
	cmd.Flags().BoolVar(&stripKeys, "strip-submission-keys", false, "drop submission keys shared schedulers reject")
	_ = cmd.MarkFlagRequired("settings")

	return cmd
}

func newSummaryCmd(log func() *zap.Logger) *cobra.Command {
	var (
		samplesPath string
		outPath     string
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Write the summary of an importance-sampled result",
		RunE: func(*cobra.Command, []string) error {
			samples, err := result.Load(samplesPath)
			if err != nil {
				return err
			}
			if samples.Summary == nil {
				log().Warn("samples carry no summary, run importance-sample first",
					zap.String("path", samplesPath))
			}
			doc := struct {
				NumSamples int             `yaml:"num_samples"`
				Parameters []string        `yaml:"parameters"`
				Summary    *result.Summary `yaml:"summary,omitempty"`
			}{
				NumSamples: samples.Table.Len(),
				Parameters: samples.Table.Columns,
				Summary:    samples.Summary,
			}
			raw, err := yaml.Marshal(doc)
			if err != nil {
				return err
			}

			return os.WriteFile(outPath, raw, 0o644)
		},
	}
	cmd.Flags().StringVar(&samplesPath, "samples", "", "posterior samples file")
	cmd.Flags().StringVar(&outPath, "out", "", "output summary YAML")
	_ = cmd.MarkFlagRequired("samples")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func newValidateConfigCmd(log func() *zap.Logger) *cobra.Command {
	var (
		trainPath   string
		datasetPath string
	)
	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Validate settings files without running anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if trainPath == "" && datasetPath == "" {
				return cmd.Help()
			}
			if trainPath != "" {
				if _, err := config.LoadTrainSettings(trainPath); err != nil {
					return err
				}
				log().Info("train settings valid", zap.String("path", trainPath))
			}
			if datasetPath != "" {
				if _, err := config.LoadDatasetSettings(datasetPath); err != nil {
					return err
				}
				log().Info("dataset settings valid", zap.String("path", datasetPath))
			}

			return nil
		},
	}
	cmd.Flags().StringVar(&trainPath, "train", "", "train settings YAML")
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "dataset settings YAML")

	return cmd
}
