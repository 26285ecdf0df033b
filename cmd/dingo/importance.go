package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dingo-gw/dingo/internal/detector"
	"github.com/dingo-gw/dingo/internal/event"
	"github.com/dingo-gw/dingo/internal/inference"
	"github.com/dingo-gw/dingo/internal/injection"
	"github.com/dingo-gw/dingo/internal/prior"
	"github.com/dingo-gw/dingo/internal/result"
)

// buildLikelihood assembles the exact likelihood of an event under the
// model's waveform settings.
func buildLikelihood(meta inference.ModelMetadata, raw *event.RawData) (*inference.Likelihood, *event.DomainData, error) {
	d, err := meta.Domain()
	if err != nil {
		return nil, nil, err
	}
	data, err := event.ToDomain(raw, d)
	if err != nil {
		return nil, nil, err
	}
	gen, err := meta.WaveformGenerator(d)
	if err != nil {
		return nil, nil, err
	}
	ifos, err := detector.Network(meta.Train.Data.Detectors)
	if err != nil {
		return nil, nil, err
	}

	return &inference.Likelihood{
		Data:    data,
		Gen:     gen,
		Ifos:    ifos,
		RefTime: meta.Train.Data.RefTime,
	}, data, nil
}

// posteriorPrior is the full prior of the analysis: intrinsic joined with
// extrinsic.
func posteriorPrior(meta inference.ModelMetadata) (*prior.Dict, error) {
	intrinsic, err := prior.BuildDictWithDefaults(meta.Dataset.IntrinsicPrior, prior.DefaultIntrinsic())
	if err != nil {
		return nil, err
	}
	extrinsic, err := prior.BuildDictWithDefaults(meta.Train.Data.ExtrinsicPrior, prior.DefaultExtrinsic())
	if err != nil {
		return nil, err
	}
	joined := make(map[string]prior.Distribution)
	for _, name := range intrinsic.Names() {
		dist, _ := intrinsic.Distribution(name)
		joined[name] = dist
	}
	for _, name := range extrinsic.Names() {
		dist, _ := extrinsic.Distribution(name)
		joined[name] = dist
	}

	return prior.NewDict(joined), nil
}

func newImportanceSampleCmd(log func() *zap.Logger) *cobra.Command {
	flags := &eventFlags{}
	var (
		samplesPath string
		outPath     string
		seed        uint64
	)
	cmd := &cobra.Command{
		Use:   "importance-sample",
		Short: "Reweight posterior samples against the exact likelihood",
		RunE: func(cmd *cobra.Command, _ []string) error {
			samples, err := result.Load(samplesPath)
			if err != nil {
				return err
			}
			meta, _, raw, err := fetchEvent(cmd, flags, log())
			if err != nil {
				return err
			}
			like, _, err := buildLikelihood(meta, raw)
			if err != nil {
				return err
			}
			priorDict, err := posteriorPrior(meta)
			if err != nil {
				return err
			}
			if err := inference.ImportanceSample(samples, priorDict, like, newRand(seed), log()); err != nil {
				return err
			}

			return samples.Save(outPath)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&samplesPath, "samples", "", "posterior samples file")
	cmd.Flags().StringVar(&outPath, "out", "", "output samples file")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed, 0 for time-based")
	_ = cmd.MarkFlagRequired("samples")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func newInjectionCmd(log func() *zap.Logger) *cobra.Command {
	flags := &eventFlags{}
	var (
		samplesPath string
		outPath     string
	)
	cmd := &cobra.Command{
		Use:   "injection",
		Short: "Inject the maximum-likelihood sample into event noise",
		RunE: func(cmd *cobra.Command, _ []string) error {
			samples, err := result.Load(samplesPath)
			if err != nil {
				return err
			}
			meta, _, raw, err := fetchEvent(cmd, flags, log())
			if err != nil {
				return err
			}
			_, data, err := buildLikelihood(meta, raw)
			if err != nil {
				return err
			}
			injected, err := injection.Make(meta, samples, data, log())
			if err != nil {
				return err
			}

			return injection.Save(outPath, injected)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&samplesPath, "samples", "", "posterior samples file")
	cmd.Flags().StringVar(&outPath, "out", "", "output injection file")
	_ = cmd.MarkFlagRequired("samples")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
