package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dingo-gw/dingo/internal/config"
	"github.com/dingo-gw/dingo/internal/event"
	"github.com/dingo-gw/dingo/internal/inference"
	"github.com/dingo-gw/dingo/internal/result"
	"github.com/dingo-gw/dingo/internal/table"
)

type eventFlags struct {
	modelPath   string
	triggerTime float64
	dataURL     string
	psdLength   float64
	timeBuffer  float64
	cachePath   string
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.modelPath, "model", "", "model metadata file")
	cmd.Flags().Float64Var(&f.triggerTime, "trigger-time", 0, "GPS time of the trigger")
	cmd.Flags().StringVar(&f.dataURL, "event-data-url", "", "base URL of the open-data server")
	cmd.Flags().Float64Var(&f.psdLength, "psd-length", 128, "seconds of data for the PSD estimate")
	cmd.Flags().Float64Var(&f.timeBuffer, "time-buffer", 2, "seconds of data kept after the trigger")
	cmd.Flags().StringVar(&f.cachePath, "event-cache", "", "event data cache file")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("trigger-time")
}

// fetchEvent resolves the model metadata and the (cached) event data.
func fetchEvent(cmd *cobra.Command, f *eventFlags, log *zap.Logger) (inference.ModelMetadata, event.RawDataSettings, *event.RawData, error) {
	meta, err := inference.LoadModelMetadata(f.modelPath)
	if err != nil {
		return inference.ModelMetadata{}, event.RawDataSettings{}, nil, err
	}
	rawSettings, err := meta.RawDataSettings(f.triggerTime, f.psdLength, f.timeBuffer)
	if err != nil {
		return inference.ModelMetadata{}, event.RawDataSettings{}, nil, err
	}
	client := event.NewClient(f.dataURL, log)
	raw, err := event.LoadOrDownload(cmd.Context(), client, rawSettings, f.cachePath, log)
	if err != nil {
		return inference.ModelMetadata{}, event.RawDataSettings{}, nil, err
	}

	return meta, rawSettings, raw, nil
}

// drawSamples runs the sampler, in chunks of batchSize when positive so the
// per-draw memory stays bounded.
func drawSamples(ctx context.Context, sampler *inference.EventSampler, data *event.DomainData, num, batchSize int) (*result.Samples, error) {
	if batchSize <= 0 || batchSize >= num {
		return sampler.Run(ctx, data, num)
	}
	var (
		parts []*table.Table
		out   *result.Samples
	)
	for drawn := 0; drawn < num; {
		n := batchSize
		if num-drawn < n {
			n = num - drawn
		}
		s, err := sampler.Run(ctx, data, n)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s.Table)
		out = s
		drawn += n
	}
	tbl, err := table.Concat(parts...)
	if err != nil {
		return nil, err
	}
	out.Table = tbl

	return out, nil
}

func newAnalyzeEventCmd(log func() *zap.Logger) *cobra.Command {
	flags := &eventFlags{}
	var (
		numSamples   int
		batchSize    int
		outPath      string
		modelInit    string
		downloadOnly bool
		seed         uint64
	)
	cmd := &cobra.Command{
		Use:   "analyze-event",
		Short: "Download event data and draw posterior samples",
		RunE: func(cmd *cobra.Command, _ []string) error {
			meta, rawSettings, raw, err := fetchEvent(cmd, flags, log())
			if err != nil {
				return err
			}
			if downloadOnly {
				log().Info("event data ready", zap.Float64("trigger_time", flags.triggerTime))

				return nil
			}

			d, err := meta.Domain()
			if err != nil {
				return err
			}
			data, err := event.ToDomain(raw, d)
			if err != nil {
				return err
			}

			model, err := inference.NewPriorProposalModel(meta, newRand(seed))
			if err != nil {
				return err
			}
			sampler := &inference.EventSampler{Model: model, Rand: newRand(seed + 1), Log: log()}
			if modelInit != "" {
				initMeta, err := inference.LoadModelMetadata(modelInit)
				if err != nil {
					return err
				}
				if sampler.Init, err = inference.NewPriorProposalModel(initMeta, newRand(seed+2)); err != nil {
					return err
				}
			}
			samples, err := drawSamples(cmd.Context(), sampler, data, numSamples, batchSize)
			if err != nil {
				return err
			}
			samples.EventMetadata, err = config.ToMap(rawSettings)
			if err != nil {
				return err
			}
			if err := samples.Save(outPath); err != nil {
				return err
			}
			log().Info("samples written",
				zap.String("path", outPath),
				zap.Int("num_samples", samples.Table.Len()))

			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&numSamples, "num-samples", 10000, "posterior samples to draw")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "samples per draw, 0 for all at once")
	cmd.Flags().StringVar(&outPath, "out", "", "output samples file")
	cmd.Flags().StringVar(&modelInit, "model-init", "", "init model metadata file seeding the proxy iteration")
	cmd.Flags().BoolVar(&downloadOnly, "download-only", false, "stop after caching the event data")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed, 0 for time-based")

	return cmd
}
