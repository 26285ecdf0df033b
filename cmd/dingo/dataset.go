package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/dingo-gw/dingo/internal/config"
	"github.com/dingo-gw/dingo/internal/dataset"
	"github.com/dingo-gw/dingo/internal/domain"
	"github.com/dingo-gw/dingo/internal/prior"
	"github.com/dingo-gw/dingo/internal/svd"
	"github.com/dingo-gw/dingo/internal/waveform"
	"github.com/dingo-gw/dingo/pkg/pipeline/drawer"
	"github.com/dingo-gw/dingo/pkg/pipeline/measure"
	"github.com/dingo-gw/dingo/pkg/pipeline/model"
)

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	return rand.New(rand.NewSource(seed))
}

func newGenerateDatasetCmd(log func() *zap.Logger) *cobra.Command {
	var (
		settingsPath string
		outPath      string
		workers      int
		seed         uint64
		graphPath    string
	)
	cmd := &cobra.Command{
		Use:   "generate-dataset",
		Short: "Generate a waveform dataset from its settings file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.LoadDatasetSettings(settingsPath)
			if err != nil {
				return err
			}
			var opts []model.PipelineOption
			if graphPath != "" {
				m := measure.NewDefaultMeasure()
				opts = append(opts,
					measure.PipelineMeasure(m),
					drawer.PipelineDrawer(drawer.NewDOTDrawer(graphPath), m))
			}
			ds, err := dataset.Generate(cmd.Context(), settings, workers, newRand(seed), log(), opts...)
			if err != nil {
				return err
			}
			if err := dataset.SaveWaveformDataset(outPath, ds); err != nil {
				return err
			}
			log().Info("dataset written",
				zap.String("path", outPath),
				zap.Int("num_samples", ds.Parameters.Len()))

			return nil
		},
	}
	cmd.Flags().StringVar(&settingsPath, "settings", "", "dataset settings YAML")
	cmd.Flags().StringVar(&outPath, "out", "", "output dataset file")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent waveform generators")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed, 0 for time-based")
	cmd.Flags().StringVar(&graphPath, "pipeline-graph", "", "write a DOT graph of the generation pipeline with timings")
	_ = cmd.MarkFlagRequired("settings")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func newBuildSVDCmd(log func() *zap.Logger) *cobra.Command {
	var (
		settingsPath string
		outPath      string
		workers      int
		seed         uint64
	)
	cmd := &cobra.Command{
		Use:   "build-svd",
		Short: "Train a compression basis and save it on its own",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.LoadDatasetSettings(settingsPath)
			if err != nil {
				return err
			}
			if settings.Compression == nil || settings.Compression.SVD == nil {
				return errors.New("settings define no svd compression")
			}
			d, err := domain.Build(settings.Domain)
			if err != nil {
				return err
			}
			gen, err := waveform.NewGenerator(settings.WaveformGenerator.Approximant, d, settings.WaveformGenerator.FRef)
			if err != nil {
				return err
			}
			intrinsic, err := prior.BuildDictWithDefaults(settings.IntrinsicPrior, prior.DefaultIntrinsic())
			if err != nil {
				return err
			}

			rnd := newRand(seed)
			svdSettings := settings.Compression.SVD
			params := intrinsic.Sample(svdSettings.NumTrainingSamples+svdSettings.NumValidationSamples, rnd)
			batch, err := waveform.GenerateBatch(cmd.Context(), gen, params, workers, log())
			if err != nil {
				return err
			}
			numTrain := svdSettings.NumTrainingSamples
			if batch.Parameters.Len() < numTrain {
				numTrain = batch.Parameters.Len()
			}
			training := append([][]complex128{}, batch.Plus[:numTrain]...)
			training = append(training, batch.Cross[:numTrain]...)
			basis, err := svd.Train(training, svdSettings.Size)
			if err != nil {
				return err
			}
			if batch.Parameters.Len() > numTrain {
				validation := append([][]complex128{}, batch.Plus[numTrain:]...)
				validation = append(validation, batch.Cross[numTrain:]...)
				summary, err := basis.Validate(validation, nil)
				if err != nil {
					return err
				}
				log().Info("basis validated",
					zap.Float64("mean_mismatch", summary.Mean),
					zap.Float64("max_mismatch", summary.Max))
			}

			f, err := dataset.Open(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := f.PutSettings("dataset", settings); err != nil {
				return err
			}
			if err := f.PutFloatMatrix("svd/basis", basis.Matrix()); err != nil {
				return err
			}
			log().Info("basis written", zap.String("path", outPath), zap.Int("size", basis.Size))

			return nil
		},
	}
	cmd.Flags().StringVar(&settingsPath, "settings", "", "dataset settings YAML")
	cmd.Flags().StringVar(&outPath, "out", "", "output basis file")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent waveform generators")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed, 0 for time-based")
	_ = cmd.MarkFlagRequired("settings")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
