package dataset

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/dingo-gw/dingo/internal/config"
	"github.com/dingo-gw/dingo/internal/domain"
	"github.com/dingo-gw/dingo/internal/prior"
	"github.com/dingo-gw/dingo/internal/svd"
	"github.com/dingo-gw/dingo/internal/waveform"
	"github.com/dingo-gw/dingo/pkg/pipeline/model"
)

// Generate builds a waveform dataset from its settings: prior samples,
// waveforms generated in parallel, and the optional SVD basis trained on a
// separate batch. Sample counts in the returned settings are updated to the
// realized counts, which can fall short of the request when the generator
// rejects parameter sets.
func Generate(ctx context.Context, settings *config.DatasetSettings, workers int, rnd *rand.Rand, log *zap.Logger, opts ...model.PipelineOption) (*WaveformDataset, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	d, err := domain.Build(settings.Domain)
	if err != nil {
		return nil, err
	}
	gen, err := waveform.NewGenerator(settings.WaveformGenerator.Approximant, d, settings.WaveformGenerator.FRef)
	if err != nil {
		return nil, err
	}
	intrinsic, err := prior.BuildDictWithDefaults(settings.IntrinsicPrior, prior.DefaultIntrinsic())
	if err != nil {
		return nil, errors.Wrap(err, "unable to build intrinsic prior")
	}

	out := &WaveformDataset{Settings: settings}

	if c := settings.Compression; c != nil && c.SVD != nil {
		basis, err := buildBasis(ctx, c.SVD, gen, intrinsic, workers, rnd, log)
		if err != nil {
			return nil, err
		}
		out.Basis = basis
		c.SVD.Size = basis.Size
	}

	params := intrinsic.Sample(settings.NumSamples, rnd)
	batch, err := waveform.GenerateBatch(ctx, gen, params, workers, log, opts...)
	if err != nil {
		return nil, err
	}
	out.Parameters = batch.Parameters
	out.Plus = batch.Plus
	out.Cross = batch.Cross
	settings.NumSamples = batch.Parameters.Len()

	return out, nil
}

// buildBasis trains the compression basis on fresh waveforms, or loads a
// previously trained one when the settings name a file.
func buildBasis(ctx context.Context, s *config.SVDSettings, gen *waveform.Generator, intrinsic *prior.Dict, workers int, rnd *rand.Rand, log *zap.Logger) (*svd.Basis, error) {
	if s.File != "" {
		f, err := Open(s.File)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		rows, err := f.FloatMatrix("svd/basis")
		if err != nil {
			return nil, errors.Wrapf(err, "unable to load basis from %s", s.File)
		}

		return svd.FromMatrix(rows)
	}

	params := intrinsic.Sample(s.NumTrainingSamples+s.NumValidationSamples, rnd)
	batch, err := waveform.GenerateBatch(ctx, gen, params, workers, log)
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate basis training waveforms")
	}
	numTrain := s.NumTrainingSamples
	if batch.Parameters.Len() < numTrain {
		numTrain = batch.Parameters.Len()
	}
	s.NumTrainingSamples = numTrain
	s.NumValidationSamples = batch.Parameters.Len() - numTrain

	// both polarizations contribute to the training set
	training := make([][]complex128, 0, 2*numTrain)
	training = append(training, batch.Plus[:numTrain]...)
	training = append(training, batch.Cross[:numTrain]...)

	size := s.Size
	if size > len(training) {
		size = len(training)
		s.Size = size
	}
	basis, err := svd.Train(training, size)
	if err != nil {
		return nil, errors.Wrap(err, "unable to train basis")
	}

	if s.NumValidationSamples > 0 {
		validation := append([][]complex128{}, batch.Plus[numTrain:]...)
		validation = append(validation, batch.Cross[numTrain:]...)
		summary, err := basis.Validate(validation, nil)
		if err != nil {
			return nil, errors.Wrap(err, "unable to validate basis")
		}
		log.Info("basis validated",
			zap.Int("size", basis.Size),
			zap.Float64("mean_mismatch", summary.Mean),
			zap.Float64("max_mismatch", summary.Max))
	}

	return basis, nil
}
