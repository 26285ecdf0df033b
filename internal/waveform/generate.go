package waveform

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dingo-gw/dingo/internal/table"
	"github.com/dingo-gw/dingo/pkg/pipeline"
	"github.com/dingo-gw/dingo/pkg/pipeline/model"
)

// Batch holds generated polarizations aligned with the parameter sets that
// produced them. Parameter sets the generator failed on are dropped from
// both.
type Batch struct {
	Parameters *table.Table
	Plus       [][]complex128
	Cross      [][]complex128
}

type indexedParams struct {
	idx int
	row map[string]float64
}

type indexedResult struct {
	idx int
	row map[string]float64
	pol Polarizations
}

// GenerateBatch generates waveforms for every row of params, running workers
// generator goroutines over a pipeline. Rows the generator rejects with
// ErrGeneration are logged and dropped; any other error aborts the batch.
// Pipeline options observe the run, e.g. for timing or graph output.
func GenerateBatch(ctx context.Context, gen *Generator, params *table.Table, workers int, log *zap.Logger, opts ...model.PipelineOption) (*Batch, error) {
	if workers <= 0 {
		workers = 1
	}

	pipe, err := pipeline.New(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create waveform pipeline")
	}

	rootStep, err := pipeline.AddRootStep(pipe, "emit parameters", func(ctx context.Context, rootChan chan<- indexedParams) error {
		for i := 0; i < params.Len(); i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- indexedParams{idx: i, row: params.Row(i)}:
			}
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add parameter step")
	}

	genStep, err := pipeline.AddStepOneToMany(pipe, "generate waveform", rootStep,
		func(_ context.Context, in indexedParams) ([]indexedResult, error) {
			pol, err := gen.Generate(in.row)
			if err != nil {
				if errors.Is(err, ErrGeneration) {
					log.Warn("dropping parameter set",
						zap.Int("index", in.idx),
						zap.Error(err))

					return nil, nil
				}

				return nil, err
			}

			return []indexedResult{{idx: in.idx, row: in.row, pol: pol}}, nil
		},
		pipeline.StepConcurrency[indexedResult](workers),
	)
	if err != nil {
		return nil, errors.Wrap(err, "unable to add generator step")
	}

	var results []indexedResult
	err = pipeline.AddSink(pipe, "collect waveforms", genStep, func(_ context.Context, in indexedResult) error {
		results = append(results, in)

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add collect step")
	}

	if err := pipe.Run(); err != nil {
		return nil, errors.Wrap(err, "unable to run waveform pipeline")
	}

	// workers > 1 delivers out of order
	sort.Slice(results, func(i, j int) bool { return results[i].idx < results[j].idx })

	batch := &Batch{
		Parameters: table.New(params.Columns...),
		Plus:       make([][]complex128, 0, len(results)),
		Cross:      make([][]complex128, 0, len(results)),
	}
	for _, res := range results {
		if err := batch.Parameters.AppendMap(res.row); err != nil {
			return nil, errors.Wrap(err, "unable to keep parameter row")
		}
		batch.Plus = append(batch.Plus, res.pol.Plus)
		batch.Cross = append(batch.Cross, res.pol.Cross)
	}
	log.Info("waveform batch generated",
		zap.Int("requested", params.Len()),
		zap.Int("generated", len(results)))

	return batch, nil
}
