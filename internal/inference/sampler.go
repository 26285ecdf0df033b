package inference

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/dingo-gw/dingo/internal/event"
	"github.com/dingo-gw/dingo/internal/result"
	"github.com/dingo-gw/dingo/internal/table"
)

// GNPEModel is a posterior model conditioned on per-detector time proxies.
// proxies has one "<ifo>_time_proxy" column per detector.
type GNPEModel interface {
	PosteriorModel
	SampleConditional(ctx context.Context, data *event.DomainData, proxies *table.Table, num int) (*result.Samples, error)
}

// EventSampler draws posterior samples for one event. A plain model is
// sampled once; a GNPE model is iterated, each round conditioning on time
// proxies derived from the previous round.
type EventSampler struct {
	Model PosteriorModel
	// Init seeds the proxies of the first GNPE iteration. Required when
	// Model is a GNPEModel.
	Init       PosteriorModel
	Iterations int
	Rand       *rand.Rand
	Log        *zap.Logger
}

// Run produces num posterior samples for the event data.
func (s *EventSampler) Run(ctx context.Context, data *event.DomainData, num int) (*result.Samples, error) {
	gnpe, isGNPE := s.Model.(GNPEModel)
	if !isGNPE {
		return s.Model.Sample(ctx, data, num)
	}

	meta := s.Model.Metadata()
	gnpeSettings := meta.Train.Data.GNPETimeShifts
	if gnpeSettings == nil {
		return nil, errors.New("model is conditioned on time proxies but train settings define none")
	}
	if s.Init == nil {
		return nil, errors.New("gnpe sampling needs an init model")
	}
	iterations := s.Iterations
	if iterations <= 0 {
		iterations = 1
	}

	samples, err := s.Init.Sample(ctx, data, num)
	if err != nil {
		return nil, errors.Wrap(err, "unable to draw init samples")
	}
	detectors := meta.Train.Data.Detectors
	for it := 0; it < iterations; it++ {
		proxies, err := s.perturbedTimes(samples, detectors, gnpeSettings.KernelHalfWidth)
		if err != nil {
			return nil, errors.Wrapf(err, "gnpe iteration %d", it)
		}
		samples, err = gnpe.SampleConditional(ctx, data, proxies, num)
		if err != nil {
			return nil, errors.Wrapf(err, "gnpe iteration %d", it)
		}
		s.Log.Debug("gnpe iteration done", zap.Int("iteration", it))
	}
	// conditional densities of the final iteration are not the marginal
	// proposal density, so downstream importance sampling must not use them
	samples.Table = dropColumn(samples.Table, "log_prob")

	return samples, nil
}

// perturbedTimes turns the detector times of the previous round into proxies
// by adding uniform kernel noise.
func (s *EventSampler) perturbedTimes(samples *result.Samples, detectors []string, kernel float64) (*table.Table, error) {
	columns := make([]string, len(detectors))
	for i, det := range detectors {
		columns[i] = det + "_time_proxy"
	}
	out := table.New(columns...)
	for i := 0; i < samples.Table.Len(); i++ {
		row := samples.Table.Row(i)
		values := make([]float64, len(detectors))
		for j, det := range detectors {
			t, ok := row[det+"_time"]
			if !ok {
				return nil, errors.Errorf("samples carry no %s_time column", det)
			}
			values[j] = t + kernel*(2*s.Rand.Float64()-1)
		}
		if err := out.Append(values); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func dropColumn(tbl *table.Table, name string) *table.Table {
	if !tbl.HasColumn(name) {
		return tbl
	}
	keep := make([]string, 0, len(tbl.Columns))
	idx := -1
	for i, c := range tbl.Columns {
		if c == name {
			idx = i

			continue
		}
		keep = append(keep, c)
	}
	out := table.New(keep...)
	for _, row := range tbl.Rows {
		newRow := make([]float64, 0, len(keep))
		for i, v := range row {
			if i == idx {
				continue
			}
			newRow = append(newRow, v)
		}
		out.Rows = append(out.Rows, newRow)
	}

	return out
}
