// Package inference runs trained posterior models on event data and corrects
// their output by importance sampling against the exact likelihood.
package inference

import (
	"context"

	"github.com/pkg/errors"

	"github.com/dingo-gw/dingo/internal/config"
	"github.com/dingo-gw/dingo/internal/domain"
	"github.com/dingo-gw/dingo/internal/event"
	"github.com/dingo-gw/dingo/internal/result"
	"github.com/dingo-gw/dingo/internal/waveform"
)

// ModelMetadata is the settings pair a posterior model was built from.
type ModelMetadata struct {
	Dataset *config.DatasetSettings `yaml:"dataset_settings"`
	Train   *config.TrainSettings   `yaml:"train_settings"`
}

// PosteriorModel produces posterior samples for frequency-domain event data.
// Implementations must fill a log_prob column with the proposal log density
// of each sample for importance sampling to be possible downstream.
type PosteriorModel interface {
	Metadata() ModelMetadata
	Sample(ctx context.Context, data *event.DomainData, num int) (*result.Samples, error)
}

// Domain builds the analysis domain of the model: the dataset domain with
// the training-time domain_update applied on top.
func (m ModelMetadata) Domain() (*domain.FrequencyDomain, error) {
	if m.Dataset == nil {
		return nil, errors.New("model metadata has no dataset settings")
	}
	s := m.Dataset.Domain
	if m.Train != nil {
		for key, raw := range m.Train.Data.DomainUpdate {
			v, ok := toFloat(raw)
			if !ok {
				return nil, errors.Errorf("domain_update.%s is not a number", key)
			}
			switch key {
			case "f_min":
				s.FMin = v
			case "f_max":
				s.FMax = v
			default:
				return nil, errors.Errorf("domain_update.%s is not supported", key)
			}
		}
	}

	return domain.Build(s)
}

// RawDataSettings derives the download settings of an event analyzed with
// this model.
func (m ModelMetadata) RawDataSettings(timeEvent, timePSD, timeBuffer float64) (event.RawDataSettings, error) {
	if m.Train == nil {
		return event.RawDataSettings{}, errors.New("model metadata has no train settings")
	}
	s := event.RawDataSettings{
		Window:     m.Train.Data.Window,
		Detectors:  m.Train.Data.Detectors,
		TimeEvent:  timeEvent,
		TimePSD:    timePSD,
		TimeBuffer: timeBuffer,
	}
	if err := s.Validate(); err != nil {
		return event.RawDataSettings{}, err
	}

	return s, nil
}

// WaveformGenerator builds the waveform generator of the dataset settings
// over the analysis domain d.
func (m ModelMetadata) WaveformGenerator(d *domain.FrequencyDomain) (*waveform.Generator, error) {
	if m.Dataset == nil {
		return nil, errors.New("model metadata has no dataset settings")
	}

	return waveform.NewGenerator(m.Dataset.WaveformGenerator.Approximant, d, m.Dataset.WaveformGenerator.FRef)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
