// Package result holds posterior samples and the summary statistics of an
// analysis, with persistence to dataset files.
package result

import (
	"github.com/pkg/errors"

	"github.com/dingo-gw/dingo/internal/dataset"
	"github.com/dingo-gw/dingo/internal/table"
)

// Summary are the aggregate statistics of an importance-sampled result.
type Summary struct {
	NumSamples       int     `yaml:"num_samples"`
	ESS              float64 `yaml:"effective_sample_size"`
	SampleEfficiency float64 `yaml:"sample_efficiency"`
	LogEvidence      float64 `yaml:"log_evidence"`
	LogEvidenceStd   float64 `yaml:"log_evidence_std"`
}

// Samples is a posterior sample set with the context it was produced in.
type Samples struct {
	// Table has one column per parameter, plus bookkeeping columns such as
	// log_prob, log_likelihood, log_prior and weights when present.
	Table *table.Table
	// EventMetadata records the analyzed segment.
	EventMetadata map[string]any
	// Summary is set after importance sampling.
	Summary *Summary
}

// Save writes the samples to a dataset file at path.
func (s *Samples) Save(path string) error {
	f, err := dataset.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.PutTable("samples", s.Table); err != nil {
		return err
	}
	if s.EventMetadata != nil {
		if err := f.PutSettings("event_metadata", s.EventMetadata); err != nil {
			return err
		}
	}
	if s.Summary != nil {
		if err := f.PutSettings("summary", s.Summary); err != nil {
			return err
		}
	}

	return nil
}

// Load reads samples from a dataset file at path.
func Load(path string) (*Samples, error) {
	ok, err := dataset.Exists(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Errorf("no result at %s", path)
	}

	f, err := dataset.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s := &Samples{}
	if s.Table, err = f.Table("samples"); err != nil {
		return nil, err
	}
	meta, err := f.SettingsMap("event_metadata")
	switch {
	case errors.Is(err, dataset.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		s.EventMetadata = meta
	}
	var summary Summary
	err = f.Settings("summary", &summary)
	switch {
	case errors.Is(err, dataset.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		s.Summary = &summary
	}

	return s, nil
}
