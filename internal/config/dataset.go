package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dingo-gw/dingo/internal/domain"
)

// SVDSettings configures the compression basis of a waveform dataset.
type SVDSettings struct {
	Size                 int    `yaml:"size"`
	NumTrainingSamples   int    `yaml:"num_training_samples"`
	NumValidationSamples int    `yaml:"num_validation_samples,omitempty"`
	File                 string `yaml:"file,omitempty"`
}

// CompressionSettings groups the optional dataset compression stages.
type CompressionSettings struct {
	SVD *SVDSettings `yaml:"svd,omitempty"`
}

// GeneratorSettings names the waveform model used for dataset generation.
type GeneratorSettings struct {
	Approximant string  `yaml:"approximant"`
	FRef        float64 `yaml:"f_ref"`
}

// DatasetSettings is the waveform dataset settings file.
type DatasetSettings struct {
	Domain            domain.Settings      `yaml:"domain"`
	WaveformGenerator GeneratorSettings    `yaml:"waveform_generator"`
	IntrinsicPrior    map[string]string    `yaml:"intrinsic_prior"`
	NumSamples        int                  `yaml:"num_samples"`
	Compression       *CompressionSettings `yaml:"compression,omitempty"`
}

// LoadDatasetSettings reads and validates a dataset settings YAML file.
func LoadDatasetSettings(path string) (*DatasetSettings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open dataset settings %s", path)
	}
	defer f.Close()

	return DecodeDatasetSettings(f)
}

// DecodeDatasetSettings decodes and validates dataset settings.
func DecodeDatasetSettings(r io.Reader) (*DatasetSettings, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s DatasetSettings
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "unable to decode dataset settings")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Validate checks the settings for consistency.
func (s *DatasetSettings) Validate() error {
	if _, err := domain.Build(s.Domain); err != nil {
		return errors.Wrap(err, "domain")
	}
	if s.WaveformGenerator.Approximant == "" {
		return errors.New("waveform_generator.approximant must be set")
	}
	if s.WaveformGenerator.FRef <= 0 {
		return errors.New("waveform_generator.f_ref must be positive")
	}
	if len(s.IntrinsicPrior) == 0 {
		return errors.New("intrinsic_prior must not be empty")
	}
	if s.NumSamples <= 0 {
		return errors.New("num_samples must be positive")
	}
	if c := s.Compression; c != nil && c.SVD != nil {
		svd := c.SVD
		if svd.Size <= 0 {
			return errors.New("compression.svd.size must be positive")
		}
		if svd.File == "" && svd.NumTrainingSamples <= 0 {
			return errors.New("compression.svd.num_training_samples must be positive")
		}
		if svd.File == "" && svd.Size > svd.NumTrainingSamples {
			return errors.New("compression.svd.size must not exceed num_training_samples")
		}
	}

	return nil
}

// ToMap converts settings to a generic map for storage alongside datasets.
func ToMap(v any) (map[string]any, error) {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal settings")
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "unable to normalize settings")
	}

	return out, nil
}
