// Package condor plans an event analysis as HTCondor jobs: one submit file
// per stage and a DAG wiring the stages together.
package condor

import (
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// Settings is the INI description of a pipeline run.
type Settings struct {
	Label  string `ini:"label"`
	Outdir string `ini:"outdir"`

	AccountingGroup string `ini:"accounting"`
	RequestCPUs     int    `ini:"request-cpus"`
	RequestMemoryMB int    `ini:"request-memory"`
	// Importance sampling parallelizes over likelihood evaluations and gets
	// its own CPU request.
	RequestCPUsImportanceSampling int `ini:"request-cpus-importance-sampling"`

	ModelPath     string `ini:"model"`
	ModelInitPath string `ini:"model-init"`
	Device        string `ini:"device"`

	NumSamples int `ini:"num-samples"`
	BatchSize  int `ini:"batch-size"`

	TriggerTime  float64 `ini:"trigger-time"`
	EventDataURL string  `ini:"event-data-url"`
	PSDLengthS   float64 `ini:"psd-length"`
	TimeBufferS  float64 `ini:"time-buffer"`

	ImportanceSample bool `ini:"importance-sample"`
	CreatePlots      bool `ini:"create-summary"`
}

// LoadSettings reads a run description from an INI file.
func LoadSettings(path string) (*Settings, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load settings %s", path)
	}
	s := &Settings{
		Device:      "cpu",
		PSDLengthS:  128,
		TimeBufferS: 2,
	}
	if err := file.Section("").MapTo(s); err != nil {
		return nil, errors.Wrapf(err, "unable to map settings %s", path)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate checks the run description.
func (s *Settings) Validate() error {
	if s.Label == "" {
		return errors.New("label must be set")
	}
	if s.Outdir == "" {
		return errors.New("outdir must be set")
	}
	if s.ModelPath == "" {
		return errors.New("model must be set")
	}
	if s.NumSamples <= 0 {
		return errors.New("num-samples must be positive")
	}
	if s.RequestCPUs <= 0 {
		return errors.New("request-cpus must be positive")
	}
	if s.RequestMemoryMB <= 0 {
		return errors.New("request-memory must be positive")
	}
	if s.TriggerTime <= 0 {
		return errors.New("trigger-time must be set")
	}

	return nil
}
