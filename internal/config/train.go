// Package config provides the settings schemas of the pipeline: the training
// settings YAML (sections data, model, training, local) and the dataset
// settings YAML. Decoding is strict; unknown fields are errors.
package config

import (
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// WindowSettings describes the time-domain window applied before the FFT.
type WindowSettings struct {
	Type    string  `yaml:"type"`
	FS      float64 `yaml:"f_s"`
	T       float64 `yaml:"T"`
	RollOff float64 `yaml:"roll_off"`
}

// Validate checks the window settings; path qualifies error messages.
func (w WindowSettings) Validate(path string) error {
	if w.Type != "tukey" {
		return errors.Errorf("%s.type: unsupported window type %q", path, w.Type)
	}
	if w.FS <= 0 {
		return errors.Errorf("%s.f_s must be positive", path)
	}
	if w.T <= 0 {
		return errors.Errorf("%s.T must be positive", path)
	}
	if w.RollOff < 0 || 2*w.RollOff > w.T {
		return errors.Errorf("%s.roll_off must lie in [0, T/2]", path)
	}

	return nil
}

// GNPESettings configures group-equivariant NPE over detector time shifts.
type GNPESettings struct {
	KernelHalfWidth float64 `yaml:"kernel"`
	Exact           bool    `yaml:"exact_equivariance"`
}

// DataSettings is the data section of the training settings.
type DataSettings struct {
	WaveformDatasetPath string            `yaml:"waveform_dataset_path"`
	Window              WindowSettings    `yaml:"window"`
	Detectors           []string          `yaml:"detectors"`
	DomainUpdate        map[string]any    `yaml:"domain_update,omitempty"`
	RefTime             float64           `yaml:"ref_time"`
	ExtrinsicPrior      map[string]string `yaml:"extrinsic_prior"`
	InferenceParameters []string          `yaml:"inference_parameters"`
	GNPETimeShifts      *GNPESettings     `yaml:"gnpe_time_shifts,omitempty"`
}

// ModelSettings is the model section of the training settings. The kwargs
// maps are passed through to the model builder untouched.
type ModelSettings struct {
	Type               string         `yaml:"type"`
	EmbeddingNetKwargs map[string]any `yaml:"embedding_net_kwargs,omitempty"`
	PosteriorKwargs    map[string]any `yaml:"posterior_kwargs,omitempty"`
}

// OptimizerSettings configures the per-stage optimizer.
type OptimizerSettings struct {
	Type string  `yaml:"type"`
	LR   float64 `yaml:"lr"`
}

// SchedulerSettings configures the per-stage learning-rate scheduler.
type SchedulerSettings struct {
	Type     string  `yaml:"type"`
	Gamma    float64 `yaml:"gamma,omitempty"`
	StepSize int     `yaml:"step_size,omitempty"`
	TMax     int     `yaml:"T_max,omitempty"`
}

// StageSettings is one stage of the training section.
type StageSettings struct {
	Epochs          int               `yaml:"epochs"`
	ASDDatasetPath  string            `yaml:"asd_dataset_path"`
	FreezeEmbedding bool              `yaml:"freeze_embedding,omitempty"`
	BatchSize       int               `yaml:"batch_size"`
	Optimizer       OptimizerSettings `yaml:"optimizer"`
	Scheduler       SchedulerSettings `yaml:"scheduler"`
}

// CondorSettings is the distributed-job resource request of the local
// section.
type CondorSettings struct {
	NumGPUs  int `yaml:"num_gpus"`
	MemoryMB int `yaml:"memory"`
	Bid      int `yaml:"bid"`
}

// LocalSettings is the local section of the training settings.
type LocalSettings struct {
	Device         string          `yaml:"device"`
	NumWorkers     int             `yaml:"num_workers"`
	RuntimeLimitHR float64         `yaml:"runtime_limit_hours,omitempty"`
	CheckpointEach int             `yaml:"checkpoint_epochs,omitempty"`
	Condor         *CondorSettings `yaml:"condor,omitempty"`
}

// TrainSettings is the full training settings file.
type TrainSettings struct {
	Data     DataSettings             `yaml:"data"`
	Model    ModelSettings            `yaml:"model"`
	Training map[string]StageSettings `yaml:"training"`
	Local    LocalSettings            `yaml:"local"`
}

// LoadTrainSettings reads and validates a training settings YAML file.
func LoadTrainSettings(path string) (*TrainSettings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open train settings %s", path)
	}
	defer f.Close()

	return DecodeTrainSettings(f)
}

// DecodeTrainSettings decodes and validates training settings.
func DecodeTrainSettings(r io.Reader) (*TrainSettings, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s TrainSettings
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "unable to decode train settings")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Validate checks the settings for consistency. Errors name the offending
// field.
func (s *TrainSettings) Validate() error {
	if s.Data.WaveformDatasetPath == "" {
		return errors.New("data.waveform_dataset_path must be set")
	}
	if err := s.Data.Window.Validate("data.window"); err != nil {
		return err
	}
	if len(s.Data.Detectors) == 0 {
		return errors.New("data.detectors must not be empty")
	}
	if len(s.Data.InferenceParameters) == 0 {
		return errors.New("data.inference_parameters must not be empty")
	}
	if s.Model.Type == "" {
		return errors.New("model.type must be set")
	}
	if len(s.Training) == 0 {
		return errors.New("training must define at least one stage")
	}
	if _, err := s.StageOrder(); err != nil {
		return err
	}
	for name, stage := range s.Training {
		path := "training." + name
		if stage.Epochs <= 0 {
			return errors.Errorf("%s.epochs must be positive", path)
		}
		if stage.BatchSize <= 0 {
			return errors.Errorf("%s.batch_size must be positive", path)
		}
		if stage.ASDDatasetPath == "" {
			return errors.Errorf("%s.asd_dataset_path must be set", path)
		}
		if stage.Optimizer.LR <= 0 {
			return errors.Errorf("%s.optimizer.lr must be positive", path)
		}
	}
	if s.Local.NumWorkers < 0 {
		return errors.New("local.num_workers must not be negative")
	}
	if c := s.Local.Condor; c != nil {
		if c.NumGPUs < 0 || c.MemoryMB <= 0 {
			return errors.New("local.condor resource request is invalid")
		}
	}

	return nil
}

// StageOrder returns the training stage names ordered by index. Stages must
// be named stage_0, stage_1, ... without gaps.
func (s *TrainSettings) StageOrder() ([]string, error) {
	type stage struct {
		name string
		idx  int
	}
	stages := make([]stage, 0, len(s.Training))
	for name := range s.Training {
		numStr, ok := strings.CutPrefix(name, "stage_")
		if !ok {
			return nil, errors.Errorf("training stage %q is not named stage_<n>", name)
		}
		idx, err := strconv.Atoi(numStr)
		if err != nil {
			return nil, errors.Errorf("training stage %q is not named stage_<n>", name)
		}
		stages = append(stages, stage{name: name, idx: idx})
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i].idx < stages[j].idx })
	names := make([]string, len(stages))
	for i, st := range stages {
		if st.idx != i {
			return nil, errors.Errorf("training stages are not contiguous: missing stage_%d", i)
		}
		names[i] = st.name
	}

	return names, nil
}
