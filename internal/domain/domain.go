// Package domain provides the physical domains waveform data lives on.
//
// Waveforms and detector strains are defined over a uniform grid of
// frequencies from 0 Hz to f_max, truncated to [f_min, f_max] when fed to a
// network. Settings maps carry the domain between dataset, model and
// inference stages.
package domain

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
)

// ErrUnsupportedDomain is returned when a settings map names a domain type
// this build does not implement.
var ErrUnsupportedDomain = errors.New("unsupported domain type")

// TypeFrequencyDomain is the only domain type implemented.
const TypeFrequencyDomain = "FrequencyDomain"

// Settings is the serialized form of a domain.
type Settings struct {
	Type         string  `yaml:"type"`
	FMin         float64 `yaml:"f_min"`
	FMax         float64 `yaml:"f_max"`
	DeltaF       float64 `yaml:"delta_f"`
	WindowFactor float64 `yaml:"window_factor,omitempty"`
}

// FrequencyDomain is a uniform grid of frequencies [0, f_max] with spacing
// delta_f. Data arrays over the domain always cover the full grid starting at
// 0 Hz; the band below f_min is kept so that bins line up with FFT output.
type FrequencyDomain struct {
	fMin, fMax, deltaF float64
	windowFactor       float64
}

// NewFrequencyDomain builds a frequency domain.
func NewFrequencyDomain(fMin, fMax, deltaF float64) (*FrequencyDomain, error) {
	if deltaF <= 0 {
		return nil, errors.New("delta_f must be positive")
	}
	if fMin < 0 || fMax <= fMin {
		return nil, errors.Errorf("invalid band [%g, %g]", fMin, fMax)
	}

	return &FrequencyDomain{fMin: fMin, fMax: fMax, deltaF: deltaF, windowFactor: 1.0}, nil
}

// Build constructs a domain from its settings. Only FrequencyDomain is
// supported; anything else returns ErrUnsupportedDomain.
func Build(s Settings) (*FrequencyDomain, error) {
	if s.Type != TypeFrequencyDomain {
		return nil, errors.Wrap(ErrUnsupportedDomain, s.Type)
	}
	d, err := NewFrequencyDomain(s.FMin, s.FMax, s.DeltaF)
	if err != nil {
		return nil, err
	}
	if s.WindowFactor > 0 {
		d.windowFactor = s.WindowFactor
	}

	return d, nil
}

// Settings returns the serialized form of the domain.
func (d *FrequencyDomain) Settings() Settings {
	return Settings{
		Type:         TypeFrequencyDomain,
		FMin:         d.fMin,
		FMax:         d.fMax,
		DeltaF:       d.deltaF,
		WindowFactor: d.windowFactor,
	}
}

func (d *FrequencyDomain) FMin() float64   { return d.fMin }
func (d *FrequencyDomain) FMax() float64   { return d.fMax }
func (d *FrequencyDomain) DeltaF() float64 { return d.deltaF }

// WindowFactor is the power-loss correction of the time-domain window that
// produced the data.
func (d *FrequencyDomain) WindowFactor() float64 { return d.windowFactor }

// SetWindowFactor records the window factor of the preprocessing window.
func (d *FrequencyDomain) SetWindowFactor(w float64) { d.windowFactor = w }

// Len is the number of bins of the full grid [0, f_max].
func (d *FrequencyDomain) Len() int {
	return int(math.Round(d.fMax/d.deltaF)) + 1
}

// MinIdx is the first bin inside the band.
func (d *FrequencyDomain) MinIdx() int {
	return int(math.Round(d.fMin / d.deltaF))
}

// SampleFrequencies returns the full frequency grid.
func (d *FrequencyDomain) SampleFrequencies() []float64 {
	out := make([]float64, d.Len())
	for i := range out {
		out[i] = float64(i) * d.deltaF
	}

	return out
}

// FrequencyMask reports which bins of the full grid lie inside [f_min, f_max].
func (d *FrequencyDomain) FrequencyMask() []bool {
	out := make([]bool, d.Len())
	for i := range out {
		out[i] = float64(i)*d.deltaF >= d.fMin
	}

	return out
}

// NoiseStd is the standard deviation of white noise per bin after whitening,
// including the window power-loss correction.
func (d *FrequencyDomain) NoiseStd() float64 {
	return math.Sqrt(d.windowFactor) / math.Sqrt(4.0*d.deltaF)
}

// Truncate cuts a full-resolution array down to this domain's grid. The
// input must cover at least Len bins.
func Truncate[T any](d *FrequencyDomain, data []T) ([]T, error) {
	if len(data) < d.Len() {
		return nil, errors.Errorf("data has %d bins, domain needs %d", len(data), d.Len())
	}

	return data[:d.Len()], nil
}

// Update returns a copy of data with every bin below f_min replaced by
// lowValue.
func (d *FrequencyDomain) Update(data []float64, lowValue float64) ([]float64, error) {
	if len(data) != d.Len() {
		return nil, errors.Errorf("data has %d bins, domain has %d", len(data), d.Len())
	}
	out := make([]float64, len(data))
	minIdx := d.MinIdx()
	for i, v := range data {
		if i < minIdx {
			out[i] = lowValue
		} else {
			out[i] = v
		}
	}

	return out, nil
}

// TimeTranslate shifts data in time by dt seconds, multiplying each bin by
// exp(-2 pi i f dt).
func (d *FrequencyDomain) TimeTranslate(data []complex128, dt float64) ([]complex128, error) {
	if len(data) != d.Len() {
		return nil, errors.Errorf("data has %d bins, domain has %d", len(data), d.Len())
	}
	out := make([]complex128, len(data))
	for i, v := range data {
		f := float64(i) * d.deltaF
		out[i] = v * cmplx.Exp(complex(0, -2*math.Pi*f*dt))
	}

	return out, nil
}
