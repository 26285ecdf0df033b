// Package waveform generates frequency-domain gravitational waveforms of
// compact binary coalescences over a fixed domain grid.
package waveform

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"

	"github.com/dingo-gw/dingo/internal/domain"
)

// Physical constants (SI).
const (
	gravG  = 6.67430e-11
	lightC = 299792458.0
	mSunKG = 1.988409902147041e30
	mpcM   = 3.0856775814913673e22
)

// ErrGeneration marks a parameter set the waveform model cannot produce a
// waveform for, e.g. a binary merging below the band.
var ErrGeneration = errors.New("waveform generation failed")

// Polarizations are the two waveform polarizations over the full domain
// grid.
type Polarizations struct {
	Plus  []complex128
	Cross []complex128
}

// Generator produces frequency-domain polarizations for single parameter
// sets. Transform, when set, post-processes each generated waveform; dataset
// generation uses it to apply a fixed time shift.
type Generator struct {
	Approximant string
	Domain      *domain.FrequencyDomain
	FRef        float64
	Transform   func(Polarizations) (Polarizations, error)
}

// NewGenerator builds a generator. Only the stationary-phase inspiral
// approximant "TaylorF2" is supported.
func NewGenerator(approximant string, d *domain.FrequencyDomain, fRef float64) (*Generator, error) {
	if approximant != "TaylorF2" {
		return nil, errors.Errorf("unsupported approximant %q", approximant)
	}
	if fRef <= 0 {
		return nil, errors.New("f_ref must be positive")
	}

	return &Generator{Approximant: approximant, Domain: d, FRef: fRef}, nil
}

// Generate produces the polarizations for one parameter set. The map must
// contain mass_1, mass_2 (solar masses), luminosity_distance (Mpc),
// theta_jn, phase and geocent_time; missing entries are an error.
func (g *Generator) Generate(params map[string]float64) (Polarizations, error) {
	need := func(name string) (float64, error) {
		v, ok := params[name]
		if !ok {
			return 0, errors.Errorf("missing parameter %s", name)
		}

		return v, nil
	}

	m1, err := need("mass_1")
	if err != nil {
		return Polarizations{}, err
	}
	m2, err := need("mass_2")
	if err != nil {
		return Polarizations{}, err
	}
	dist, err := need("luminosity_distance")
	if err != nil {
		return Polarizations{}, err
	}
	thetaJN, err := need("theta_jn")
	if err != nil {
		return Polarizations{}, err
	}
	phase, err := need("phase")
	if err != nil {
		return Polarizations{}, err
	}
	tc, err := need("geocent_time")
	if err != nil {
		return Polarizations{}, err
	}
	if m1 <= 0 || m2 <= 0 || dist <= 0 {
		return Polarizations{}, errors.Wrap(ErrGeneration, "non-positive mass or distance")
	}

	totalKG := (m1 + m2) * mSunKG
	eta := m1 * m2 / ((m1 + m2) * (m1 + m2))
	chirpKG := totalKG * math.Pow(eta, 3.0/5.0)
	distM := dist * mpcM

	// Innermost stable circular orbit; the waveform is cut there.
	fISCO := lightC * lightC * lightC / (math.Pow(6, 1.5) * math.Pi * gravG * totalKG)
	if fISCO <= g.Domain.FMin() {
		return Polarizations{}, errors.Wrapf(ErrGeneration, "f_isco %.1f Hz below band", fISCO)
	}

	ampCoeff := math.Sqrt(5.0/24.0) * math.Pow(math.Pi, -2.0/3.0) *
		math.Pow(gravG*chirpKG/(lightC*lightC*lightC), 5.0/6.0) * lightC / distM
	cosTheta := math.Cos(thetaJN)
	plusFac := (1 + cosTheta*cosTheta) / 2
	crossFac := cosTheta

	n := g.Domain.Len()
	deltaF := g.Domain.DeltaF()
	fMin := g.Domain.FMin()
	out := Polarizations{
		Plus:  make([]complex128, n),
		Cross: make([]complex128, n),
	}
	for i := 0; i < n; i++ {
		f := float64(i) * deltaF
		if f < fMin || f > fISCO {
			continue
		}
		v := math.Cbrt(math.Pi * gravG * totalKG * f / (lightC * lightC * lightC))
		psi := 2*math.Pi*f*tc - 2*phase - math.Pi/4 + 3.0/(128.0*eta*math.Pow(v, 5))
		amp := ampCoeff * math.Pow(f, -7.0/6.0)
		h := complex(amp, 0) * cmplx.Exp(complex(0, psi))
		out.Plus[i] = complex(plusFac, 0) * h
		out.Cross[i] = complex(0, crossFac) * h
	}

	if g.Transform != nil {
		return g.Transform(out)
	}

	return out, nil
}
