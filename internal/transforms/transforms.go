// Package transforms provides the data transforms that turn waveform
// polarizations into detector strains: extrinsic parameter sampling,
// detector arrival times, antenna projection, whitening and basis
// compression.
package transforms

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"github.com/dingo-gw/dingo/internal/detector"
	"github.com/dingo-gw/dingo/internal/domain"
	"github.com/dingo-gw/dingo/internal/prior"
	"github.com/dingo-gw/dingo/internal/svd"
	"github.com/dingo-gw/dingo/internal/waveform"
)

// Sample is one unit of data flowing through a transform chain.
type Sample struct {
	// Parameters are the intrinsic parameters the polarizations were
	// generated with.
	Parameters map[string]float64
	// Extrinsic holds sampled extrinsic parameters and derived per-detector
	// times ("<ifo>_time").
	Extrinsic map[string]float64
	// Polarizations are consumed by projection and replaced by Strains.
	Polarizations waveform.Polarizations
	// Strains maps detector name to projected strain.
	Strains map[string][]complex128
	// ASDs maps detector name to amplitude spectral density.
	ASDs map[string][]float64
	// Coefficients maps detector name to basis coefficients after
	// compression.
	Coefficients map[string][]float64
}

// Transform maps a sample to a transformed sample.
type Transform interface {
	Apply(s Sample) (Sample, error)
}

// Chain applies transforms in order.
type Chain []Transform

func (c Chain) Apply(s Sample) (Sample, error) {
	var err error
	for i, t := range c {
		s, err = t.Apply(s)
		if err != nil {
			return Sample{}, errors.Wrapf(err, "transform %d", i)
		}
	}

	return s, nil
}

// SampleExtrinsicParameters draws extrinsic parameters from a prior and
// stores them on the sample.
type SampleExtrinsicParameters struct {
	Prior *prior.Dict
	Rand  *rand.Rand
}

func (t SampleExtrinsicParameters) Apply(s Sample) (Sample, error) {
	s.Extrinsic = t.Prior.SampleOne(t.Rand)

	return s, nil
}

// GetDetectorTimes derives the per-detector arrival times from the sampled
// sky position and coalescence time.
type GetDetectorTimes struct {
	Ifos    []detector.Interferometer
	RefTime float64
}

func (t GetDetectorTimes) Apply(s Sample) (Sample, error) {
	ra, ok := s.Extrinsic["ra"]
	if !ok {
		return Sample{}, errors.New("missing extrinsic parameter ra")
	}
	dec, ok := s.Extrinsic["dec"]
	if !ok {
		return Sample{}, errors.New("missing extrinsic parameter dec")
	}
	geocentTime, ok := s.Extrinsic["geocent_time"]
	if !ok {
		return Sample{}, errors.New("missing extrinsic parameter geocent_time")
	}

	gmst := detector.GMST(t.RefTime)
	for _, ifo := range t.Ifos {
		delay := ifo.TimeDelayFromGeocenter(ra, dec, gmst)
		s.Extrinsic[ifo.Name+"_time"] = geocentTime + delay
	}

	return s, nil
}

// ProjectOntoDetectors combines the polarizations into per-detector strains:
// antenna response weighting, distance rescaling relative to the generation
// distance, and the time shift to the detector arrival time.
type ProjectOntoDetectors struct {
	Ifos    []detector.Interferometer
	Domain  *domain.FrequencyDomain
	RefTime float64
	// RefDistance is the fixed luminosity distance the polarizations were
	// generated at.
	RefDistance float64
}

func (t ProjectOntoDetectors) Apply(s Sample) (Sample, error) {
	ra, ok := s.Extrinsic["ra"]
	if !ok {
		return Sample{}, errors.New("missing extrinsic parameter ra")
	}
	dec, ok := s.Extrinsic["dec"]
	if !ok {
		return Sample{}, errors.New("missing extrinsic parameter dec")
	}
	psi, ok := s.Extrinsic["psi"]
	if !ok {
		return Sample{}, errors.New("missing extrinsic parameter psi")
	}
	dist, ok := s.Extrinsic["luminosity_distance"]
	if !ok {
		return Sample{}, errors.New("missing extrinsic parameter luminosity_distance")
	}
	if dist <= 0 {
		return Sample{}, errors.Errorf("non-positive luminosity_distance %g", dist)
	}

	scale := complex(t.RefDistance/dist, 0)
	gmst := detector.GMST(t.RefTime)
	s.Strains = make(map[string][]complex128, len(t.Ifos))
	for _, ifo := range t.Ifos {
		ifoTime, ok := s.Extrinsic[ifo.Name+"_time"]
		if !ok {
			return Sample{}, errors.Errorf("missing detector time for %s", ifo.Name)
		}
		fPlus, fCross := ifo.AntennaPattern(ra, dec, psi, gmst)
		strain := make([]complex128, len(s.Polarizations.Plus))
		for i := range strain {
			strain[i] = scale * (complex(fPlus, 0)*s.Polarizations.Plus[i] +
				complex(fCross, 0)*s.Polarizations.Cross[i])
		}
		shifted, err := t.Domain.TimeTranslate(strain, ifoTime)
		if err != nil {
			return Sample{}, errors.Wrapf(err, "unable to time shift %s", ifo.Name)
		}
		s.Strains[ifo.Name] = shifted
	}
	// parameters after projection are the union of both sets
	merged := make(map[string]float64, len(s.Parameters)+len(s.Extrinsic))
	for k, v := range s.Parameters {
		merged[k] = v
	}
	for k, v := range s.Extrinsic {
		merged[k] = v
	}
	merged["luminosity_distance"] = dist
	s.Parameters = merged

	return s, nil
}

// WhitenAndScale divides each strain by its ASD and the white-noise scale of
// the domain.
type WhitenAndScale struct {
	Domain *domain.FrequencyDomain
}

func (t WhitenAndScale) Apply(s Sample) (Sample, error) {
	noiseStd := t.Domain.NoiseStd()
	out := make(map[string][]complex128, len(s.Strains))
	for name, strain := range s.Strains {
		asd, ok := s.ASDs[name]
		if !ok {
			return Sample{}, errors.Errorf("missing ASD for %s", name)
		}
		if len(asd) != len(strain) {
			return Sample{}, errors.Errorf("ASD of %s has %d bins, strain has %d", name, len(asd), len(strain))
		}
		whitened := make([]complex128, len(strain))
		for i := range strain {
			whitened[i] = strain[i] / complex(asd[i]*noiseStd, 0)
		}
		out[name] = whitened
	}
	s.Strains = out

	return s, nil
}

// ApplySVD compresses strains to basis coefficients, or decompresses
// coefficients back to strains.
type ApplySVD struct {
	Basis      *svd.Basis
	Decompress bool
}

func (t ApplySVD) Apply(s Sample) (Sample, error) {
	if t.Decompress {
		s.Strains = make(map[string][]complex128, len(s.Coefficients))
		for name, coeffs := range s.Coefficients {
			strain, err := t.Basis.Decompress(coeffs)
			if err != nil {
				return Sample{}, errors.Wrapf(err, "unable to decompress %s", name)
			}
			s.Strains[name] = strain
		}
		s.Coefficients = nil

		return s, nil
	}

	s.Coefficients = make(map[string][]float64, len(s.Strains))
	for name, strain := range s.Strains {
		coeffs, err := t.Basis.Compress(strain)
		if err != nil {
			return Sample{}, errors.Wrapf(err, "unable to compress %s", name)
		}
		s.Coefficients[name] = coeffs
	}

	return s, nil
}
