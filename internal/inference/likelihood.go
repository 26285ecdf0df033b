package inference

import (
	"math"

	"github.com/pkg/errors"

	"github.com/dingo-gw/dingo/internal/detector"
	"github.com/dingo-gw/dingo/internal/event"
	"github.com/dingo-gw/dingo/internal/waveform"
)

// Likelihood is the Whittle likelihood of frequency-domain event data given
// a waveform model.
type Likelihood struct {
	Data    *event.DomainData
	Gen     *waveform.Generator
	Ifos    []detector.Interferometer
	RefTime float64
}

// Strains computes the per-detector signal model for one parameter set. The
// generator is evaluated at the luminosity distance in params, so no
// distance rescaling is applied here.
func (l *Likelihood) Strains(params map[string]float64) (map[string][]complex128, error) {
	pol, err := l.Gen.Generate(params)
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate signal model")
	}
	ra, ok := params["ra"]
	if !ok {
		return nil, errors.New("missing parameter ra")
	}
	dec, ok := params["dec"]
	if !ok {
		return nil, errors.New("missing parameter dec")
	}
	psi, ok := params["psi"]
	if !ok {
		return nil, errors.New("missing parameter psi")
	}
	geocentTime, ok := params["geocent_time"]
	if !ok {
		return nil, errors.New("missing parameter geocent_time")
	}

	gmst := detector.GMST(l.RefTime)
	out := make(map[string][]complex128, len(l.Ifos))
	for _, ifo := range l.Ifos {
		fPlus, fCross := ifo.AntennaPattern(ra, dec, psi, gmst)
		strain := make([]complex128, len(pol.Plus))
		for i := range strain {
			strain[i] = complex(fPlus, 0)*pol.Plus[i] + complex(fCross, 0)*pol.Cross[i]
		}
		dt := geocentTime + ifo.TimeDelayFromGeocenter(ra, dec, gmst)
		shifted, err := l.Data.Domain.TimeTranslate(strain, dt)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to time shift %s", ifo.Name)
		}
		out[ifo.Name] = shifted
	}

	return out, nil
}

// LogLikelihood evaluates the Whittle log likelihood kernel
//
//	-1/2 sum_ifo sum_f 4 delta_f |d - h|^2 / PSD
//
// over the bins inside the analysis band.
func (l *Likelihood) LogLikelihood(params map[string]float64) (float64, error) {
	model, err := l.Strains(params)
	if err != nil {
		return 0, err
	}

	mask := l.Data.Domain.FrequencyMask()
	deltaF := l.Data.Domain.DeltaF()
	total := 0.0
	for _, ifo := range l.Ifos {
		data, ok := l.Data.Strains[ifo.Name]
		if !ok {
			return 0, errors.Errorf("no event data for %s", ifo.Name)
		}
		asd, ok := l.Data.ASDs[ifo.Name]
		if !ok {
			return 0, errors.Errorf("no ASD for %s", ifo.Name)
		}
		h := model[ifo.Name]
		if len(data) != len(h) || len(asd) != len(h) {
			return 0, errors.Errorf("bin count mismatch for %s", ifo.Name)
		}
		for i := range data {
			if !mask[i] {
				continue
			}
			diff := data[i] - h[i]
			resid := real(diff)*real(diff) + imag(diff)*imag(diff)
			total += 4 * deltaF * resid / (asd[i] * asd[i])
		}
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return 0, errors.New("non-finite likelihood")
	}

	return -0.5 * total, nil
}
