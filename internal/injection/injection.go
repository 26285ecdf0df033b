// Package injection synthesizes event-shaped data from posterior samples:
// the maximum-likelihood sample is injected as a signal into the noise
// description of a real event, giving a consistency check for the whole
// analysis chain.
package injection

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dingo-gw/dingo/internal/dataset"
	"github.com/dingo-gw/dingo/internal/detector"
	"github.com/dingo-gw/dingo/internal/event"
	"github.com/dingo-gw/dingo/internal/inference"
	"github.com/dingo-gw/dingo/internal/result"
)

// ErrInconsistentInjection is returned when the synthesized strain does not
// resemble the event data it is injected into.
var ErrInconsistentInjection = errors.New("injection inconsistent with event data")

// strainStdTolerance is the allowed relative deviation between the whitened
// stds of the event strain and the injected strain, per detector.
const strainStdTolerance = 0.05

// BestSample returns the row with the highest log likelihood, or row 0 when
// the samples carry no likelihood column.
func BestSample(samples *result.Samples) (map[string]float64, error) {
	if samples.Table.Len() == 0 {
		return nil, errors.New("no samples to inject")
	}
	if !samples.Table.HasColumn("log_likelihood") {
		return samples.Table.Row(0), nil
	}
	logLike, err := samples.Table.Column("log_likelihood")
	if err != nil {
		return nil, err
	}
	best := 0
	for i, ll := range logLike {
		if ll > logLike[best] {
			best = i
		}
	}

	return samples.Table.Row(best), nil
}

// Make injects the maximum-likelihood sample into the noise description of
// eventData: the signal model replaces the measured strains, the ASDs are
// passed through unchanged.
func Make(meta inference.ModelMetadata, samples *result.Samples, eventData *event.DomainData, log *zap.Logger) (*event.DomainData, error) {
	params, err := BestSample(samples)
	if err != nil {
		return nil, err
	}

	d, err := meta.Domain()
	if err != nil {
		return nil, err
	}
	gen, err := meta.WaveformGenerator(d)
	if err != nil {
		return nil, err
	}
	ifos, err := detector.Network(meta.Train.Data.Detectors)
	if err != nil {
		return nil, err
	}
	like := &inference.Likelihood{
		Data:    eventData,
		Gen:     gen,
		Ifos:    ifos,
		RefTime: meta.Train.Data.RefTime,
	}
	strains, err := like.Strains(params)
	if err != nil {
		return nil, errors.Wrap(err, "unable to synthesize injection")
	}

	mask := eventData.Domain.FrequencyMask()
	noiseStd := eventData.Domain.NoiseStd()
	for _, ifo := range ifos {
		measured, ok := eventData.Strains[ifo.Name]
		if !ok {
			return nil, errors.Errorf("event data carries no strain for %s", ifo.Name)
		}
		asd, ok := eventData.ASDs[ifo.Name]
		if !ok {
			return nil, errors.Errorf("event data carries no ASD for %s", ifo.Name)
		}
		stdEventRe, stdEventIm, err := whitenedStd(measured, asd, mask, noiseStd)
		if err != nil {
			return nil, errors.Wrapf(err, "event strain of %s", ifo.Name)
		}
		stdInjRe, stdInjIm, err := whitenedStd(strains[ifo.Name], asd, mask, noiseStd)
		if err != nil {
			return nil, errors.Wrapf(err, "injected strain of %s", ifo.Name)
		}
		if stdEventRe == 0 || stdEventIm == 0 {
			return nil, errors.Wrapf(ErrInconsistentInjection, "%s event strain has zero whitened std", ifo.Name)
		}
		ratioRe := stdInjRe / stdEventRe
		ratioIm := stdInjIm / stdEventIm
		log.Debug("injection consistency",
			zap.String("detector", ifo.Name),
			zap.Float64("std_ratio_re", ratioRe),
			zap.Float64("std_ratio_im", ratioIm))
		if math.Abs(ratioRe-1) > strainStdTolerance || math.Abs(ratioIm-1) > strainStdTolerance {
			return nil, errors.Wrapf(ErrInconsistentInjection,
				"%s whitened std ratios %.3f/%.3f", ifo.Name, ratioRe, ratioIm)
		}
	}

	out := &event.DomainData{
		Domain:  eventData.Domain,
		Strains: strains,
		ASDs:    make(map[string][]float64, len(eventData.ASDs)),
	}
	for det, asd := range eventData.ASDs {
		out.ASDs[det] = append([]float64{}, asd...)
	}
	log.Info("injection synthesized",
		zap.Float64("mass_1", params["mass_1"]),
		zap.Float64("mass_2", params["mass_2"]),
		zap.Float64("luminosity_distance", params["luminosity_distance"]))

	return out, nil
}

// whitenedStd is the standard deviation of the whitened strain over the
// analysis band, for the real and imaginary parts separately.
func whitenedStd(strain []complex128, asd []float64, mask []bool, noiseStd float64) (float64, float64, error) {
	if len(strain) != len(asd) || len(strain) != len(mask) {
		return 0, 0, errors.Errorf("bin count mismatch: %d strain, %d asd, %d mask",
			len(strain), len(asd), len(mask))
	}
	var re, im []float64
	for i := range strain {
		if !mask[i] {
			continue
		}
		scale := asd[i] * noiseStd
		if scale == 0 {
			return 0, 0, errors.Errorf("zero ASD in bin %d", i)
		}
		re = append(re, real(strain[i])/scale)
		im = append(im, imag(strain[i])/scale)
	}
	if len(re) == 0 {
		return 0, 0, errors.New("analysis band is empty")
	}

	return std(re), std(im), nil
}

func std(values []float64) float64 {
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}

	return math.Sqrt(ss / float64(len(values)))
}

// Save persists an injection as an event-shaped dataset file.
func Save(path string, data *event.DomainData) error {
	f, err := dataset.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.PutSettings("injection/domain", data.Domain.Settings()); err != nil {
		return err
	}
	for det, strain := range data.Strains {
		if err := f.PutComplexMatrix("injection/strain/"+det, [][]complex128{strain}); err != nil {
			return err
		}
	}
	for det, asd := range data.ASDs {
		if err := f.PutFloatMatrix("injection/asd/"+det, [][]float64{asd}); err != nil {
			return err
		}
	}

	return nil
}
