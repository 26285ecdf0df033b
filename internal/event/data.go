package event

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/dingo-gw/dingo/internal/config"
	"github.com/dingo-gw/dingo/internal/domain"
)

// DomainData is the frequency-domain form of an event, truncated to the
// analysis domain.
type DomainData struct {
	Domain  *domain.FrequencyDomain
	Strains map[string][]complex128
	ASDs    map[string][]float64
}

// newTukey returns the Tukey window of length n as an amplitude array.
func newTukey(n int, alpha float64) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}

	return window.Tukey{Alpha: alpha}.Transform(w)
}

// windowFactor is the mean squared amplitude of the window, correcting the
// power loss it introduces.
func windowFactor(w []float64) float64 {
	total := 0.0
	for _, v := range w {
		total += v * v
	}

	return total / float64(len(w))
}

// welchPSD estimates the one-sided PSD of a time series by averaging
// windowed periodograms over 50%-overlapping segments of length T*f_s.
func welchPSD(series []float64, ws config.WindowSettings) ([]float64, error) {
	n := int(math.Round(ws.T * ws.FS))
	if n <= 0 || len(series) < n {
		return nil, errors.Errorf("series has %d samples, segment needs %d", len(series), n)
	}
	alpha := 2 * ws.RollOff / ws.T
	hop := n / 2
	fft := fourier.NewFFT(n)
	nBins := n/2 + 1
	psd := make([]float64, nBins)
	segments := 0
	buf := make([]float64, n)
	coeffs := make([]complex128, nBins)
	w := newTukey(n, alpha)
	wf := windowFactor(w)
	for start := 0; start+n <= len(series); start += hop {
		copy(buf, series[start:start+n])
		for i := range buf {
			buf[i] *= w[i]
		}
		coeffs = fft.Coefficients(coeffs, buf)
		for i, c := range coeffs {
			p := real(c)*real(c) + imag(c)*imag(c)
			psd[i] += 2 * p / (ws.FS * float64(n) * wf)
		}
		segments++
	}
	for i := range psd {
		psd[i] /= float64(segments)
	}

	return psd, nil
}

// ToDomain converts raw event data to the analysis domain: Tukey window,
// real FFT scaled to a continuous transform, time shift undoing the buffer
// after the trigger, truncation to the domain grid, and ASDs from the PSDs
// floored below f_min.
func ToDomain(raw *RawData, d *domain.FrequencyDomain) (*DomainData, error) {
	ws := raw.Settings.Window
	n := int(math.Round(ws.T * ws.FS))
	if fullDeltaF := 1 / ws.T; math.Abs(fullDeltaF-d.DeltaF()) > 1e-12 {
		return nil, errors.Errorf("segment delta_f %g does not match domain delta_f %g", fullDeltaF, d.DeltaF())
	}
	if nyquist := ws.FS / 2; d.FMax() > nyquist {
		return nil, errors.Errorf("domain f_max %g exceeds Nyquist %g", d.FMax(), nyquist)
	}

	alpha := 2 * ws.RollOff / ws.T
	w := newTukey(n, alpha)
	d.SetWindowFactor(windowFactor(w))

	fft := fourier.NewFFT(n)
	dt := 1 / ws.FS

	out := &DomainData{
		Domain:  d,
		Strains: make(map[string][]complex128, len(raw.Strains)),
		ASDs:    make(map[string][]float64, len(raw.PSDs)),
	}
	buf := make([]float64, n)
	for det, series := range raw.Strains {
		if len(series) != n {
			return nil, errors.Errorf("strain of %s has %d samples, expected %d", det, len(series), n)
		}
		copy(buf, series)
		for i := range buf {
			buf[i] *= w[i]
		}
		coeffs := fft.Coefficients(nil, buf)
		for i := range coeffs {
			coeffs[i] *= complex(dt, 0)
		}
		// the trigger sits time_buffer before the segment end; shift it to
		// the nominal epoch
		full, err := domainFromSegment(ws).TimeTranslate(coeffs, raw.Settings.TimeBuffer)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to time shift %s", det)
		}
		strain, err := domain.Truncate(d, full)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to truncate strain of %s", det)
		}
		out.Strains[det] = strain
	}
	for det, psd := range raw.PSDs {
		truncated, err := domain.Truncate(d, psd)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to truncate PSD of %s", det)
		}
		asd := make([]float64, len(truncated))
		for i, p := range truncated {
			asd[i] = math.Sqrt(p)
		}
		asd, err = d.Update(asd, 1.0)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to floor ASD of %s", det)
		}
		out.ASDs[det] = asd
	}

	return out, nil
}

// domainFromSegment is the full FFT grid of a segment, used for the time
// shift before truncation.
func domainFromSegment(ws config.WindowSettings) *domain.FrequencyDomain {
	d, _ := domain.NewFrequencyDomain(0.0, ws.FS/2, 1/ws.T)

	return d
}
