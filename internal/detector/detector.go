// Package detector provides interferometer geometry: antenna response to the
// two waveform polarizations and the light travel time from the geocenter.
package detector

import (
	"math"

	"github.com/pkg/errors"
)

const lightC = 299792458.0

// Interferometer is a ground-based detector. The response tensor is
// d = (u u^T - v v^T) / 2 for unit arm vectors u, v.
type Interferometer struct {
	Name     string
	location [3]float64
	tensor   [3][3]float64
}

func newInterferometer(name string, location, xArm, yArm [3]float64) Interferometer {
	ifo := Interferometer{Name: name, location: location}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			ifo.tensor[i][j] = (xArm[i]*xArm[j] - yArm[i]*yArm[j]) / 2
		}
	}

	return ifo
}

var known = map[string]Interferometer{
	"H1": newInterferometer("H1",
		[3]float64{-2.16141492636e6, -3.83469517889e6, 4.60035022664e6},
		[3]float64{-0.22389266154, 0.79983062746, 0.55690487831},
		[3]float64{-0.91397818574, 0.02609403989, -0.40492342125}),
	"L1": newInterferometer("L1",
		[3]float64{-74276.0447238, -5.49628371971e6, 3.22425701744e6},
		[3]float64{-0.95457412153, -0.14158077340, -0.26218911324},
		[3]float64{0.29774156894, -0.48791033647, -0.82054461286}),
	"V1": newInterferometer("V1",
		[3]float64{4.54637409900e6, 842989.697626, 4.37857696241e6},
		[3]float64{-0.70045821479, 0.20848948619, 0.68256166277},
		[3]float64{-0.05379255368, -0.96908180549, 0.24080451708}),
}

// Get returns the named interferometer. H1, L1 and V1 are known.
func Get(name string) (Interferometer, error) {
	ifo, ok := known[name]
	if !ok {
		return Interferometer{}, errors.Errorf("unknown interferometer %q", name)
	}

	return ifo, nil
}

// Network resolves a list of interferometer names.
func Network(names []string) ([]Interferometer, error) {
	out := make([]Interferometer, len(names))
	for i, name := range names {
		ifo, err := Get(name)
		if err != nil {
			return nil, err
		}
		out[i] = ifo
	}

	return out, nil
}

// GMST converts a GPS time to Greenwich mean sidereal time in radians,
// using the Earth rotation angle linearization around the J2000 epoch.
func GMST(gps float64) float64 {
	days := (gps - 630763213.0) / 86400.0
	frac := 0.7790572732640 + 1.00273781191135448*days

	gmst := 2 * math.Pi * math.Mod(frac, 1)
	if gmst < 0 {
		gmst += 2 * math.Pi
	}

	return gmst
}

// AntennaPattern returns the response (F+, Fx) of the detector to a source
// at (ra, dec) with polarization angle psi at sidereal time gmst.
func (ifo Interferometer) AntennaPattern(ra, dec, psi, gmst float64) (float64, float64) {
	gha := gmst - ra

	cosGHA, sinGHA := math.Cos(gha), math.Sin(gha)
	cosDec, sinDec := math.Cos(dec), math.Sin(dec)
	cosPsi, sinPsi := math.Cos(psi), math.Sin(psi)

	x := [3]float64{
		-cosPsi*sinGHA - sinPsi*cosGHA*sinDec,
		-cosPsi*cosGHA + sinPsi*sinGHA*sinDec,
		sinPsi * cosDec,
	}
	y := [3]float64{
		sinPsi*sinGHA - cosPsi*cosGHA*sinDec,
		sinPsi*cosGHA + cosPsi*sinGHA*sinDec,
		cosPsi * cosDec,
	}

	var fPlus, fCross float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			d := ifo.tensor[i][j]
			fPlus += (x[i]*x[j] - y[i]*y[j]) * d
			fCross += (x[i]*y[j] + y[i]*x[j]) * d
		}
	}

	return fPlus, fCross
}

// TimeDelayFromGeocenter returns the arrival-time offset of a signal at the
// detector relative to the geocenter, in seconds.
func (ifo Interferometer) TimeDelayFromGeocenter(ra, dec, gmst float64) float64 {
	gha := gmst - ra
	e := [3]float64{
		math.Cos(dec) * math.Cos(gha),
		-math.Cos(dec) * math.Sin(gha),
		math.Sin(dec),
	}

	dot := 0.0
	for i := 0; i < 3; i++ {
		dot += ifo.location[i] * e[i]
	}

	return -dot / lightC
}
