// Package prior provides the one-dimensional priors of the waveform
// parameter space, the default intrinsic and extrinsic dictionaries, and the
// parsing of prior settings strings from dataset and training configs.
package prior

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Distribution is a one-dimensional prior.
type Distribution interface {
	// Sample draws one value.
	Sample(rnd *rand.Rand) float64
	// LogProb evaluates the log density at x.
	LogProb(x float64) float64
}

// Uniform is a flat prior on [Min, Max].
type Uniform struct {
	Min, Max float64
}

func (u Uniform) Sample(rnd *rand.Rand) float64 {
	return distuv.Uniform{Min: u.Min, Max: u.Max, Src: rnd}.Rand()
}

func (u Uniform) LogProb(x float64) float64 {
	if x < u.Min || x > u.Max {
		return math.Inf(-1)
	}

	return -math.Log(u.Max - u.Min)
}

// Normal is a Gaussian prior.
type Normal struct {
	Mu, Sigma float64
}

func (n Normal) Sample(rnd *rand.Rand) float64 {
	return distuv.Normal{Mu: n.Mu, Sigma: n.Sigma, Src: rnd}.Rand()
}

func (n Normal) LogProb(x float64) float64 {
	return distuv.Normal{Mu: n.Mu, Sigma: n.Sigma}.LogProb(x)
}

// Sine is the isotropic prior p(x) = sin(x)/2 on [0, pi], used for
// inclination-like angles. Sampling inverts the CDF (1-cos(x))/2.
type Sine struct{}

func (Sine) Sample(rnd *rand.Rand) float64 {
	u := distuv.Uniform{Min: 0, Max: 1, Src: rnd}.Rand()

	return math.Acos(1 - 2*u)
}

func (Sine) LogProb(x float64) float64 {
	if x < 0 || x > math.Pi {
		return math.Inf(-1)
	}

	return math.Log(math.Sin(x) / 2)
}

// Cosine is the isotropic prior p(x) = cos(x)/2 on [-pi/2, pi/2], used for
// declination. Sampling inverts the CDF (1+sin(x))/2.
type Cosine struct{}

func (Cosine) Sample(rnd *rand.Rand) float64 {
	u := distuv.Uniform{Min: 0, Max: 1, Src: rnd}.Rand()

	return math.Asin(2*u - 1)
}

func (Cosine) LogProb(x float64) float64 {
	if x < -math.Pi/2 || x > math.Pi/2 {
		return math.Inf(-1)
	}

	return math.Log(math.Cos(x) / 2)
}

// PowerLaw is p(x) proportional to x^Alpha on [Min, Max]. Alpha = -1 is not
// supported by the inverse-CDF used here and is rejected at parse time.
type PowerLaw struct {
	Alpha    float64
	Min, Max float64
}

func (p PowerLaw) Sample(rnd *rand.Rand) float64 {
	u := distuv.Uniform{Min: 0, Max: 1, Src: rnd}.Rand()
	a1 := p.Alpha + 1
	lo := math.Pow(p.Min, a1)
	hi := math.Pow(p.Max, a1)

	return math.Pow(lo+u*(hi-lo), 1/a1)
}

func (p PowerLaw) LogProb(x float64) float64 {
	if x < p.Min || x > p.Max {
		return math.Inf(-1)
	}
	a1 := p.Alpha + 1
	norm := a1 / (math.Pow(p.Max, a1) - math.Pow(p.Min, a1))

	return p.Alpha*math.Log(x) + math.Log(norm)
}

// Delta is a point mass at V.
type Delta struct {
	V float64
}

func (d Delta) Sample(*rand.Rand) float64 { return d.V }

func (d Delta) LogProb(x float64) float64 {
	if x == d.V {
		return 0
	}

	return math.Inf(-1)
}
