package prior

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DefaultMarker in a prior settings map resolves to the default prior of the
// parameter.
const DefaultMarker = "default"

// DefaultIntrinsic returns the default intrinsic prior: component masses,
// aligned spins, inclination, coalescence phase, and reference values for
// the extrinsic parameters fixed during waveform generation.
func DefaultIntrinsic() map[string]Distribution {
	return map[string]Distribution{
		"mass_1":              Uniform{Min: 10, Max: 80},
		"mass_2":              Uniform{Min: 10, Max: 80},
		"chi_1":               Uniform{Min: -0.99, Max: 0.99},
		"chi_2":               Uniform{Min: -0.99, Max: 0.99},
		"theta_jn":            Sine{},
		"phase":               Uniform{Min: 0, Max: 2 * math.Pi},
		"luminosity_distance": Delta{V: 100},
		"geocent_time":        Delta{V: 0},
	}
}

// DefaultExtrinsic returns the default extrinsic prior: sky position,
// polarization, distance and coalescence time offset.
func DefaultExtrinsic() map[string]Distribution {
	return map[string]Distribution{
		"ra":                  Uniform{Min: 0, Max: 2 * math.Pi},
		"dec":                 Cosine{},
		"psi":                 Uniform{Min: 0, Max: math.Pi},
		"luminosity_distance": PowerLaw{Alpha: 2, Min: 100, Max: 6000},
		"geocent_time":        Uniform{Min: -0.1, Max: 0.1},
	}
}

// Parse parses a single prior settings string, e.g.
//
//	Uniform(minimum=10.0, maximum=80.0)
//	Sine()
//	PowerLaw(alpha=2.0, minimum=100.0, maximum=1000.0)
//	Delta(20.0)
func Parse(spec string) (Distribution, error) {
	spec = strings.TrimSpace(spec)
	open := strings.Index(spec, "(")
	if open < 0 || !strings.HasSuffix(spec, ")") {
		return nil, errors.Errorf("malformed prior %q", spec)
	}
	name := strings.TrimSpace(spec[:open])
	args, err := parseArgs(spec[open+1 : len(spec)-1])
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse arguments of %q", spec)
	}

	switch name {
	case "Uniform":
		minimum, maximum, err := rangeArgs(args)
		if err != nil {
			return nil, errors.Wrapf(err, "prior %q", spec)
		}

		return Uniform{Min: minimum, Max: maximum}, nil
	case "Sine":
		return Sine{}, nil
	case "Cosine":
		return Cosine{}, nil
	case "Normal", "Gaussian":
		mu, okMu := args.named["mu"]
		sigma, okSigma := args.named["sigma"]
		if !okMu || !okSigma {
			return nil, errors.Errorf("prior %q needs mu and sigma", spec)
		}

		return Normal{Mu: mu, Sigma: sigma}, nil
	case "PowerLaw":
		alpha, ok := args.named["alpha"]
		if !ok {
			return nil, errors.Errorf("prior %q needs alpha", spec)
		}
		if alpha == -1 {
			return nil, errors.Errorf("prior %q: alpha=-1 is not supported", spec)
		}
		minimum, maximum, err := rangeArgs(args)
		if err != nil {
			return nil, errors.Wrapf(err, "prior %q", spec)
		}

		return PowerLaw{Alpha: alpha, Min: minimum, Max: maximum}, nil
	case "Delta":
		if len(args.positional) == 1 {
			return Delta{V: args.positional[0]}, nil
		}
		if v, ok := args.named["value"]; ok {
			return Delta{V: v}, nil
		}

		return nil, errors.Errorf("prior %q needs a value", spec)
	default:
		return nil, errors.Errorf("unknown prior %q", name)
	}
}

// BuildDictWithDefaults resolves a settings map against defaults, the way
// dataset and training configs specify priors: a "default" entry picks the
// default prior of the parameter, anything else is parsed as a prior string.
func BuildDictWithDefaults(settings map[string]string, defaults map[string]Distribution) (*Dict, error) {
	dists := make(map[string]Distribution, len(settings))
	for name, spec := range settings {
		if strings.EqualFold(strings.TrimSpace(spec), DefaultMarker) {
			dist, ok := defaults[name]
			if !ok {
				return nil, errors.Errorf("parameter %s has no default prior", name)
			}
			dists[name] = dist

			continue
		}
		dist, err := Parse(spec)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %s", name)
		}
		dists[name] = dist
	}

	return NewDict(dists), nil
}

type argList struct {
	positional []float64
	named      map[string]float64
}

func rangeArgs(args argList) (float64, float64, error) {
	minimum, okMin := args.named["minimum"]
	maximum, okMax := args.named["maximum"]
	if !okMin || !okMax {
		return 0, 0, errors.New("needs minimum and maximum")
	}
	if maximum <= minimum {
		return 0, 0, errors.Errorf("empty range [%g, %g]", minimum, maximum)
	}

	return minimum, maximum, nil
}

func parseArgs(s string) (argList, error) {
	args := argList{named: make(map[string]float64)}
	s = strings.TrimSpace(s)
	if s == "" {
		return args, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if key, value, found := strings.Cut(part, "="); found {
			v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return args, errors.Wrapf(err, "argument %q", part)
			}
			args.named[strings.TrimSpace(key)] = v

			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return args, errors.Wrapf(err, "argument %q", part)
		}
		args.positional = append(args.positional, v)
	}

	return args, nil
}
