package transforms_test

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/dingo-gw/dingo/internal/detector"
	"github.com/dingo-gw/dingo/internal/domain"
	"github.com/dingo-gw/dingo/internal/prior"
	"github.com/dingo-gw/dingo/internal/svd"
	"github.com/dingo-gw/dingo/internal/transforms"
	"github.com/dingo-gw/dingo/internal/waveform"
)

func testDomain(t *testing.T) *domain.FrequencyDomain {
	t.Helper()
	d, err := domain.NewFrequencyDomain(20, 64, 1)
	require.NoError(t, err)

	return d
}

func testSample(t *testing.T, d *domain.FrequencyDomain) transforms.Sample {
	t.Helper()
	plus := make([]complex128, d.Len())
	cross := make([]complex128, d.Len())
	for i := d.MinIdx(); i < len(plus); i++ {
		plus[i] = complex(1, 0.5)
		cross[i] = complex(0.3, -0.2)
	}

	return transforms.Sample{
		Parameters:    map[string]float64{"mass_1": 35, "mass_2": 30},
		Polarizations: waveform.Polarizations{Plus: plus, Cross: cross},
	}
}

func extrinsicDict(t *testing.T) *prior.Dict {
	t.Helper()
	dict, err := prior.BuildDictWithDefaults(map[string]string{
		"ra":                  "default",
		"dec":                 "default",
		"psi":                 "default",
		"luminosity_distance": "default",
		"geocent_time":        "default",
	}, prior.DefaultExtrinsic())
	require.NoError(t, err)

	return dict
}

func TestSampleExtrinsicParameters(t *testing.T) {
	t.Parallel()

	tr := transforms.SampleExtrinsicParameters{
		Prior: extrinsicDict(t),
		Rand:  rand.New(rand.NewSource(1)),
	}
	out, err := tr.Apply(transforms.Sample{})
	require.NoError(t, err)
	for _, name := range []string{"ra", "dec", "psi", "luminosity_distance", "geocent_time"} {
		assert.Contains(t, out.Extrinsic, name)
	}
}

func TestGetDetectorTimes(t *testing.T) {
	t.Parallel()

	ifos, err := detector.Network([]string{"H1", "L1"})
	require.NoError(t, err)

	tr := transforms.GetDetectorTimes{Ifos: ifos, RefTime: 1126259462.4}
	s := transforms.Sample{Extrinsic: map[string]float64{
		"ra": 1.0, "dec": 0.3, "geocent_time": 0.01,
	}}
	out, err := tr.Apply(s)
	require.NoError(t, err)
	require.Contains(t, out.Extrinsic, "H1_time")
	require.Contains(t, out.Extrinsic, "L1_time")
	// delays stay within light travel time from the geocenter
	assert.InDelta(t, 0.01, out.Extrinsic["H1_time"], 0.022)

	_, err = tr.Apply(transforms.Sample{Extrinsic: map[string]float64{"ra": 1}})
	assert.Error(t, err)
}

func TestProjectOntoDetectors(t *testing.T) {
	t.Parallel()

	d := testDomain(t)
	ifos, err := detector.Network([]string{"H1"})
	require.NoError(t, err)

	chain := transforms.Chain{
		transforms.GetDetectorTimes{Ifos: ifos, RefTime: 1126259462.4},
		transforms.ProjectOntoDetectors{
			Ifos:        ifos,
			Domain:      d,
			RefTime:     1126259462.4,
			RefDistance: 100,
		},
	}
	s := testSample(t, d)
	s.Extrinsic = map[string]float64{
		"ra": 1.0, "dec": 0.3, "psi": 0.4,
		"luminosity_distance": 200, "geocent_time": 0,
	}
	out, err := chain.Apply(s)
	require.NoError(t, err)
	require.Contains(t, out.Strains, "H1")
	require.Len(t, out.Strains["H1"], d.Len())

	// merged parameters carry the sampled distance
	assert.Equal(t, 200.0, out.Parameters["luminosity_distance"])
	assert.Equal(t, 35.0, out.Parameters["mass_1"])

	// doubling the distance halves the strain
	s2 := testSample(t, d)
	s2.Extrinsic = map[string]float64{
		"ra": 1.0, "dec": 0.3, "psi": 0.4,
		"luminosity_distance": 400, "geocent_time": 0,
	}
	out2, err := chain.Apply(s2)
	require.NoError(t, err)
	i := d.MinIdx() + 3
	ratio := cmplx.Abs(out.Strains["H1"][i]) / cmplx.Abs(out2.Strains["H1"][i])
	assert.InDelta(t, 2.0, ratio, 1e-9)
}

func TestWhitenAndScale(t *testing.T) {
	t.Parallel()

	d := testDomain(t)
	strain := make([]complex128, d.Len())
	asd := make([]float64, d.Len())
	for i := range strain {
		strain[i] = complex(4, 0)
		asd[i] = 2
	}
	tr := transforms.WhitenAndScale{Domain: d}
	out, err := tr.Apply(transforms.Sample{
		Strains: map[string][]complex128{"H1": strain},
		ASDs:    map[string][]float64{"H1": asd},
	})
	require.NoError(t, err)
	want := complex(4/(2*d.NoiseStd()), 0)
	assert.InDelta(t, real(want), real(out.Strains["H1"][5]), 1e-12)

	_, err = tr.Apply(transforms.Sample{
		Strains: map[string][]complex128{"H1": strain},
	})
	assert.Error(t, err)
}

func TestApplySVDRoundTrip(t *testing.T) {
	t.Parallel()

	d := testDomain(t)
	// train on strains spanning a tiny space so the basis is exact
	waveforms := make([][]complex128, 8)
	for n := range waveforms {
		wf := make([]complex128, d.Len())
		for i := range wf {
			wf[i] = complex(float64(n+1), float64(i)*0.01)
		}
		waveforms[n] = wf
	}
	basis, err := svd.Train(waveforms, 4)
	require.NoError(t, err)

	compress := transforms.ApplySVD{Basis: basis}
	decompress := transforms.ApplySVD{Basis: basis, Decompress: true}

	s := transforms.Sample{Strains: map[string][]complex128{"H1": waveforms[2]}}
	mid, err := compress.Apply(s)
	require.NoError(t, err)
	require.Contains(t, mid.Coefficients, "H1")
	require.Len(t, mid.Coefficients["H1"], 4)

	out, err := decompress.Apply(mid)
	require.NoError(t, err)
	m, err := svd.Mismatch(waveforms[2], out.Strains["H1"])
	require.NoError(t, err)
	assert.Less(t, m, 1e-10)
}
