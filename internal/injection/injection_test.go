package injection_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dingo-gw/dingo/internal/config"
	"github.com/dingo-gw/dingo/internal/dataset"
	"github.com/dingo-gw/dingo/internal/detector"
	"github.com/dingo-gw/dingo/internal/domain"
	"github.com/dingo-gw/dingo/internal/event"
	"github.com/dingo-gw/dingo/internal/inference"
	"github.com/dingo-gw/dingo/internal/injection"
	"github.com/dingo-gw/dingo/internal/result"
	"github.com/dingo-gw/dingo/internal/table"
)

func testMeta() inference.ModelMetadata {
	return inference.ModelMetadata{
		Dataset: &config.DatasetSettings{
			Domain: domain.Settings{
				Type:   "FrequencyDomain",
				FMin:   20,
				FMax:   128,
				DeltaF: 0.25,
			},
			WaveformGenerator: config.GeneratorSettings{Approximant: "TaylorF2", FRef: 20},
			IntrinsicPrior:    map[string]string{"mass_1": "default"},
			NumSamples:        10,
		},
		Train: &config.TrainSettings{
			Data: config.DataSettings{
				Detectors: []string{"H1", "L1"},
				RefTime:   1126259462.4,
			},
		},
	}
}

var paramColumns = []string{
	"mass_1", "mass_2", "theta_jn", "phase",
	"luminosity_distance", "geocent_time", "ra", "dec", "psi",
}

func paramRow(mass1, logLike float64) []float64 {
	return []float64{mass1, 30, 0.4, 1.0, 100, 0, 1.2, 0.3, 0.5, logLike}
}

func testSamples(t *testing.T) *result.Samples {
	t.Helper()

	tbl := table.New(append(append([]string{}, paramColumns...), "log_likelihood")...)
	require.NoError(t, tbl.Append(paramRow(32, -8)))
	require.NoError(t, tbl.Append(paramRow(36, -1)))
	require.NoError(t, tbl.Append(paramRow(34, -5)))

	return &result.Samples{Table: tbl}
}

func testEventData(t *testing.T, meta inference.ModelMetadata) *event.DomainData {
	t.Helper()

	d, err := meta.Domain()
	require.NoError(t, err)

	data := &event.DomainData{
		Domain:  d,
		Strains: map[string][]complex128{},
		ASDs:    map[string][]float64{},
	}
	for _, det := range meta.Train.Data.Detectors {
		strain := make([]complex128, d.Len())
		asd := make([]float64, d.Len())
		for i := range asd {
			strain[i] = complex(float64(i), 1)
			asd[i] = 1 + 0.001*float64(i)
		}
		data.Strains[det] = strain
		data.ASDs[det] = asd
	}

	return data
}

func TestBestSample(t *testing.T) {
	t.Parallel()

	samples := testSamples(t)
	best, err := injection.BestSample(samples)
	require.NoError(t, err)
	assert.Equal(t, 36.0, best["mass_1"])
	assert.Equal(t, -1.0, best["log_likelihood"])
}

func TestBestSampleWithoutLikelihood(t *testing.T) {
	t.Parallel()

	tbl := table.New("mass_1")
	require.NoError(t, tbl.Append([]float64{32}))
	require.NoError(t, tbl.Append([]float64{36}))

	best, err := injection.BestSample(&result.Samples{Table: tbl})
	require.NoError(t, err)
	assert.Equal(t, 32.0, best["mass_1"])

	_, err = injection.BestSample(&result.Samples{Table: table.New("mass_1")})
	assert.Error(t, err)
}

// bestSampleStrains is the signal model of the maximum-likelihood sample.
func bestSampleStrains(t *testing.T, meta inference.ModelMetadata, samples *result.Samples, data *event.DomainData) map[string][]complex128 {
	t.Helper()

	gen, err := meta.WaveformGenerator(data.Domain)
	require.NoError(t, err)
	ifos, err := detector.Network(meta.Train.Data.Detectors)
	require.NoError(t, err)
	like := &inference.Likelihood{Data: data, Gen: gen, Ifos: ifos, RefTime: meta.Train.Data.RefTime}
	best, err := injection.BestSample(samples)
	require.NoError(t, err)
	want, err := like.Strains(best)
	require.NoError(t, err)

	return want
}

func TestMake(t *testing.T) {
	t.Parallel()

	meta := testMeta()
	samples := testSamples(t)
	eventData := testEventData(t, meta)

	// measured strains close to the best-sample signal pass the whitened-std
	// consistency check without being identical to it
	want := bestSampleStrains(t, meta, samples, eventData)
	for det, strain := range want {
		scaled := make([]complex128, len(strain))
		for i, v := range strain {
			scaled[i] = v * complex(1.02, 0)
		}
		eventData.Strains[det] = scaled
	}

	out, err := injection.Make(meta, samples, eventData, zaptest.NewLogger(t))
	require.NoError(t, err)

	// noise description passes through, measured strains do not
	assert.Equal(t, eventData.ASDs, out.ASDs)
	assert.NotEqual(t, eventData.Strains["H1"], out.Strains["H1"])

	// the injected strain is the signal of the maximum-likelihood sample
	assert.Equal(t, want["H1"], out.Strains["H1"])
	assert.Equal(t, want["L1"], out.Strains["L1"])
}

func TestMakeInconsistentData(t *testing.T) {
	t.Parallel()

	meta := testMeta()
	samples := testSamples(t)
	// ramp strains are nothing like the best-sample signal, so the
	// whitened-std ratio blows past the tolerance
	eventData := testEventData(t, meta)

	_, err := injection.Make(meta, samples, eventData, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, injection.ErrInconsistentInjection)
}

func TestSave(t *testing.T) {
	t.Parallel()

	meta := testMeta()
	data := testEventData(t, meta)
	path := filepath.Join(t.TempDir(), "injection.sqlite")
	require.NoError(t, injection.Save(path, data))

	f, err := dataset.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var s domain.Settings
	require.NoError(t, f.Settings("injection/domain", &s))
	assert.Equal(t, data.Domain.Settings(), s)

	strain, err := f.ComplexMatrix("injection/strain/H1")
	require.NoError(t, err)
	require.Len(t, strain, 1)
	assert.Equal(t, data.Strains["H1"], strain[0])

	asd, err := f.FloatMatrix("injection/asd/L1")
	require.NoError(t, err)
	require.Len(t, asd, 1)
	assert.Equal(t, data.ASDs["L1"], asd[0])
}
