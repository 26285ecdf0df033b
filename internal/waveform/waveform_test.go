package waveform_test

import (
	"context"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dingo-gw/dingo/internal/domain"
	"github.com/dingo-gw/dingo/internal/table"
	"github.com/dingo-gw/dingo/internal/waveform"
)

func testDomain(t *testing.T) *domain.FrequencyDomain {
	t.Helper()
	d, err := domain.NewFrequencyDomain(20, 512, 0.25)
	require.NoError(t, err)

	return d
}

func testParams() map[string]float64 {
	return map[string]float64{
		"mass_1":              35,
		"mass_2":              30,
		"luminosity_distance": 100,
		"theta_jn":            0.5,
		"phase":               1.2,
		"geocent_time":        0,
	}
}

func TestNewGenerator(t *testing.T) {
	t.Parallel()

	d := testDomain(t)

	_, err := waveform.NewGenerator("TaylorF2", d, 20)
	require.NoError(t, err)

	_, err = waveform.NewGenerator("IMRPhenomXPHM", d, 20)
	assert.Error(t, err)

	_, err = waveform.NewGenerator("TaylorF2", d, 0)
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	d := testDomain(t)
	gen, err := waveform.NewGenerator("TaylorF2", d, 20)
	require.NoError(t, err)

	pol, err := gen.Generate(testParams())
	require.NoError(t, err)
	require.Len(t, pol.Plus, d.Len())
	require.Len(t, pol.Cross, d.Len())

	// no power below the band
	for i := 0; i < d.MinIdx(); i++ {
		assert.Zero(t, pol.Plus[i])
		assert.Zero(t, pol.Cross[i])
	}
	// power at the band edge
	assert.NotZero(t, pol.Plus[d.MinIdx()])

	// amplitude decays with frequency inside the inspiral band
	lo := cmplx.Abs(pol.Plus[d.MinIdx()])
	hi := cmplx.Abs(pol.Plus[2*d.MinIdx()])
	assert.Greater(t, lo, hi)
}

func TestGenerateAmplitudeScalesWithDistance(t *testing.T) {
	t.Parallel()

	d := testDomain(t)
	gen, err := waveform.NewGenerator("TaylorF2", d, 20)
	require.NoError(t, err)

	near, err := gen.Generate(testParams())
	require.NoError(t, err)

	farParams := testParams()
	farParams["luminosity_distance"] = 200
	far, err := gen.Generate(farParams)
	require.NoError(t, err)

	i := d.MinIdx() + 10
	ratio := cmplx.Abs(near.Plus[i]) / cmplx.Abs(far.Plus[i])
	assert.InDelta(t, 2.0, ratio, 1e-9)
}

func TestGenerateFailures(t *testing.T) {
	t.Parallel()

	d := testDomain(t)
	gen, err := waveform.NewGenerator("TaylorF2", d, 20)
	require.NoError(t, err)

	tests := map[string]struct {
		mutate  func(map[string]float64)
		wantGen bool
	}{
		"missing parameter": {
			mutate: func(p map[string]float64) { delete(p, "mass_1") },
		},
		"negative mass": {
			mutate:  func(p map[string]float64) { p["mass_1"] = -10 },
			wantGen: true,
		},
		"merger below band": {
			// heavy binaries merge below f_min
			mutate: func(p map[string]float64) {
				p["mass_1"] = 5000
				p["mass_2"] = 5000
			},
			wantGen: true,
		},
	}
	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			params := testParams()
			tc.mutate(params)
			_, err := gen.Generate(params)
			require.Error(t, err)
			if tc.wantGen {
				assert.ErrorIs(t, err, waveform.ErrGeneration)
			}
		})
	}
}

func TestGenerateTransformApplied(t *testing.T) {
	t.Parallel()

	d := testDomain(t)
	gen, err := waveform.NewGenerator("TaylorF2", d, 20)
	require.NoError(t, err)
	gen.Transform = func(pol waveform.Polarizations) (waveform.Polarizations, error) {
		for i := range pol.Plus {
			pol.Plus[i] *= 2
		}

		return pol, nil
	}

	doubled, err := gen.Generate(testParams())
	require.NoError(t, err)

	gen.Transform = nil
	plain, err := gen.Generate(testParams())
	require.NoError(t, err)

	i := d.MinIdx() + 5
	assert.InDelta(t, 2*cmplx.Abs(plain.Plus[i]), cmplx.Abs(doubled.Plus[i]), 1e-20)
}

func TestGenerateBatch(t *testing.T) {
	t.Parallel()

	d := testDomain(t)
	gen, err := waveform.NewGenerator("TaylorF2", d, 20)
	require.NoError(t, err)

	params := table.New("mass_1", "mass_2", "luminosity_distance", "theta_jn", "phase", "geocent_time")
	for i := 0; i < 8; i++ {
		require.NoError(t, params.Append([]float64{
			30 + float64(i), 25, 100, 0.3, 0.1, 0,
		}))
	}
	// a row the generator must drop
	require.NoError(t, params.Append([]float64{5000, 5000, 100, 0.3, 0.1, 0}))

	batch, err := waveform.GenerateBatch(context.Background(), gen, params, 3, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.Equal(t, 8, batch.Parameters.Len())
	require.Len(t, batch.Plus, 8)
	require.Len(t, batch.Cross, 8)

	// order is restored after concurrent generation
	m1, err := batch.Parameters.Column("mass_1")
	require.NoError(t, err)
	for i := 1; i < len(m1); i++ {
		assert.Greater(t, m1[i], m1[i-1])
	}
}
