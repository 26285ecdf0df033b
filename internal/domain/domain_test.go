package domain_test

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingo-gw/dingo/internal/domain"
)

func TestBuild(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		settings domain.Settings
		wantErr  error
	}{
		"frequency domain": {
			settings: domain.Settings{Type: "FrequencyDomain", FMin: 20, FMax: 1024, DeltaF: 0.25},
		},
		"unknown type": {
			settings: domain.Settings{Type: "TimeDomain", FMin: 20, FMax: 1024, DeltaF: 0.25},
			wantErr:  domain.ErrUnsupportedDomain,
		},
	}
	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			d, err := domain.Build(tc.settings)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.settings.FMin, d.FMin())
			assert.Equal(t, tc.settings.FMax, d.FMax())
		})
	}
}

func TestGrid(t *testing.T) {
	t.Parallel()

	d, err := domain.NewFrequencyDomain(20, 1024, 0.25)
	require.NoError(t, err)

	assert.Equal(t, 4097, d.Len())
	assert.Equal(t, 80, d.MinIdx())

	freqs := d.SampleFrequencies()
	require.Len(t, freqs, 4097)
	assert.Equal(t, 0.0, freqs[0])
	assert.Equal(t, 1024.0, freqs[4096])

	mask := d.FrequencyMask()
	assert.False(t, mask[79])
	assert.True(t, mask[80])
}

func TestNoiseStd(t *testing.T) {
	t.Parallel()

	d, err := domain.NewFrequencyDomain(20, 1024, 0.25)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d.NoiseStd(), 1e-12)

	d.SetWindowFactor(0.25)
	assert.InDelta(t, 0.5, d.NoiseStd(), 1e-12)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	d, err := domain.NewFrequencyDomain(20, 100, 1)
	require.NoError(t, err)

	data := make([]float64, 200)
	out, err := domain.Truncate(d, data)
	require.NoError(t, err)
	assert.Len(t, out, 101)

	_, err = domain.Truncate(d, data[:50])
	assert.Error(t, err)
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	d, err := domain.NewFrequencyDomain(2, 10, 1)
	require.NoError(t, err)

	data := []float64{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}
	out, err := d.Update(data, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 9, 9, 9, 9, 9, 9, 9, 9, 9}, out)
}

func TestTimeTranslate(t *testing.T) {
	t.Parallel()

	d, err := domain.NewFrequencyDomain(0, 4, 1)
	require.NoError(t, err)

	data := []complex128{1, 1, 1, 1, 1}
	out, err := d.TimeTranslate(data, 0.5)
	require.NoError(t, err)

	// bin 0 is untouched, bin at f translated by exp(-2 pi i f dt)
	assert.InDelta(t, 1.0, real(out[0]), 1e-12)
	want := cmplx.Exp(complex(0, -2*math.Pi*1*0.5))
	assert.InDelta(t, real(want), real(out[1]), 1e-12)
	assert.InDelta(t, imag(want), imag(out[1]), 1e-12)

	_, err = d.TimeTranslate(data[:2], 0.5)
	assert.Error(t, err)
}
