package dataset_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/exp/rand"

	"github.com/dingo-gw/dingo/internal/config"
	"github.com/dingo-gw/dingo/internal/dataset"
	"github.com/dingo-gw/dingo/internal/domain"
	"github.com/dingo-gw/dingo/internal/table"
)

func testSettings() *config.DatasetSettings {
	return &config.DatasetSettings{
		Domain: domain.Settings{
			Type:   "FrequencyDomain",
			FMin:   20,
			FMax:   128,
			DeltaF: 0.25,
		},
		WaveformGenerator: config.GeneratorSettings{
			Approximant: "TaylorF2",
			FRef:        20,
		},
		IntrinsicPrior: map[string]string{
			"mass_1":              "Uniform(minimum=30.0, maximum=80.0)",
			"mass_2":              "Uniform(minimum=30.0, maximum=80.0)",
			"theta_jn":            "default",
			"phase":               "default",
			"luminosity_distance": "Delta(100.0)",
			"geocent_time":        "Delta(0.0)",
		},
		NumSamples: 6,
	}
}

func TestFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.sqlite")
	f, err := dataset.Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.PutSettings("doc", map[string]any{"answer": 42}))
	doc, err := f.SettingsMap("doc")
	require.NoError(t, err)
	assert.Equal(t, 42, doc["answer"])

	tbl := table.New("a", "b")
	require.NoError(t, tbl.Append([]float64{1, 2}))
	require.NoError(t, tbl.Append([]float64{3, 4}))
	require.NoError(t, f.PutTable("params", tbl))
	loaded, err := f.Table("params")
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns, loaded.Columns)
	assert.Equal(t, tbl.Rows, loaded.Rows)

	cm := [][]complex128{{1 + 2i, 3}, {0, -1i}}
	require.NoError(t, f.PutComplexMatrix("wf", cm))
	cmLoaded, err := f.ComplexMatrix("wf")
	require.NoError(t, err)
	assert.Equal(t, cm, cmLoaded)

	fm := [][]float64{{1, 2, 3}}
	require.NoError(t, f.PutFloatMatrix("asd", fm))
	fmLoaded, err := f.FloatMatrix("asd")
	require.NoError(t, err)
	assert.Equal(t, fm, fmLoaded)

	_, err = f.Table("missing")
	assert.ErrorIs(t, err, dataset.ErrNotFound)
	_, err = f.ComplexMatrix("asd")
	assert.Error(t, err)
}

func TestExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "data.sqlite")

	ok, err := dataset.Exists(path)
	require.NoError(t, err)
	assert.False(t, ok)

	f, err := dataset.Open(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ok, err = dataset.Exists(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGenerateAndRoundTrip(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.Compression = &config.CompressionSettings{
		SVD: &config.SVDSettings{
			Size:                 4,
			NumTrainingSamples:   6,
			NumValidationSamples: 2,
		},
	}

	rnd := rand.New(rand.NewSource(42))
	ds, err := dataset.Generate(context.Background(), settings, 2, rnd, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.Equal(t, settings.NumSamples, ds.Parameters.Len())
	require.Len(t, ds.Plus, ds.Parameters.Len())
	require.Len(t, ds.Cross, ds.Parameters.Len())
	require.NotNil(t, ds.Basis)

	path := filepath.Join(t.TempDir(), "waveforms.sqlite")
	require.NoError(t, dataset.SaveWaveformDataset(path, ds))

	loaded, err := dataset.LoadWaveformDataset(path)
	require.NoError(t, err)
	assert.Equal(t, ds.Parameters.Columns, loaded.Parameters.Columns)
	assert.Equal(t, len(ds.Plus), len(loaded.Plus))
	require.NotNil(t, loaded.Basis)
	assert.Equal(t, ds.Basis.Size, loaded.Basis.Size)

	match, err := dataset.SettingsMatch(ds.Settings, loaded.Settings)
	require.NoError(t, err)
	assert.True(t, match)
}

func TestSettingsMatch(t *testing.T) {
	t.Parallel()

	a := testSettings()
	b := testSettings()

	match, err := dataset.SettingsMatch(a, b)
	require.NoError(t, err)
	assert.True(t, match)

	b.NumSamples = 7
	match, err = dataset.SettingsMatch(a, b)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestGenerateValidatesSettings(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.NumSamples = 0

	_, err := dataset.Generate(context.Background(), settings, 1, rand.New(rand.NewSource(1)), zaptest.NewLogger(t))
	assert.Error(t, err)
}
