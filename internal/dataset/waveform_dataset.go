package dataset

import (
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dingo-gw/dingo/internal/config"
	"github.com/dingo-gw/dingo/internal/svd"
	"github.com/dingo-gw/dingo/internal/table"
)

// WaveformDataset is a generated set of waveform polarizations with the
// parameters that produced them, the generation settings and the optional
// compression basis.
type WaveformDataset struct {
	Settings   *config.DatasetSettings
	Parameters *table.Table
	Plus       [][]complex128
	Cross      [][]complex128
	Basis      *svd.Basis
}

// SaveWaveformDataset writes the dataset to path, replacing any previous
// content of the same entries.
func SaveWaveformDataset(path string, ds *WaveformDataset) error {
	f, err := Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.PutSettings("dataset", ds.Settings); err != nil {
		return err
	}
	if err := f.PutTable("parameters", ds.Parameters); err != nil {
		return err
	}
	if err := f.PutComplexMatrix("polarizations/h_plus", ds.Plus); err != nil {
		return err
	}
	if err := f.PutComplexMatrix("polarizations/h_cross", ds.Cross); err != nil {
		return err
	}
	if ds.Basis != nil {
		if err := f.PutFloatMatrix("svd/basis", ds.Basis.Matrix()); err != nil {
			return err
		}
	}

	return nil
}

// LoadWaveformDataset reads a dataset from path.
func LoadWaveformDataset(path string) (*WaveformDataset, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds := &WaveformDataset{Settings: &config.DatasetSettings{}}
	if err := f.Settings("dataset", ds.Settings); err != nil {
		return nil, err
	}
	if ds.Parameters, err = f.Table("parameters"); err != nil {
		return nil, err
	}
	if ds.Plus, err = f.ComplexMatrix("polarizations/h_plus"); err != nil {
		return nil, err
	}
	if ds.Cross, err = f.ComplexMatrix("polarizations/h_cross"); err != nil {
		return nil, err
	}
	rows, err := f.FloatMatrix("svd/basis")
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, err
	default:
		if ds.Basis, err = svd.FromMatrix(rows); err != nil {
			return nil, err
		}
	}

	return ds, nil
}

// SettingsMatch reports whether two settings documents are equivalent after
// YAML normalization, so that structs and generic maps compare equal.
func SettingsMatch(a, b any) (bool, error) {
	normalize := func(v any) (map[string]any, error) {
		raw, err := yaml.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, "unable to marshal settings")
		}
		out := map[string]any{}
		if err := yaml.Unmarshal(raw, &out); err != nil {
			return nil, errors.Wrap(err, "unable to normalize settings")
		}

		return out, nil
	}
	na, err := normalize(a)
	if err != nil {
		return false, err
	}
	nb, err := normalize(b)
	if err != nil {
		return false, err
	}

	return cmp.Equal(na, nb), nil
}
