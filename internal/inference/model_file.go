package inference

import (
	"github.com/pkg/errors"

	"github.com/dingo-gw/dingo/internal/config"
	"github.com/dingo-gw/dingo/internal/dataset"
)

// SaveModelMetadata writes model metadata to a dataset file at path.
func SaveModelMetadata(path string, meta ModelMetadata) error {
	if meta.Dataset == nil || meta.Train == nil {
		return errors.New("model metadata is incomplete")
	}
	f, err := dataset.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.PutSettings("model/dataset_settings", meta.Dataset); err != nil {
		return err
	}

	return f.PutSettings("model/train_settings", meta.Train)
}

// LoadModelMetadata reads model metadata from a dataset file at path.
func LoadModelMetadata(path string) (ModelMetadata, error) {
	ok, err := dataset.Exists(path)
	if err != nil {
		return ModelMetadata{}, err
	}
	if !ok {
		return ModelMetadata{}, errors.Errorf("no model at %s", path)
	}

	f, err := dataset.Open(path)
	if err != nil {
		return ModelMetadata{}, err
	}
	defer f.Close()

	meta := ModelMetadata{
		Dataset: &config.DatasetSettings{},
		Train:   &config.TrainSettings{},
	}
	if err := f.Settings("model/dataset_settings", meta.Dataset); err != nil {
		return ModelMetadata{}, err
	}
	if err := f.Settings("model/train_settings", meta.Train); err != nil {
		return ModelMetadata{}, err
	}

	return meta, nil
}
