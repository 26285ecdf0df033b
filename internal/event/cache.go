package event

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dingo-gw/dingo/internal/dataset"
)

// ErrCacheSettingsMismatch is returned when cached event data was downloaded
// with different settings than requested.
var ErrCacheSettingsMismatch = errors.New("cached event data settings differ")

func cacheKey(settings RawDataSettings) string {
	return fmt.Sprintf("event_%.3f", settings.TimeEvent)
}

func loadCached(path string, settings RawDataSettings) (*RawData, error) {
	ok, err := dataset.Exists(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	f, err := dataset.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	key := cacheKey(settings)
	var cached RawDataSettings
	err = f.Settings(key, &cached)
	if errors.Is(err, dataset.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	match, err := dataset.SettingsMatch(cached, settings)
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, errors.Wrap(ErrCacheSettingsMismatch, key)
	}

	raw := &RawData{
		Settings: settings,
		Strains:  make(map[string][]float64, len(settings.Detectors)),
		PSDs:     make(map[string][]float64, len(settings.Detectors)),
	}
	for _, det := range settings.Detectors {
		strain, err := f.FloatMatrix(key + "/strain/" + det)
		if err != nil {
			return nil, err
		}
		psd, err := f.FloatMatrix(key + "/psd/" + det)
		if err != nil {
			return nil, err
		}
		if len(strain) != 1 || len(psd) != 1 {
			return nil, errors.Errorf("cached data of %s is malformed", det)
		}
		raw.Strains[det] = strain[0]
		raw.PSDs[det] = psd[0]
	}

	return raw, nil
}

func saveCached(path string, raw *RawData) error {
	f, err := dataset.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	key := cacheKey(raw.Settings)
	if err := f.PutSettings(key, raw.Settings); err != nil {
		return err
	}
	for det, strain := range raw.Strains {
		if err := f.PutFloatMatrix(key+"/strain/"+det, [][]float64{strain}); err != nil {
			return err
		}
	}
	for det, psd := range raw.PSDs {
		if err := f.PutFloatMatrix(key+"/psd/"+det, [][]float64{psd}); err != nil {
			return err
		}
	}

	return nil
}

// LoadOrDownload returns cached event data when present and consistent with
// the requested settings, downloading and caching it otherwise. A cache
// entry with differing settings is an error, not a silent re-download.
func LoadOrDownload(ctx context.Context, client *Client, settings RawDataSettings, cachePath string, log *zap.Logger) (*RawData, error) {
	if cachePath != "" {
		raw, err := loadCached(cachePath, settings)
		if err != nil {
			return nil, errors.Wrap(err, "unable to load cached event data")
		}
		if raw != nil {
			log.Info("using cached event data",
				zap.String("cache", cachePath),
				zap.Float64("time_event", settings.TimeEvent))

			return raw, nil
		}
	}

	raw, err := client.Fetch(ctx, settings)
	if err != nil {
		return nil, err
	}
	if cachePath != "" {
		if err := saveCached(cachePath, raw); err != nil {
			return nil, errors.Wrap(err, "unable to cache event data")
		}
	}

	return raw, nil
}
