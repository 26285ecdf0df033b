// Package event downloads and preprocesses open strain data around a
// trigger: raw time series and noise PSDs per detector, cached on disk, and
// their frequency-domain form ready for inference.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dingo-gw/dingo/internal/config"
)

// RawDataSettings describes the data segment around a trigger.
type RawDataSettings struct {
	Window     config.WindowSettings `yaml:"window"`
	Detectors  []string              `yaml:"detectors"`
	TimeEvent  float64               `yaml:"time_event"`
	TimePSD    float64               `yaml:"time_psd"`
	TimeBuffer float64               `yaml:"time_buffer"`
}

// Validate checks the segment description.
func (s RawDataSettings) Validate() error {
	if err := s.Window.Validate("window"); err != nil {
		return err
	}
	if len(s.Detectors) == 0 {
		return errors.New("detectors must not be empty")
	}
	if s.TimePSD < s.Window.T {
		return errors.New("time_psd must cover at least one segment")
	}
	if s.TimeBuffer < 0 || s.TimeBuffer > s.Window.T {
		return errors.New("time_buffer must lie in [0, T]")
	}

	return nil
}

// RawData is the downloaded time-domain data of one event.
type RawData struct {
	Settings RawDataSettings
	// Strains maps detector name to the event segment of T*f_s samples.
	Strains map[string][]float64
	// PSDs maps detector name to the one-sided noise PSD over the full FFT
	// grid of the segment.
	PSDs map[string][]float64
}

// Client downloads open strain data over HTTP. The server is expected to
// serve GET {base}/strain?detector=H1&start=...&duration=...&sample_rate=...
// with a JSON body {"strain": [...]}.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Log     *zap.Logger
}

// NewClient builds a client with a default timeout.
func NewClient(baseURL string, log *zap.Logger) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 5 * time.Minute},
		Log:     log,
	}
}

type strainResponse struct {
	Strain []float64 `json:"strain"`
}

func (c *Client) fetchStrain(ctx context.Context, det string, start, duration, sampleRate float64) ([]float64, error) {
	q := url.Values{}
	q.Set("detector", det)
	q.Set("start", fmt.Sprintf("%f", start))
	q.Set("duration", fmt.Sprintf("%f", duration))
	q.Set("sample_rate", fmt.Sprintf("%f", sampleRate))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/strain?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "unable to build strain request")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to fetch strain for %s", det)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("strain request for %s returned %s", det, resp.Status)
	}

	var body strainResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrapf(err, "unable to decode strain for %s", det)
	}
	want := int(duration * sampleRate)
	if len(body.Strain) != want {
		return nil, errors.Errorf("strain for %s has %d samples, expected %d", det, len(body.Strain), want)
	}

	return body.Strain, nil
}

// Fetch downloads the event segment and the PSD estimation segment for every
// detector, concurrently.
func (c *Client) Fetch(ctx context.Context, settings RawDataSettings) (*RawData, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	raw := &RawData{
		Settings: settings,
		Strains:  make(map[string][]float64, len(settings.Detectors)),
		PSDs:     make(map[string][]float64, len(settings.Detectors)),
	}
	var mu sync.Mutex

	eventStart := settings.TimeEvent - settings.Window.T + settings.TimeBuffer
	psdStart := eventStart - settings.TimePSD

	grp, gCtx := errgroup.WithContext(ctx)
	for _, det := range settings.Detectors {
		det := det
		grp.Go(func() error {
			strain, err := c.fetchStrain(gCtx, det, eventStart, settings.Window.T, settings.Window.FS)
			if err != nil {
				return err
			}
			noise, err := c.fetchStrain(gCtx, det, psdStart, settings.TimePSD, settings.Window.FS)
			if err != nil {
				return err
			}
			psd, err := welchPSD(noise, settings.Window)
			if err != nil {
				return errors.Wrapf(err, "unable to estimate PSD for %s", det)
			}

			mu.Lock()
			raw.Strains[det] = strain
			raw.PSDs[det] = psd
			mu.Unlock()
			c.Log.Info("downloaded event data",
				zap.String("detector", det),
				zap.Float64("time_event", settings.TimeEvent))

			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, errors.Wrap(err, "unable to download event data")
	}

	return raw, nil
}
