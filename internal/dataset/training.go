package dataset

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"github.com/dingo-gw/dingo/internal/config"
	"github.com/dingo-gw/dingo/internal/detector"
	"github.com/dingo-gw/dingo/internal/domain"
	"github.com/dingo-gw/dingo/internal/prior"
	"github.com/dingo-gw/dingo/internal/transforms"
	"github.com/dingo-gw/dingo/internal/waveform"
)

// NewTrainingChain assembles the transform chain that turns stored
// polarizations into whitened detector data: extrinsic sampling, detector
// times, antenna projection, whitening, and basis compression when the
// dataset carries one.
func NewTrainingChain(ds *WaveformDataset, train *config.TrainSettings, rnd *rand.Rand) (transforms.Chain, error) {
	d, err := domain.Build(ds.Settings.Domain)
	if err != nil {
		return nil, err
	}
	ifos, err := detector.Network(train.Data.Detectors)
	if err != nil {
		return nil, err
	}
	extrinsic, err := prior.BuildDictWithDefaults(train.Data.ExtrinsicPrior, prior.DefaultExtrinsic())
	if err != nil {
		return nil, errors.Wrap(err, "unable to build extrinsic prior")
	}
	refDistance, err := generationDistance(ds.Settings)
	if err != nil {
		return nil, err
	}

	chain := transforms.Chain{
		transforms.SampleExtrinsicParameters{Prior: extrinsic, Rand: rnd},
		transforms.GetDetectorTimes{Ifos: ifos, RefTime: train.Data.RefTime},
		transforms.ProjectOntoDetectors{
			Ifos:        ifos,
			Domain:      d,
			RefTime:     train.Data.RefTime,
			RefDistance: refDistance,
		},
		transforms.WhitenAndScale{Domain: d},
	}
	if ds.Basis != nil {
		chain = append(chain, transforms.ApplySVD{Basis: ds.Basis})
	}

	return chain, nil
}

// generationDistance is the fixed luminosity distance the dataset waveforms
// were generated at. The intrinsic prior must pin it with a delta.
func generationDistance(settings *config.DatasetSettings) (float64, error) {
	intrinsic, err := prior.BuildDictWithDefaults(settings.IntrinsicPrior, prior.DefaultIntrinsic())
	if err != nil {
		return 0, err
	}
	dist, ok := intrinsic.Distribution("luminosity_distance")
	if !ok {
		return 0, errors.New("intrinsic prior has no luminosity_distance")
	}
	delta, ok := dist.(prior.Delta)
	if !ok {
		return 0, errors.New("generation luminosity_distance is not fixed")
	}

	return delta.V, nil
}

// TrainingExample runs the chain on the idx-th stored waveform with the
// given noise description.
func TrainingExample(ds *WaveformDataset, chain transforms.Chain, idx int, asds map[string][]float64) (transforms.Sample, error) {
	if idx < 0 || idx >= ds.Parameters.Len() {
		return transforms.Sample{}, errors.Errorf("index %d out of range [0, %d)", idx, ds.Parameters.Len())
	}
	sample := transforms.Sample{
		Parameters: ds.Parameters.Row(idx),
		Polarizations: waveform.Polarizations{
			Plus:  ds.Plus[idx],
			Cross: ds.Cross[idx],
		},
		ASDs: asds,
	}

	return chain.Apply(sample)
}
