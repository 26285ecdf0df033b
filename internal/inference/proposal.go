package inference

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"github.com/dingo-gw/dingo/internal/detector"
	"github.com/dingo-gw/dingo/internal/event"
	"github.com/dingo-gw/dingo/internal/prior"
	"github.com/dingo-gw/dingo/internal/result"
	"github.com/dingo-gw/dingo/internal/table"
)

// PriorProposalModel proposes posterior samples directly from the prior of
// its metadata. It is the reference implementation of PosteriorModel: exact
// proposal densities, no trained surrogate. Importance sampling against the
// likelihood turns its output into a valid, if inefficient, posterior.
type PriorProposalModel struct {
	meta  ModelMetadata
	prior *prior.Dict
	rnd   *rand.Rand
}

// NewPriorProposalModel builds the model from metadata: the intrinsic prior
// of the dataset settings joined with the extrinsic prior of the train
// settings. Parameters fixed during generation (distance, time) are replaced
// by their extrinsic priors.
func NewPriorProposalModel(meta ModelMetadata, rnd *rand.Rand) (*PriorProposalModel, error) {
	if meta.Dataset == nil || meta.Train == nil {
		return nil, errors.New("model metadata is incomplete")
	}
	intrinsic, err := prior.BuildDictWithDefaults(meta.Dataset.IntrinsicPrior, prior.DefaultIntrinsic())
	if err != nil {
		return nil, errors.Wrap(err, "unable to build intrinsic prior")
	}
	extrinsic, err := prior.BuildDictWithDefaults(meta.Train.Data.ExtrinsicPrior, prior.DefaultExtrinsic())
	if err != nil {
		return nil, errors.Wrap(err, "unable to build extrinsic prior")
	}

	joined := make(map[string]prior.Distribution)
	for _, name := range intrinsic.Names() {
		dist, _ := intrinsic.Distribution(name)
		joined[name] = dist
	}
	for _, name := range extrinsic.Names() {
		dist, _ := extrinsic.Distribution(name)
		joined[name] = dist
	}

	return &PriorProposalModel{meta: meta, prior: prior.NewDict(joined), rnd: rnd}, nil
}

func (m *PriorProposalModel) Metadata() ModelMetadata { return m.meta }

// Sample draws num parameter sets from the prior. Each row carries log_prob,
// the exact proposal density, and the derived per-detector times.
func (m *PriorProposalModel) Sample(ctx context.Context, data *event.DomainData, num int) (*result.Samples, error) {
	if num <= 0 {
		return nil, errors.New("num must be positive")
	}
	ifos, err := detector.Network(m.meta.Train.Data.Detectors)
	if err != nil {
		return nil, err
	}
	gmst := detector.GMST(m.meta.Train.Data.RefTime)

	columns := append(m.prior.Names(), "log_prob")
	for _, ifo := range ifos {
		columns = append(columns, ifo.Name+"_time")
	}
	tbl := table.New(columns...)
	for i := 0; i < num; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		params := m.prior.SampleOne(m.rnd)
		logProb, err := m.prior.LogProb(params)
		if err != nil {
			return nil, err
		}
		params["log_prob"] = logProb
		for _, ifo := range ifos {
			delay := ifo.TimeDelayFromGeocenter(params["ra"], params["dec"], gmst)
			params[ifo.Name+"_time"] = params["geocent_time"] + delay
		}
		if err := tbl.AppendMap(params); err != nil {
			return nil, err
		}
	}

	return &result.Samples{Table: tbl}, nil
}
