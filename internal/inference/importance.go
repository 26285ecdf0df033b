package inference

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/dingo-gw/dingo/internal/prior"
	"github.com/dingo-gw/dingo/internal/result"
)

// ErrNoProposalDensity is returned when samples lack the log_prob column and
// cannot be importance sampled.
var ErrNoProposalDensity = errors.New("samples carry no proposal log density")

// ImportanceSample reweights posterior samples against the exact posterior
// density prior * likelihood. It appends log_prior, log_likelihood and
// weights columns and fills the summary of the samples.
//
// When the samples lack a phase column, a synthetic uniform phase is drawn
// per sample, so that models marginalizing over phase can still be
// importance sampled.
func ImportanceSample(samples *result.Samples, priorDict *prior.Dict, like *Likelihood, rnd *rand.Rand, log *zap.Logger) error {
	if !samples.Table.HasColumn("log_prob") {
		return ErrNoProposalDensity
	}
	logProb, err := samples.Table.Column("log_prob")
	if err != nil {
		return err
	}
	n := samples.Table.Len()
	if n == 0 {
		return errors.New("no samples to importance sample")
	}

	synthPhase := !samples.Table.HasColumn("phase")
	phases := make([]float64, n)

	logPrior := make([]float64, n)
	logLike := make([]float64, n)
	logWeight := make([]float64, n)
	maxLogWeight := math.Inf(-1)
	for i := 0; i < n; i++ {
		params := samples.Table.Row(i)
		if synthPhase {
			phases[i] = 2 * math.Pi * rnd.Float64()
			params["phase"] = phases[i]
		}

		lp, err := priorDict.LogProb(params)
		if err != nil {
			return errors.Wrapf(err, "sample %d", i)
		}
		logPrior[i] = lp
		if math.IsInf(lp, -1) {
			logLike[i] = math.Inf(-1)
			logWeight[i] = math.Inf(-1)

			continue
		}

		ll, err := like.LogLikelihood(params)
		if err != nil {
			return errors.Wrapf(err, "sample %d", i)
		}
		logLike[i] = ll
		logWeight[i] = lp + ll - logProb[i]
		if logWeight[i] > maxLogWeight {
			maxLogWeight = logWeight[i]
		}
	}
	if math.IsInf(maxLogWeight, -1) {
		return errors.New("all samples have zero posterior weight")
	}

	// normalized weights with mean one, and the evidence from the raw ones
	var sum, sumSq float64
	weights := make([]float64, n)
	for i := range logWeight {
		w := math.Exp(logWeight[i] - maxLogWeight)
		weights[i] = w
		sum += w
		sumSq += w * w
	}
	ess := sum * sum / sumSq
	logEvidence := maxLogWeight + math.Log(sum) - math.Log(float64(n))
	logEvidenceStd := math.Sqrt((float64(n)/ess - 1) / float64(n))
	for i := range weights {
		weights[i] *= float64(n) / sum
	}

	tbl := samples.Table
	if synthPhase {
		if tbl, err = tbl.WithColumn("phase", phases); err != nil {
			return err
		}
	}
	if tbl, err = tbl.WithColumn("log_prior", logPrior); err != nil {
		return err
	}
	if tbl, err = tbl.WithColumn("log_likelihood", logLike); err != nil {
		return err
	}
	if tbl, err = tbl.WithColumn("weights", weights); err != nil {
		return err
	}
	samples.Table = tbl
	samples.Summary = &result.Summary{
		NumSamples:       n,
		ESS:              ess,
		SampleEfficiency: ess / float64(n),
		LogEvidence:      logEvidence,
		LogEvidenceStd:   logEvidenceStd,
	}
	log.Info("importance sampling done",
		zap.Int("num_samples", n),
		zap.Float64("ess", ess),
		zap.Float64("efficiency", ess/float64(n)),
		zap.Float64("log_evidence", logEvidence))

	return nil
}
