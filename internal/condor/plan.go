package condor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// eventArgs is the flag set shared by every job that resolves event data.
// All jobs must agree on these so the cache entry written by the generation
// job is the one the later jobs look up.
func eventArgs(s *Settings, eventFile string) []string {
	args := []string{
		"--model", s.ModelPath,
		"--trigger-time", fmt.Sprintf("%f", s.TriggerTime),
		"--psd-length", fmt.Sprintf("%f", s.PSDLengthS),
		"--time-buffer", fmt.Sprintf("%f", s.TimeBufferS),
		"--event-cache", eventFile,
	}
	if s.EventDataURL != "" {
		args = append(args, "--event-data-url", s.EventDataURL)
	}

	return args
}

// Plan turns a run description into a DAG of pipeline stages: event data
// generation, posterior sampling, optional importance sampling and optional
// result plotting.
func Plan(s *Settings, executable string) (*DAG, error) {
	dag := NewDAG()

	eventFile := filepath.Join(s.Outdir, s.Label+"_event.sqlite")
	samplesFile := filepath.Join(s.Outdir, s.Label+"_samples.sqlite")

	generation := NewJob(s.Label+"_generation", executable,
		append([]string{"analyze-event"},
			append(eventArgs(s, eventFile), "--download-only")...)...)
	generation.RequestCPUs = s.RequestCPUs
	generation.RequestMemoryMB = s.RequestMemoryMB
	if err := dag.AddJob(generation); err != nil {
		return nil, err
	}

	samplingArgs := append([]string{"analyze-event"}, eventArgs(s, eventFile)...)
	samplingArgs = append(samplingArgs,
		"--num-samples", fmt.Sprintf("%d", s.NumSamples),
		"--out", samplesFile,
	)
	if s.BatchSize > 0 {
		samplingArgs = append(samplingArgs, "--batch-size", fmt.Sprintf("%d", s.BatchSize))
	}
	if s.ModelInitPath != "" {
		samplingArgs = append(samplingArgs, "--model-init", s.ModelInitPath)
	}
	sampling := NewJob(s.Label+"_sampling", executable, samplingArgs...)
	sampling.RequestCPUs = s.RequestCPUs
	sampling.RequestMemoryMB = s.RequestMemoryMB
	if s.Device == "cuda" {
		sampling.RequestGPUs = 1
	}
	if err := dag.AddJob(sampling); err != nil {
		return nil, err
	}
	if err := dag.AddDependency(generation, sampling); err != nil {
		return nil, err
	}

	last := sampling
	if s.ImportanceSample {
		importanceArgs := append([]string{"importance-sample"}, eventArgs(s, eventFile)...)
		importanceArgs = append(importanceArgs,
			"--samples", samplesFile,
			"--out", samplesFile,
		)
		importance := NewJob(s.Label+"_importance_sampling", executable, importanceArgs...)
		cpus := s.RequestCPUsImportanceSampling
		if cpus <= 0 {
			cpus = s.RequestCPUs
		}
		importance.RequestCPUs = cpus
		importance.RequestMemoryMB = s.RequestMemoryMB
		if err := dag.AddJob(importance); err != nil {
			return nil, err
		}
		if err := dag.AddDependency(sampling, importance); err != nil {
			return nil, err
		}
		last = importance
	}

	if s.CreatePlots {
		plotting := NewJob(s.Label+"_plotting", executable,
			"summary",
			"--samples", samplesFile,
			"--out", filepath.Join(s.Outdir, s.Label+"_summary.yaml"),
		)
		plotting.RequestCPUs = 1
		plotting.RequestMemoryMB = s.RequestMemoryMB
		if err := dag.AddJob(plotting); err != nil {
			return nil, err
		}
		if err := dag.AddDependency(last, plotting); err != nil {
			return nil, err
		}
	}

	if s.AccountingGroup != "" {
		for _, job := range dag.Jobs() {
			job.AccountingGroup = s.AccountingGroup
		}
	}

	return dag, nil
}

// WriteFiles writes one submit file per job and the DAG file into outdir.
// It returns the path of the DAG file.
func WriteFiles(dag *DAG, outdir, label string) (string, error) {
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return "", errors.Wrapf(err, "unable to create %s", outdir)
	}
	for _, job := range dag.Jobs() {
		f, err := os.Create(filepath.Join(outdir, job.SubmitFileName()))
		if err != nil {
			return "", errors.Wrapf(err, "unable to create submit file of %s", job.Name)
		}
		if err := job.RenderSubmit(f); err != nil {
			f.Close()

			return "", err
		}
		if err := f.Close(); err != nil {
			return "", errors.Wrapf(err, "unable to close submit file of %s", job.Name)
		}
	}

	dagPath := filepath.Join(outdir, label+".dag")
	f, err := os.Create(dagPath)
	if err != nil {
		return "", errors.Wrapf(err, "unable to create dag file")
	}
	defer f.Close()
	if err := dag.Render(f); err != nil {
		return "", err
	}

	return dagPath, nil
}
