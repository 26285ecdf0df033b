package main

import (
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingo-gw/dingo/internal/condor"
)

func planSettings() *condor.Settings {
	return &condor.Settings{
		Label:                         "GW150914",
		Outdir:                        "outdir_GW150914",
		AccountingGroup:               "ligo.prod.o4.cbc.pe.dingo",
		RequestCPUs:                   16,
		RequestMemoryMB:               16000,
		RequestCPUsImportanceSampling: 32,
		ModelPath:                     "model.sqlite",
		ModelInitPath:                 "model_init.sqlite",
		Device:                        "cuda",
		NumSamples:                    50000,
		BatchSize:                     10000,
		TriggerTime:                   1126259462.4,
		EventDataURL:                  "https://gwosc.org",
		PSDLengthS:                    128,
		TimeBufferS:                   2,
		ImportanceSample:              true,
		CreatePlots:                   true,
	}
}

// TestPlannedJobArgumentsParse feeds every planned argument vector to the
// CLI with the run functions stubbed out: each job must survive flag parsing
// and required-flag validation, or the rendered DAG dies at startup.
func TestPlannedJobArgumentsParse(t *testing.T) {
	t.Parallel()

	s := planSettings()
	require.NoError(t, s.Validate())
	dag, err := condor.Plan(s, "dingo")
	require.NoError(t, err)
	require.Len(t, dag.Jobs(), 4)

	for _, job := range dag.Jobs() {
		job := job
		t.Run(job.Name, func(t *testing.T) {
			t.Parallel()
			root := newRootCmd()
			for _, sub := range root.Commands() {
				sub.RunE = func(*cobra.Command, []string) error { return nil }
			}
			root.SetArgs(job.Arguments)
			root.SetOut(io.Discard)
			root.SetErr(io.Discard)
			assert.NoError(t, root.Execute(), "arguments: %v", job.Arguments)
		})
	}
}
