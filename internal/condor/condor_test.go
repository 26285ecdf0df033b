package condor_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingo-gw/dingo/internal/condor"
)

const validINI = `
label = GW150914
outdir = outdir_GW150914
accounting = ligo.prod.o4.cbc.pe.dingo
request-cpus = 16
request-memory = 16000
request-cpus-importance-sampling = 32
model = model.sqlite
model-init = model_init.sqlite
device = cuda
num-samples = 50000
batch-size = 10000
trigger-time = 1126259462.4
event-data-url = https://gwosc.org
importance-sample = true
create-summary = true
`

func writeINI(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "run.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadSettings(t *testing.T) {
	t.Parallel()

	s, err := condor.LoadSettings(writeINI(t, validINI))
	require.NoError(t, err)

	assert.Equal(t, "GW150914", s.Label)
	assert.Equal(t, "ligo.prod.o4.cbc.pe.dingo", s.AccountingGroup)
	assert.Equal(t, 16, s.RequestCPUs)
	assert.Equal(t, 32, s.RequestCPUsImportanceSampling)
	assert.Equal(t, "cuda", s.Device)
	assert.Equal(t, 1126259462.4, s.TriggerTime)
	assert.True(t, s.ImportanceSample)
	assert.True(t, s.CreatePlots)

	// unset keys fall back to defaults
	assert.Equal(t, 128.0, s.PSDLengthS)
	assert.Equal(t, 2.0, s.TimeBufferS)
}

func TestLoadSettingsValidation(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"missing label":        strings.Replace(validINI, "label = GW150914", "", 1),
		"missing model":        strings.Replace(validINI, "model = model.sqlite", "", 1),
		"missing trigger":      strings.Replace(validINI, "trigger-time = 1126259462.4", "", 1),
		"zero samples":         strings.Replace(validINI, "num-samples = 50000", "num-samples = 0", 1),
		"zero request memory":  strings.Replace(validINI, "request-memory = 16000", "request-memory = 0", 1),
		"missing request cpus": strings.Replace(validINI, "request-cpus = 16", "", 1),
	}
	for name, content := range tests {
		content := content
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := condor.LoadSettings(writeINI(t, content))
			assert.Error(t, err)
		})
	}
}

func TestRenderSubmit(t *testing.T) {
	t.Parallel()

	job := condor.NewJob("GW150914_sampling", "/usr/bin/dingo",
		"analyze-event", "--model", "model.sqlite")
	job.RequestCPUs = 16
	job.RequestMemoryMB = 16000
	job.RequestGPUs = 1
	job.AccountingGroup = "ligo.dev"
	job.ExtraLines = []string{"requirements = (CUDACapability >= 7.0)"}

	var b strings.Builder
	require.NoError(t, job.RenderSubmit(&b))
	out := b.String()

	assert.Contains(t, out, "executable = /usr/bin/dingo\n")
	assert.Contains(t, out, `arguments = "analyze-event --model model.sqlite"`)
	assert.Contains(t, out, "universe = vanilla\n")
	assert.Contains(t, out, "getenv = True\n")
	assert.Contains(t, out, "request_cpus = 16\n")
	assert.Contains(t, out, "request_memory = 16000 MB\n")
	assert.Contains(t, out, "request_gpus = 1\n")
	assert.Contains(t, out, "accounting_group = ligo.dev\n")
	assert.Contains(t, out, "log = GW150914_sampling.log\n")
	assert.Contains(t, out, "requirements = (CUDACapability >= 7.0)\n")
	assert.True(t, strings.HasSuffix(out, "queue\n"))
}

func TestStripUnwantedSubmissionKeys(t *testing.T) {
	t.Parallel()

	job := condor.NewJob("test", "/usr/bin/dingo")
	job.Priority = 10
	job.AccountingGroup = "ligo.dev"
	job.ExtraLines = []string{
		"priority = 5",
		"accounting_group_user = someone",
		"requirements = (HasSingularity)",
	}
	job.StripUnwantedSubmissionKeys()

	assert.False(t, job.GetEnv)
	assert.Empty(t, job.Universe)
	assert.Zero(t, job.Priority)
	assert.Empty(t, job.AccountingGroup)
	assert.Equal(t, []string{"requirements = (HasSingularity)"}, job.ExtraLines)

	var b strings.Builder
	require.NoError(t, job.RenderSubmit(&b))
	assert.NotContains(t, b.String(), "universe")
	assert.NotContains(t, b.String(), "getenv")
	assert.NotContains(t, b.String(), "priority")
}

func testSettings(t *testing.T) *condor.Settings {
	t.Helper()

	s, err := condor.LoadSettings(writeINI(t, validINI))
	require.NoError(t, err)

	return s
}

func jobNames(dag *condor.DAG) []string {
	names := make([]string, 0)
	for _, job := range dag.Jobs() {
		names = append(names, job.Name)
	}

	return names
}

func TestPlanFull(t *testing.T) {
	t.Parallel()

	s := testSettings(t)
	dag, err := condor.Plan(s, "/usr/bin/dingo")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"GW150914_generation",
		"GW150914_importance_sampling",
		"GW150914_plotting",
		"GW150914_sampling",
	}, jobNames(dag))

	for _, job := range dag.Jobs() {
		assert.Equal(t, s.AccountingGroup, job.AccountingGroup, job.Name)
	}

	byName := map[string]*condor.Job{}
	for _, job := range dag.Jobs() {
		byName[job.Name] = job
	}
	assert.Contains(t, byName["GW150914_generation"].Arguments, "--download-only")
	assert.Contains(t, byName["GW150914_sampling"].Arguments, "--model-init")
	assert.Contains(t, byName["GW150914_sampling"].Arguments, "--batch-size")
	assert.Equal(t, 1, byName["GW150914_sampling"].RequestGPUs)
	assert.Equal(t, 32, byName["GW150914_importance_sampling"].RequestCPUs)
	assert.Zero(t, byName["GW150914_importance_sampling"].RequestGPUs)

	// every job resolving event data carries the same flag set, so the cache
	// entry written by generation is the one the later jobs find
	for _, name := range []string{"GW150914_generation", "GW150914_sampling", "GW150914_importance_sampling"} {
		args := byName[name].Arguments
		for _, flag := range []string{"--model", "--trigger-time", "--psd-length", "--time-buffer", "--event-cache", "--event-data-url"} {
			assert.Contains(t, args, flag, name)
		}
	}
}

func TestPlanOmitsEmptyDataURL(t *testing.T) {
	t.Parallel()

	s := testSettings(t)
	s.EventDataURL = ""
	dag, err := condor.Plan(s, "/usr/bin/dingo")
	require.NoError(t, err)

	// an empty flag value would swallow the next flag once the submit file's
	// argument line is re-parsed
	for _, job := range dag.Jobs() {
		assert.NotContains(t, job.Arguments, "--event-data-url", job.Name)
		for _, arg := range job.Arguments {
			assert.NotEmpty(t, arg, job.Name)
		}
	}
}

func TestPlanMinimal(t *testing.T) {
	t.Parallel()

	s := testSettings(t)
	s.ImportanceSample = false
	s.CreatePlots = false
	s.ModelInitPath = ""
	s.Device = "cpu"

	dag, err := condor.Plan(s, "/usr/bin/dingo")
	require.NoError(t, err)
	assert.Equal(t, []string{"GW150914_generation", "GW150914_sampling"}, jobNames(dag))

	for _, job := range dag.Jobs() {
		assert.Zero(t, job.RequestGPUs)
		assert.NotContains(t, job.Arguments, "--model-init")
	}
}

func TestDAGRender(t *testing.T) {
	t.Parallel()

	s := testSettings(t)
	dag, err := condor.Plan(s, "/usr/bin/dingo")
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, dag.Render(&b))
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")

	assert.Equal(t, []string{
		"JOB GW150914_generation GW150914_generation.sub",
		"JOB GW150914_importance_sampling GW150914_importance_sampling.sub",
		"JOB GW150914_plotting GW150914_plotting.sub",
		"JOB GW150914_sampling GW150914_sampling.sub",
		"PARENT GW150914_generation CHILD GW150914_sampling",
		"PARENT GW150914_importance_sampling CHILD GW150914_plotting",
		"PARENT GW150914_sampling CHILD GW150914_importance_sampling",
	}, lines)
}

func TestDAGRejectsCyclesAndDuplicates(t *testing.T) {
	t.Parallel()

	dag := condor.NewDAG()
	a := condor.NewJob("a", "/bin/true")
	b := condor.NewJob("b", "/bin/true")
	require.NoError(t, dag.AddJob(a))
	require.NoError(t, dag.AddJob(b))
	assert.Error(t, dag.AddJob(a))

	require.NoError(t, dag.AddDependency(a, b))
	assert.Error(t, dag.AddDependency(b, a))
}

func TestWriteFiles(t *testing.T) {
	t.Parallel()

	s := testSettings(t)
	dag, err := condor.Plan(s, "/usr/bin/dingo")
	require.NoError(t, err)

	outdir := filepath.Join(t.TempDir(), "outdir")
	dagPath, err := condor.WriteFiles(dag, outdir, s.Label)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outdir, "GW150914.dag"), dagPath)

	for _, job := range dag.Jobs() {
		content, err := os.ReadFile(filepath.Join(outdir, job.SubmitFileName()))
		require.NoError(t, err)
		assert.Contains(t, string(content), "executable = /usr/bin/dingo")
	}
	content, err := os.ReadFile(dagPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "JOB GW150914_sampling GW150914_sampling.sub")
}
