package condor

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Job is one HTCondor submission.
type Job struct {
	ID   uuid.UUID
	Name string

	Executable string
	Arguments  []string

	RequestCPUs     int
	RequestMemoryMB int
	RequestGPUs     int

	Universe        string
	GetEnv          bool
	Priority        int
	AccountingGroup string

	// ExtraLines are copied verbatim into the submit file.
	ExtraLines []string
}

// NewJob creates a job with a fresh id and vanilla-universe defaults.
func NewJob(name, executable string, args ...string) *Job {
	return &Job{
		ID:         uuid.New(),
		Name:       name,
		Executable: executable,
		Arguments:  args,
		Universe:   "vanilla",
		GetEnv:     true,
	}
}

// StripUnwantedSubmissionKeys clears submission keys a shared scheduler
// rejects: the environment passthrough, the universe, and priority or
// accounting-group extra lines.
func (j *Job) StripUnwantedSubmissionKeys() {
	j.GetEnv = false
	j.Universe = ""
	j.Priority = 0
	j.AccountingGroup = ""
	kept := j.ExtraLines[:0]
	for _, line := range j.ExtraLines {
		trimmed := strings.TrimSpace(strings.ToLower(line))
		if strings.HasPrefix(trimmed, "priority") || strings.HasPrefix(trimmed, "accounting_group") {
			continue
		}
		kept = append(kept, line)
	}
	j.ExtraLines = kept
}

var submitTemplate = template.Must(template.New("submit").
	Funcs(template.FuncMap{"join": strings.Join}).Parse(
	`executable = {{ .Executable }}
arguments = "{{ join .Arguments " " }}"
{{- if .Universe }}
universe = {{ .Universe }}
{{- end }}
{{- if .GetEnv }}
getenv = True
{{- end }}
request_cpus = {{ .RequestCPUs }}
request_memory = {{ .RequestMemoryMB }} MB
{{- if gt .RequestGPUs 0 }}
request_gpus = {{ .RequestGPUs }}
{{- end }}
{{- if gt .Priority 0 }}
priority = {{ .Priority }}
{{- end }}
{{- if .AccountingGroup }}
accounting_group = {{ .AccountingGroup }}
{{- end }}
log = {{ .Name }}.log
output = {{ .Name }}.out
error = {{ .Name }}.err
{{- range .ExtraLines }}
{{ . }}
{{- end }}
queue
`))

// RenderSubmit writes the submit file of the job.
func (j *Job) RenderSubmit(w io.Writer) error {
	if err := submitTemplate.Execute(w, j); err != nil {
		return errors.Wrapf(err, "unable to render submit file of %s", j.Name)
	}

	return nil
}

// SubmitFileName is the file name of the job's submit file.
func (j *Job) SubmitFileName() string {
	return fmt.Sprintf("%s.sub", j.Name)
}
