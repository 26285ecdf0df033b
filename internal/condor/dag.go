package condor

import (
	"fmt"
	"io"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/dingo-gw/dingo/internal/store"
)

// DAG is a set of jobs with dependencies, rendered as a DAGMan file.
type DAG struct {
	jobs  map[string]*Job
	graph graph.Graph[string, string]
}

// NewDAG creates an empty DAG.
func NewDAG() *DAG {
	return &DAG{
		jobs: map[string]*Job{},
		graph: graph.NewWithStore(graph.StringHash, store.NewMemoryStore[string, string](),
			graph.Directed(), graph.PreventCycles()),
	}
}

// AddJob adds a job as a DAG node.
func (d *DAG) AddJob(job *Job) error {
	if _, ok := d.jobs[job.Name]; ok {
		return errors.Errorf("job %s already in dag", job.Name)
	}
	if err := d.graph.AddVertex(job.Name); err != nil {
		return errors.Wrapf(err, "unable to add job %s", job.Name)
	}
	d.jobs[job.Name] = job

	return nil
}

// AddDependency makes child wait for parent.
func (d *DAG) AddDependency(parent, child *Job) error {
	err := d.graph.AddEdge(parent.Name, child.Name)
	if err != nil {
		return errors.Wrapf(err, "unable to add dependency %s -> %s", parent.Name, child.Name)
	}

	return nil
}

// Jobs returns the jobs sorted by name.
func (d *DAG) Jobs() []*Job {
	names := make([]string, 0, len(d.jobs))
	for name := range d.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Job, len(names))
	for i, name := range names {
		out[i] = d.jobs[name]
	}

	return out
}

// Render writes the DAGMan file: one JOB line per job and one PARENT/CHILD
// line per dependency, both in deterministic order.
func (d *DAG) Render(w io.Writer) error {
	for _, job := range d.Jobs() {
		if _, err := fmt.Fprintf(w, "JOB %s %s\n", job.Name, job.SubmitFileName()); err != nil {
			return errors.Wrap(err, "unable to render dag")
		}
	}

	edges, err := d.graph.Edges()
	if err != nil {
		return errors.Wrap(err, "unable to list dag dependencies")
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}

		return edges[i].Target < edges[j].Target
	})
	for _, e := range edges {
		if _, err := fmt.Fprintf(w, "PARENT %s CHILD %s\n", e.Source, e.Target); err != nil {
			return errors.Wrap(err, "unable to render dag")
		}
	}

	return nil
}
