package prior

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"github.com/dingo-gw/dingo/internal/table"
)

// Dict is a product prior over named parameters with a deterministic
// parameter order.
type Dict struct {
	names []string
	dists map[string]Distribution
}

// NewDict builds a Dict from named distributions. Parameters are ordered
// alphabetically so that sampled tables have a stable column order.
func NewDict(dists map[string]Distribution) *Dict {
	names := make([]string, 0, len(dists))
	for name := range dists {
		names = append(names, name)
	}
	sort.Strings(names)

	copied := make(map[string]Distribution, len(dists))
	for name, dist := range dists {
		copied[name] = dist
	}

	return &Dict{names: names, dists: copied}
}

// Names returns the ordered parameter names.
func (d *Dict) Names() []string {
	return append([]string{}, d.names...)
}

// Has reports whether the dict contains the named parameter.
func (d *Dict) Has(name string) bool {
	_, ok := d.dists[name]

	return ok
}

// Distribution returns the prior of the named parameter.
func (d *Dict) Distribution(name string) (Distribution, bool) {
	dist, ok := d.dists[name]

	return dist, ok
}

// Sample draws num parameter sets into a table, one column per parameter.
func (d *Dict) Sample(num int, rnd *rand.Rand) *table.Table {
	tbl := table.New(d.names...)
	for i := 0; i < num; i++ {
		row := make([]float64, len(d.names))
		for j, name := range d.names {
			row[j] = d.dists[name].Sample(rnd)
		}
		tbl.Rows = append(tbl.Rows, row)
	}

	return tbl
}

// SampleOne draws a single parameter set.
func (d *Dict) SampleOne(rnd *rand.Rand) map[string]float64 {
	out := make(map[string]float64, len(d.names))
	for _, name := range d.names {
		out[name] = d.dists[name].Sample(rnd)
	}

	return out
}

// LogProb evaluates the joint log density of the parameters the dict knows
// about. Extra entries in values are ignored; missing ones are an error.
func (d *Dict) LogProb(values map[string]float64) (float64, error) {
	total := 0.0
	for _, name := range d.names {
		v, ok := values[name]
		if !ok {
			return math.Inf(-1), errors.Errorf("missing parameter %s", name)
		}
		total += d.dists[name].LogProb(v)
	}

	return total, nil
}
