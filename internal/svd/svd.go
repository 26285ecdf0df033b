// Package svd provides the reduced basis used to compress frequency-domain
// waveforms. Complex waveforms of n bins are embedded as real vectors of
// length 2n (real parts followed by imaginary parts) so the basis can be
// trained with a real-valued SVD.
package svd

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/dingo-gw/dingo/internal/table"
)

// Basis is a truncated SVD basis. V has one column per basis element; rows
// run over the real-stacked embedding of the waveform grid.
type Basis struct {
	V    *mat.Dense
	N    int // waveform bins
	Size int // basis elements
}

// Train builds a basis of the given size from training waveforms. All
// waveforms must share the same grid length.
func Train(waveforms [][]complex128, size int) (*Basis, error) {
	if len(waveforms) == 0 {
		return nil, errors.New("no training waveforms")
	}
	n := len(waveforms[0])
	if size <= 0 || size > len(waveforms) {
		return nil, errors.Errorf("basis size %d not in [1, %d]", size, len(waveforms))
	}

	data := mat.NewDense(len(waveforms), 2*n, nil)
	for i, wf := range waveforms {
		if len(wf) != n {
			return nil, errors.Errorf("waveform %d has %d bins, expected %d", i, len(wf), n)
		}
		for j, v := range wf {
			data.Set(i, j, real(v))
			data.Set(i, n+j, imag(v))
		}
	}

	var dec mat.SVD
	if ok := dec.Factorize(data, mat.SVDThin); !ok {
		return nil, errors.New("svd factorization did not converge")
	}
	var full mat.Dense
	dec.VTo(&full)

	basis := &Basis{V: mat.NewDense(2*n, size, nil), N: n, Size: size}
	basis.V.Copy(full.Slice(0, 2*n, 0, size))

	return basis, nil
}

// Compress projects a waveform onto the basis.
func (b *Basis) Compress(wf []complex128) ([]float64, error) {
	if len(wf) != b.N {
		return nil, errors.Errorf("waveform has %d bins, basis has %d", len(wf), b.N)
	}
	stacked := make([]float64, 2*b.N)
	for i, v := range wf {
		stacked[i] = real(v)
		stacked[b.N+i] = imag(v)
	}
	coeffs := make([]float64, b.Size)
	out := mat.NewVecDense(b.Size, coeffs)
	out.MulVec(b.V.T(), mat.NewVecDense(2*b.N, stacked))

	return coeffs, nil
}

// Decompress reconstructs a waveform from basis coefficients.
func (b *Basis) Decompress(coeffs []float64) ([]complex128, error) {
	if len(coeffs) != b.Size {
		return nil, errors.Errorf("got %d coefficients, basis has %d", len(coeffs), b.Size)
	}
	stacked := make([]float64, 2*b.N)
	out := mat.NewVecDense(2*b.N, stacked)
	out.MulVec(b.V, mat.NewVecDense(b.Size, coeffs))

	wf := make([]complex128, b.N)
	for i := range wf {
		wf[i] = complex(stacked[i], stacked[b.N+i])
	}

	return wf, nil
}

// Mismatch is 1 - |<a, b>| / (|a| |b|) over the complex inner product. Zero
// means the reconstruction is perfect up to an overall phase.
func Mismatch(a, b []complex128) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.Errorf("length mismatch %d vs %d", len(a), len(b))
	}
	var inner complex128
	var normA, normB float64
	for i := range a {
		inner += a[i] * cmplx.Conj(b[i])
		normA += real(a[i])*real(a[i]) + imag(a[i])*imag(a[i])
		normB += real(b[i])*real(b[i]) + imag(b[i])*imag(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, errors.New("zero-norm waveform")
	}

	return 1 - cmplx.Abs(inner)/math.Sqrt(normA*normB), nil
}

// ValidationSummary aggregates reconstruction mismatches over a validation
// set.
type ValidationSummary struct {
	Mean        float64
	Max         float64
	Percentiles map[int]float64 // 90, 99
	// WorstParameters is the parameter set of the waveform with the largest
	// mismatch, when parameters were supplied.
	WorstParameters map[string]float64
}

// Validate measures reconstruction mismatches of the basis on validation
// waveforms. params may be nil; when given it must have one row per
// waveform.
func (b *Basis) Validate(waveforms [][]complex128, params *table.Table) (*ValidationSummary, error) {
	if len(waveforms) == 0 {
		return nil, errors.New("no validation waveforms")
	}
	if params != nil && params.Len() != len(waveforms) {
		return nil, errors.Errorf("%d parameter rows for %d waveforms", params.Len(), len(waveforms))
	}

	mismatches := make([]float64, len(waveforms))
	worst := 0
	for i, wf := range waveforms {
		coeffs, err := b.Compress(wf)
		if err != nil {
			return nil, errors.Wrapf(err, "waveform %d", i)
		}
		rec, err := b.Decompress(coeffs)
		if err != nil {
			return nil, errors.Wrapf(err, "waveform %d", i)
		}
		m, err := Mismatch(wf, rec)
		if err != nil {
			return nil, errors.Wrapf(err, "waveform %d", i)
		}
		mismatches[i] = m
		if m > mismatches[worst] {
			worst = i
		}
	}

	summary := &ValidationSummary{
		Max:         mismatches[worst],
		Percentiles: map[int]float64{},
	}
	if params != nil {
		summary.WorstParameters = params.Row(worst)
	}
	total := 0.0
	for _, m := range mismatches {
		total += m
	}
	summary.Mean = total / float64(len(mismatches))

	sorted := append([]float64{}, mismatches...)
	sort.Float64s(sorted)
	for _, p := range []int{90, 99} {
		idx := int(math.Ceil(float64(p)/100*float64(len(sorted)))) - 1
		if idx < 0 {
			idx = 0
		}
		summary.Percentiles[p] = sorted[idx]
	}

	return summary, nil
}

// Matrix returns the basis as a flat dataset payload: one row per basis
// element, 2n real values each.
func (b *Basis) Matrix() [][]float64 {
	out := make([][]float64, b.Size)
	for j := 0; j < b.Size; j++ {
		row := make([]float64, 2*b.N)
		for i := 0; i < 2*b.N; i++ {
			row[i] = b.V.At(i, j)
		}
		out[j] = row
	}

	return out
}

// FromMatrix rebuilds a basis from its dataset payload.
func FromMatrix(rows [][]float64) (*Basis, error) {
	if len(rows) == 0 {
		return nil, errors.New("empty basis payload")
	}
	if len(rows[0])%2 != 0 {
		return nil, errors.New("basis payload rows must have even length")
	}
	n := len(rows[0]) / 2
	basis := &Basis{V: mat.NewDense(2*n, len(rows), nil), N: n, Size: len(rows)}
	for j, row := range rows {
		if len(row) != 2*n {
			return nil, errors.Errorf("basis row %d has %d values, expected %d", j, len(row), 2*n)
		}
		for i, v := range row {
			basis.V.Set(i, j, v)
		}
	}

	return basis, nil
}
