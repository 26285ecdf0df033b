package table_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingo-gw/dingo/internal/table"
)

func TestAppendAndColumn(t *testing.T) {
	t.Parallel()

	tbl := table.New("mass_1", "mass_2")
	require.NoError(t, tbl.Append([]float64{30, 25}))
	require.NoError(t, tbl.AppendMap(map[string]float64{"mass_1": 40, "mass_2": 35}))
	require.Equal(t, 2, tbl.Len())

	m1, err := tbl.Column("mass_1")
	require.NoError(t, err)
	assert.Equal(t, []float64{30, 40}, m1)

	_, err = tbl.Column("spin")
	assert.ErrorIs(t, err, table.ErrColumnNotFound)

	err = tbl.Append([]float64{1})
	assert.Error(t, err)

	err = tbl.AppendMap(map[string]float64{"mass_1": 1})
	assert.ErrorIs(t, err, table.ErrColumnNotFound)
}

func TestRowAndSlice(t *testing.T) {
	t.Parallel()

	tbl := table.New("a", "b")
	require.NoError(t, tbl.Append([]float64{1, 2}))
	require.NoError(t, tbl.Append([]float64{3, 4}))
	require.NoError(t, tbl.Append([]float64{5, 6}))

	assert.Equal(t, map[string]float64{"a": 3, "b": 4}, tbl.Row(1))

	sliced := tbl.Slice(1, 3)
	assert.Equal(t, 2, sliced.Len())
	assert.Equal(t, map[string]float64{"a": 5, "b": 6}, sliced.Row(1))
}

func TestWithColumn(t *testing.T) {
	t.Parallel()

	tbl := table.New("a")
	require.NoError(t, tbl.Append([]float64{1}))
	require.NoError(t, tbl.Append([]float64{2}))

	extended, err := tbl.WithColumn("b", []float64{10, 20})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, extended.Columns)
	assert.Equal(t, map[string]float64{"a": 2, "b": 20}, extended.Row(1))
	// the original is untouched
	assert.Equal(t, []string{"a"}, tbl.Columns)

	_, err = tbl.WithColumn("c", []float64{1})
	assert.Error(t, err)
}

func TestConcat(t *testing.T) {
	t.Parallel()

	first := table.New("a")
	require.NoError(t, first.Append([]float64{1}))
	second := table.New("a")
	require.NoError(t, second.Append([]float64{2}))

	out, err := table.Concat(first, second)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())

	other := table.New("b")
	_, err = table.Concat(first, other)
	assert.Error(t, err)
}
