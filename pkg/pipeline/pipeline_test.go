package pipeline_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dingo-gw/dingo/pkg/pipeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func emitRange(from, to int) func(ctx context.Context, rootChan chan<- int) error {
	return func(ctx context.Context, rootChan chan<- int) error {
		for i := from; i < to; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- i:
			}
		}

		return nil
	}
}

func TestPipelineRootToSink(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "emit", emitRange(0, 10))
	require.NoError(t, err)

	squared, err := pipeline.AddStepOneToOne(pipe, "square", root, func(_ context.Context, in int) (int, error) {
		return in * in, nil
	})
	require.NoError(t, err)

	var got []int
	err = pipeline.AddSink(pipe, "collect", squared, func(_ context.Context, in int) error {
		got = append(got, in)

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pipe.Run())
	assert.Equal(t, []int{0, 1, 4, 9, 16, 25, 36, 49, 64, 81}, got)
}

func TestPipelineStepError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "emit", emitRange(0, 100))
	require.NoError(t, err)

	boom, err := pipeline.AddStepOneToOne(pipe, "boom", root, func(_ context.Context, in int) (int, error) {
		if in == 3 {
			return 0, errors.New("element rejected")
		}

		return in, nil
	})
	require.NoError(t, err)

	err = pipeline.AddSink(pipe, "collect", boom, func(context.Context, int) error { return nil })
	require.NoError(t, err)

	// the first reported error may be the failing step's or the cancelled
	// root's, depending on scheduling
	require.Error(t, pipe.Run())
}

func TestPipelineOneToManyDrops(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "emit", emitRange(0, 10))
	require.NoError(t, err)

	evens, err := pipeline.AddStepOneToMany(pipe, "keep evens", root, func(_ context.Context, in int) ([]int, error) {
		if in%2 != 0 {
			return nil, nil
		}

		return []int{in}, nil
	})
	require.NoError(t, err)

	var got []int
	err = pipeline.AddSink(pipe, "collect", evens, func(_ context.Context, in int) error {
		got = append(got, in)

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pipe.Run())
	assert.Equal(t, []int{0, 2, 4, 6, 8}, got)
}

func TestPipelineConcurrentStep(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "emit", emitRange(0, 50))
	require.NoError(t, err)

	doubled, err := pipeline.AddStepOneToOne(pipe, "double", root, func(_ context.Context, in int) (int, error) {
		return 2 * in, nil
	}, pipeline.StepConcurrency[int](4))
	require.NoError(t, err)

	var mu sync.Mutex
	var got []int
	err = pipeline.AddSink(pipe, "collect", doubled, func(_ context.Context, in int) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, in)

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pipe.Run())

	want := make([]int, 50)
	for i := range want {
		want[i] = 2 * i
	}
	assert.ElementsMatch(t, want, got)
}

func TestPipelineSplitterAndMerger(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "emit", emitRange(0, 10))
	require.NoError(t, err)

	splitter, err := pipeline.AddSplitter(pipe, "split", root, 2, pipeline.SplitterBufferSize[int](10))
	require.NoError(t, err)

	first, ok := splitter.Get()
	require.True(t, ok)
	second, ok := splitter.Get()
	require.True(t, ok)
	_, ok = splitter.Get()
	require.False(t, ok)

	negated, err := pipeline.AddStepOneToOne(pipe, "negate", first, func(_ context.Context, in int) (int, error) {
		return -in, nil
	})
	require.NoError(t, err)

	shifted, err := pipeline.AddStepOneToOne(pipe, "shift", second, func(_ context.Context, in int) (int, error) {
		return in + 100, nil
	})
	require.NoError(t, err)

	merged, err := pipeline.AddMerger(pipe, "merge", negated, shifted)
	require.NoError(t, err)

	var mu sync.Mutex
	var got []int
	err = pipeline.AddSink(pipe, "collect", merged, func(_ context.Context, in int) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, in)

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pipe.Run())

	want := make([]int, 0, 20)
	for i := 0; i < 10; i++ {
		want = append(want, -i, i+100)
	}
	assert.ElementsMatch(t, want, got)
}

func TestPipelineFromChan(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "emit", emitRange(1, 5))
	require.NoError(t, err)

	sums, err := pipeline.AddStepFromChan(pipe, "running sum", root, func(ctx context.Context, input <-chan int, output chan int) error {
		total := 0
		for in := range input {
			total += in
			select {
			case <-ctx.Done():
				return ctx.Err()
			case output <- total:
			}
		}

		return nil
	})
	require.NoError(t, err)

	var got []int
	err = pipeline.AddSinkFromChan(pipe, "collect", sums, func(_ context.Context, input <-chan int) error {
		for in := range input {
			got = append(got, in)
		}

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pipe.Run())
	assert.Equal(t, []int{1, 3, 6, 10}, got)
}

func TestPipelineArgumentErrors(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	_, err = pipeline.AddStepOneToOne[int, int](nil, "step", nil, nil)
	assert.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)

	_, err = pipeline.AddStepOneToOne[int, int](pipe, "step", nil, nil)
	assert.ErrorIs(t, err, pipeline.ErrInputMustBeSet)

	err = pipeline.AddSink[int](pipe, "sink", nil, nil)
	assert.ErrorIs(t, err, pipeline.ErrInputMustBeSet)
}
