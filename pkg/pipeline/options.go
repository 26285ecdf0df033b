package pipeline

import "github.com/dingo-gw/dingo/pkg/pipeline/model"

// StepOption configures a single step.
type StepOption[O any] func(s *model.Step[O])

// StepConcurrency sets the number of goroutines consuming the input of the
// step. Order of outputs is not preserved when concurrent > 1.
func StepConcurrency[O any](concurrent int) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.Concurrent = concurrent
	}
}

// StepKeepOpen prevents the pipeline from closing the output channel of the
// step when its producers return.
func StepKeepOpen[O any]() StepOption[O] {
	return func(s *model.Step[O]) {
		s.KeepOpen = true
	}
}

// SplitterOption configures a splitter.
type SplitterOption[I any] func(s *Splitter[I])

// SplitterBufferSize sets the buffer size of the per-branch channels of a
// splitter. A larger buffer lets a fast branch run ahead of a slow one.
func SplitterBufferSize[I any](bufferSize int) SplitterOption[I] {
	return func(s *Splitter[I]) {
		s.bufferSize = bufferSize
	}
}
