package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/dingo-gw/dingo/pkg/pipeline/model"
)

func prepareSink[I any](pipe *Pipeline, name string, input *model.Step[I]) (*model.Step[I], error) {
	step := &model.Step[I]{
		Details: &model.StepInfo{
			Type:       model.SinkStepType,
			Name:       name,
			Concurrent: 1,
		},
	}
	for _, opt := range pipe.opts {
		err := opt.PrepareSink(input.Details, step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before sink function")
		}
	}

	return step, nil
}

// AddSink adds a terminal step consuming every element of the input.
func AddSink[I any](pipe *Pipeline, name string, input *model.Step[I], sinkFn func(ctx context.Context, input I) error) error {
	if pipe == nil {
		return ErrPipelineMustBeSet
	}
	if input == nil {
		return ErrInputMustBeSet
	}
	step, err := prepareSink(pipe, name, input)
	if err != nil {
		return err
	}

	errC := make(chan error, 1)
	decoratedError := newErrorChan(name, errC)
	pipe.goFn = append(pipe.goFn, func(ctx context.Context) {
		defer close(errC)
	outer:
		for {
			startInputChan := time.Now()
			select {
			case <-ctx.Done():
				errC <- ctx.Err()

				break outer
			case in, ok := <-input.Output:
				if !ok {
					break outer
				}
				endInputChan := time.Since(startInputChan)

				startFn := time.Now()
				err := sinkFn(ctx, in)
				if err != nil {
					errC <- err

					break outer
				}
				endFn := time.Since(startFn)
				for _, opt := range pipe.opts {
					err := opt.OnSinkOutput(input.Details, step.Details, endInputChan+endFn, endFn)
					if err != nil {
						errC <- errors.Wrap(err, "unable to run on sink output function")
					}
				}
			}
		}
		for _, opt := range pipe.opts {
			err := opt.AfterSink(step.Details, time.Since(pipe.startTime))
			if err != nil {
				errC <- errors.Wrap(err, "unable to run after sink function")
			}
		}
	})
	pipe.errcList.add(decoratedError)

	return nil
}

// AddSinkFromChan adds a terminal step that consumes the input channel
// directly.
func AddSinkFromChan[I any](pipe *Pipeline, name string, input *model.Step[I], sinkFn func(ctx context.Context, input <-chan I) error) error {
	if pipe == nil {
		return ErrPipelineMustBeSet
	}
	if input == nil {
		return ErrInputMustBeSet
	}
	step, err := prepareSink(pipe, name, input)
	if err != nil {
		return err
	}

	errC := make(chan error, 1)
	decoratedError := newErrorChan(name, errC)
	pipe.goFn = append(pipe.goFn, func(ctx context.Context) {
		defer close(errC)
		err := sinkFn(ctx, input.Output)
		if err != nil {
			errC <- err
		}
		for _, opt := range pipe.opts {
			err := opt.AfterSink(step.Details, time.Since(pipe.startTime))
			if err != nil {
				errC <- errors.Wrap(err, "unable to run after sink function")
			}
		}
	})
	pipe.errcList.add(decoratedError)

	return nil
}
