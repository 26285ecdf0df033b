package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/dingo-gw/dingo/pkg/pipeline/model"
)

func onStepOutput(pipe *Pipeline, input, output *model.StepInfo, iterationDuration, computationDuration time.Duration) error {
	for _, opt := range pipe.opts {
		err := opt.OnStepOutput(input, output, iterationDuration, computationDuration)
		if err != nil {
			return errors.Wrap(err, "unable to run on step output function")
		}
	}

	return nil
}

func sequentialOneToOneFn[I any, O any](ctx context.Context, goIdx int, pipe *Pipeline, input *model.Step[I], output *model.Step[O], oneToOneFn func(context.Context, I) (O, error)) error {
outer:
	for {
		start := time.Now()
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "go routine %d:", goIdx)
		case in, ok := <-input.Output:
			if !ok {
				break outer
			}
			startFn := time.Now()
			out, err := oneToOneFn(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "go routine %d:", goIdx)
			}
			endFn := time.Since(startFn)

			// check the context again so goroutines currently running stop
			// adding new elements to the pipeline
			select {
			case <-ctx.Done():
				return errors.Wrapf(ctx.Err(), "go routine %d:", goIdx)
			case output.Output <- out:
				err := onStepOutput(pipe, input.Details, output.Details, time.Since(start), endFn)
				if err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func concurrentOneToOneFn[I any, O any](ctx context.Context, pipe *Pipeline, input *model.Step[I], output *model.Step[O], oneToOneFn func(context.Context, I) (O, error)) error {
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(output.Details.Concurrent)
	// starts many consumers concurrently
	// each consumer stops as soon as an error happens
	for goIdx := 0; goIdx < output.Details.Concurrent; goIdx++ {
		localGoIdx := goIdx
		errGrp.Go(func() error {
			return sequentialOneToOneFn(dCtx, localGoIdx, pipe, input, output, oneToOneFn)
		})
	}

	return errGrp.Wait()
}

func oneToOne[I any, O any](ctx context.Context, pipe *Pipeline, input *model.Step[I], output *model.Step[O], oneToOneFn func(context.Context, I) (O, error)) error {
	if output.Details.Concurrent == 0 {
		output.Details.Concurrent = 1
	}
	if output.Details.Concurrent == 1 {
		return sequentialOneToOneFn(ctx, 1, pipe, input, output, oneToOneFn)
	}

	return concurrentOneToOneFn(ctx, pipe, input, output, oneToOneFn)
}

func sequentialOneToManyFn[I any, O any](ctx context.Context, goIdx int, pipe *Pipeline, input *model.Step[I], output *model.Step[O], oneToManyFn func(context.Context, I) ([]O, error)) error {
outer:
	for {
		start := time.Now()
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "go routine %d:", goIdx)
		case in, ok := <-input.Output:
			if !ok {
				break outer
			}
			startFn := time.Now()
			outs, err := oneToManyFn(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "go routine %d:", goIdx)
			}
			endFn := time.Since(startFn)
			for _, out := range outs {
				select {
				case <-ctx.Done():
					return errors.Wrapf(ctx.Err(), "go routine %d:", goIdx)
				case output.Output <- out:
					err := onStepOutput(pipe, input.Details, output.Details, time.Since(start), endFn)
					if err != nil {
						return err
					}
				}
			}
		}
	}

	return nil
}

func concurrentOneToManyFn[I any, O any](ctx context.Context, pipe *Pipeline, input *model.Step[I], output *model.Step[O], oneToManyFn func(context.Context, I) ([]O, error)) error {
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(output.Details.Concurrent)
	for goIdx := 0; goIdx < output.Details.Concurrent; goIdx++ {
		localGoIdx := goIdx
		errGrp.Go(func() error {
			return sequentialOneToManyFn(dCtx, localGoIdx, pipe, input, output, oneToManyFn)
		})
	}

	return errGrp.Wait()
}

func oneToMany[I any, O any](ctx context.Context, pipe *Pipeline, input *model.Step[I], output *model.Step[O], oneToManyFn func(context.Context, I) ([]O, error)) error {
	if output.Details.Concurrent == 0 {
		output.Details.Concurrent = 1
	}
	if output.Details.Concurrent == 1 {
		return sequentialOneToManyFn(ctx, 1, pipe, input, output, oneToManyFn)
	}

	return concurrentOneToManyFn(ctx, pipe, input, output, oneToManyFn)
}

func prepareStep[I, O any](pipe *Pipeline, name string, input *model.Step[I], opts ...StepOption[O]) (*model.Step[O], error) {
	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type: model.NormalStepType,
			Name: name,
		},
		Output: make(chan O),
	}
	for _, opt := range opts {
		opt(step)
	}

	for _, opt := range pipe.opts {
		err := opt.PrepareStep(input.Details, step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before step function")
		}
	}

	return step, nil
}

func addStep[I any, O any](pipe *Pipeline, name string, input *model.Step[I], step *model.Step[O], stepToStepFn func(ctx context.Context, input *model.Step[I], output *model.Step[O]) error) (*model.Step[O], error) {
	errC := make(chan error, 1)
	decoratedError := newErrorChan(name, errC)

	pipe.goFn = append(pipe.goFn, func(ctx context.Context) {
		defer func() {
			close(errC)
			if !step.KeepOpen {
				close(step.Output)
			}
		}()
		err := stepToStepFn(ctx, input, step)
		if err != nil {
			errC <- err
		}
	})
	pipe.errcList.add(decoratedError)

	return step, nil
}

// AddStepOneToOne adds a step that produces exactly one output element per
// input element.
func AddStepOneToOne[I any, O any](pipe *Pipeline, name string, input *model.Step[I], oneToOneFn func(context.Context, I) (O, error), opts ...StepOption[O]) (*model.Step[O], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}
	if input == nil {
		return nil, ErrInputMustBeSet
	}
	step, err := prepareStep(pipe, name, input, opts...)
	if err != nil {
		return nil, err
	}

	return addStep(pipe, name, input, step, func(ctx context.Context, in *model.Step[I], out *model.Step[O]) error {
		return oneToOne(ctx, pipe, in, out, oneToOneFn)
	})
}

// AddStepOneToMany adds a step that produces any number of output elements
// per input element, including none.
func AddStepOneToMany[I any, O any](pipe *Pipeline, name string, input *model.Step[I], oneToManyFn func(context.Context, I) ([]O, error), opts ...StepOption[O]) (*model.Step[O], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}
	if input == nil {
		return nil, ErrInputMustBeSet
	}
	step, err := prepareStep(pipe, name, input, opts...)
	if err != nil {
		return nil, err
	}

	return addStep(pipe, name, input, step, func(ctx context.Context, in *model.Step[I], out *model.Step[O]) error {
		return oneToMany(ctx, pipe, in, out, oneToManyFn)
	})
}

// AddStepFromChan adds a step that consumes the input channel directly. The
// step function owns the read loop and must honour the context.
func AddStepFromChan[I any, O any](pipe *Pipeline, name string, input *model.Step[I], stepFn func(ctx context.Context, input <-chan I, output chan O) error, opts ...StepOption[O]) (*model.Step[O], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}
	if input == nil {
		return nil, ErrInputMustBeSet
	}
	step, err := prepareStep(pipe, name, input, opts...)
	if err != nil {
		return nil, err
	}

	return addStep(pipe, name, input, step, func(ctx context.Context, in *model.Step[I], out *model.Step[O]) error {
		return stepFn(ctx, in.Output, out.Output)
	})
}
