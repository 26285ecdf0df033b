package model

type stepType = string

const (
	RootStepType     stepType = "root"
	NormalStepType   stepType = "step"
	SplitterStepType stepType = "splitter"
	SinkStepType     stepType = "sink"
	MergerStepType   stepType = "merger"
)

// StepInfo describes a step independently of its element type.
type StepInfo struct {
	Type       stepType
	Name       string
	Concurrent int
	BufferSize int
}

// StartStep and EndStep are the virtual boundaries of every pipeline. They
// never carry data; options use them to anchor the pipeline graph.
var (
	StartStep = &Step[any]{Details: &StepInfo{Name: "start"}}
	EndStep   = &Step[any]{Details: &StepInfo{Name: "end"}}
)

// Step is a typed stage of a pipeline. Output carries the elements produced
// by the step. KeepOpen prevents the pipeline from closing Output when the
// producing goroutine returns, for channels owned by the caller.
type Step[O any] struct {
	Output   chan O
	KeepOpen bool
	Details  *StepInfo
}
