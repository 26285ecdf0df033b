// Package pipeline provides a typed, channel-based pipeline for processing
// data in stages.
//
// Each stage performs one operation on an element and passes it to the next
// stage over a channel. Stages can run several goroutines, bounded by the
// StepConcurrency option, which is how the waveform generation and event
// preprocessing workloads spread across cores.
//
// The pipeline stops on the first error encountered by any stage. Every stage
// goroutine selects on the pipeline context, so a failing stage cancels the
// whole run instead of leaving producers blocked on dead channels.
//
// Options such as measure.PipelineMeasure and drawer.PipelineDrawer observe
// step preparation and output, collecting per-step timings and rendering the
// pipeline graph.
package pipeline
