// Package model provides the data structures shared by the pipeline package
// and its options. It defines the steps of a pipeline, their metadata and the
// option hooks that observers such as measures and drawers implement.
package model
