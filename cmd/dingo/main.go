// Command dingo runs the gravitational-wave inference pipeline: waveform
// dataset generation, event analysis, importance sampling, injections and
// condor job planning.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
