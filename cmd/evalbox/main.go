// Package main is the entry point for the evalbox evaluation runner.
//
// evalbox executes candidate implementations against serialized test-case
// inputs inside a sandbox, writing one result file per successful test and
// one stdout/stderr log pair per test unconditionally. It can run a batch
// and exit, watch for newly delivered implementations, or expose the
// runner over the Model Context Protocol.
package main

import (
	"fmt"
	"os"

	"github.com/isdmx/evalbox/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
