// Package runner implements the evaluation runner.
//
// The runner executes one implementation against every serialized test-case
// input found in the inputs directory, persisting one result file per
// successful test and one stdout/stderr log pair per test unconditionally:
//
//	outputs/<impl_id>/test_<n>.<ext>
//	logs/<impl_id>/test_<n>/stdout.txt
//	logs/<impl_id>/test_<n>/stderr.txt
//
// A failure in one test case never aborts the remaining test cases; only a
// setup failure or an I/O failure aborts the whole run. The Pool type
// evaluates several implementations in parallel, which is safe because each
// implementation owns a disjoint output and log subtree.
//
// Usage:
//
//	r := runner.New(logger, cfg, box)
//	report, err := r.Run(ctx, "a")
//	if err != nil {
//	    log.Fatal(err) // infrastructure failure, no per-test results
//	}
//	fmt.Printf("%d/%d succeeded\n", report.Succeeded(), len(report.Results))
package runner
