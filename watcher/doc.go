// Package watcher observes the implementations directory for new arrivals.
//
// The outer orchestrator delivers implementation variants by dropping one
// directory per implementation into the imps root. The watcher notices each
// new directory, waits briefly for the copy to settle, and hands the
// implementation identifier to a callback for evaluation.
//
// Usage:
//
//	w, err := watcher.New(logger, "/imps", 500*time.Millisecond, func(implID string) {
//	    pool.Run(ctx, []string{implID})
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = w.Run(ctx)
package watcher
