// Package shared holds code used across trialmerge packages that belongs to
// no single layer.
//
// The testutil subpackage provides test helpers: a slog handler that
// captures records for assertions, and trial-file fixtures.
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    dir := testutil.WriteTrials(t, map[string]string{"a.csv": testutil.TrialWithCounts})
//	    ...
//	    testutil.AssertLogContains(t, logs, slog.LevelWarn, "skipping file")
//	}
package shared
