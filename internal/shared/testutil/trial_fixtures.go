package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TrialWithCounts has ground truth, a legacy Defects column, two count
// columns, a blank terminator and a notes block.
const TrialWithCounts = `Item,Widget
System Type,AI
number of objects,40
number of defects,3
Round,Min,Sec,Sec/100,Defects,Count 1,Count 2
1,0,10,50,1,3,4
2,1,0,0,0,5,6

Notes
"checked twice,,, "
`

// TrialWithoutCounts has only the fixed time columns.
const TrialWithoutCounts = `Item,Gadget
System Type,Manual
Round,Min,Sec,Sec/100
1,0,20,0
`

// TrialMissingHeader never starts a rounds table.
const TrialMissingHeader = `Item,Widget
System Type,AI
no table here
`

// WriteTrials writes files (name to body) under a fresh temp dir and returns it.
// Names may contain subdirectories.
func WriteTrials(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		WriteFile(t, filepath.Join(dir, name), body)
	}
	return dir
}

// WriteFile writes body to path, creating parent directories.
func WriteFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
