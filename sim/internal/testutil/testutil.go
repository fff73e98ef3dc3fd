// Package testutil provides shared test infrastructure for the simulator
// packages: float assertions, testdata lookup and trajectory comparison.
package testutil

import (
	"math"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/devs-sim/devs-sim/sim/trace"
)

// TestdataPath returns the path of name under the repository's testdata/ directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func TestdataPath(t *testing.T, name string) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", name)
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == got {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertTrajectoryEqual fails the test with a readable diff when two
// trajectories differ. Records are compared in order.
func AssertTrajectoryEqual(t *testing.T, want, got []trace.Record) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("trajectory mismatch (-want +got):\n%s", diff)
	}
}

// AssertSameRecords is AssertTrajectoryEqual ignoring record order, for
// trajectories recorded by concurrently running models.
func AssertSameRecords(t *testing.T, want, got []trace.Record) {
	t.Helper()
	less := func(a, b trace.Record) bool {
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.Model != b.Model {
			return a.Model < b.Model
		}
		if a.Port != b.Port {
			return a.Port < b.Port
		}
		return a.Data < b.Data
	}
	if diff := cmp.Diff(want, got, cmpopts.SortSlices(less), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("record set mismatch (-want +got):\n%s", diff)
	}
}

// Times returns the time of every record, in order.
func Times(records []trace.Record) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Time
	}
	return out
}

// Data returns the data field of every record, in order.
func Data(records []trace.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Data
	}
	return out
}
