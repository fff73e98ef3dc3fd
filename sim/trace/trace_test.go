package trace

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_LogOutputAndState_PreservesOrder(t *testing.T) {
	// GIVEN a recorder
	r := NewRecorder()

	// WHEN outputs and states are logged
	r.LogState(0, "efp.generator", "{clock:0}")
	r.LogOutput(1, "efp.generator", "out", "job 0")
	r.LogState(1, "efp.processor", "{busy}")

	// THEN the records keep arrival order and the helpers filter by model and port
	records := r.Records()
	require.Len(t, records, 3)
	assert.True(t, records[0].IsState())
	assert.False(t, records[1].IsState())
	assert.Equal(t, "out", records[1].Port)
	assert.Len(t, r.States("efp.generator"), 1)
	assert.Len(t, r.Outputs("efp.generator", "out"), 1)
	assert.Empty(t, r.Outputs("efp.processor", "out"))
}

func TestIsValidFormat_ValidFormats(t *testing.T) {
	tests := []struct {
		format string
		valid  bool
	}{
		{"csv", true},
		{"sqlite", true},
		{"", true}, // empty defaults to csv
		{"json", false},
		{"CSV", false}, // case-sensitive
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if got := IsValidFormat(tt.format); got != tt.valid {
				t.Errorf("IsValidFormat(%q) = %v, want %v", tt.format, got, tt.valid)
			}
		})
	}
}

func TestNew_RejectsMultiCharacterSeparator(t *testing.T) {
	_, err := New("csv", filepath.Join(t.TempDir(), "log.csv"), ";;")
	assert.Error(t, err)

	_, err = New("parquet", filepath.Join(t.TempDir(), "log.csv"), ";")
	assert.Error(t, err)
}

func TestCSVLogger_WritesHeaderAndDelimitedLines(t *testing.T) {
	// GIVEN a CSV logger using ';' as separator
	var buf bytes.Buffer
	l := NewCSVLogger(&buf, ';')
	require.NoError(t, l.Start())

	// WHEN a state and an output are logged
	l.LogState(0, "top.cell", "S=1")
	l.LogOutput(2.5, "top.cell", "neighborhoodOutput", "a;b")
	require.NoError(t, l.Stop())

	// THEN the file has a header and one line per record, quoting embedded separators
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "time;model_id;port_name;data", lines[0])
	assert.Equal(t, "0;top.cell;;S=1", lines[1])
	assert.Equal(t, `2.5;top.cell;neighborhoodOutput;"a;b"`, lines[2])
}

func TestCSVLogger_FileRoundTrip(t *testing.T) {
	// GIVEN a file-backed logger
	path := filepath.Join(t.TempDir(), "log.csv")
	l, err := New("csv", path, ",")
	require.NoError(t, err)
	require.NoError(t, l.Start())

	// WHEN records are written, including a passive (infinite) time
	l.LogState(0, "m", "idle")
	l.LogOutput(3, "m", "out", "x")
	l.LogState(math.Inf(1), "m", "done")
	require.NoError(t, l.Stop())

	// THEN ReadCSV returns the same records
	data := readFile(t, path)
	got, err := ReadCSV(strings.NewReader(data), ',')
	require.NoError(t, err)
	want := []Record{
		{Time: 0, Model: "m", Data: "idle"},
		{Time: 3, Model: "m", Port: "out", Data: "x"},
		{Time: math.Inf(1), Model: "m", Data: "done"},
	}
	assert.Equal(t, want, got)
}

func TestSQLiteLogger_PersistsRecordsInOrder(t *testing.T) {
	// GIVEN a SQLite logger
	path := filepath.Join(t.TempDir(), "trajectory.db")
	l, err := New("sqlite", path, "")
	require.NoError(t, err)
	require.NoError(t, l.Start())

	// WHEN records are written and the run is stopped
	l.LogState(0, "efp.transducer", "obs=100")
	l.LogOutput(100, "efp.transducer", "stop", "true")
	require.NoError(t, l.Stop())

	// THEN they can be read back in write order
	got, err := ReadSQLite(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Record{Time: 0, Model: "efp.transducer", Data: "obs=100"}, got[0])
	assert.Equal(t, Record{Time: 100, Model: "efp.transducer", Port: "stop", Data: "true"}, got[1])
}

func TestSQLiteLogger_RestartReplacesPreviousRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trajectory.db")
	for run := 0; run < 2; run++ {
		l := NewSQLiteLogger(path)
		require.NoError(t, l.Start())
		l.LogState(float64(run), "m", "s")
		require.NoError(t, l.Stop())
	}

	got, err := ReadSQLite(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Time)
}

func TestTee_ForwardsToEveryLogger(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	l := Tee(a, b)
	require.NoError(t, l.Start())
	l.LogOutput(1, "m", "out", "v")
	l.LogState(1, "m", "s")
	require.NoError(t, l.Stop())

	assert.Equal(t, a.Records(), b.Records())
	assert.Len(t, a.Records(), 2)
}

func TestSynchronized_ConcurrentWritersLoseNothing(t *testing.T) {
	// GIVEN a recorder shared by many goroutines
	r := NewRecorder()
	l := Synchronized(r)

	// WHEN they log concurrently
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.LogState(float64(j), "m", "s")
			}
		}()
	}
	wg.Wait()

	// THEN every record arrived, and wrapping twice is a no-op
	assert.Len(t, r.Records(), 1600)
	assert.Same(t, l, Synchronized(l))
}
