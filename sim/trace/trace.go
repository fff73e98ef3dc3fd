package trace

import (
	"fmt"
	"sync"
	"unicode/utf8"
)

// Format selects the trajectory sink written by New.
type Format string

const (
	// FormatCSV writes delimited text, one line per record.
	FormatCSV Format = "csv"
	// FormatSQLite writes records into a SQLite database.
	FormatSQLite Format = "sqlite"
)

// validFormats maps accepted format strings.
var validFormats = map[Format]bool{
	FormatCSV:    true,
	FormatSQLite: true,
	"":           true, // empty defaults to csv
}

// IsValidFormat returns true if the given format string is a recognized sink format.
func IsValidFormat(format string) bool {
	return validFormats[Format(format)]
}

// Logger receives the trajectory of a simulation. Start is called once before
// the first record and Stop once after the last one. Log methods never return
// errors: sinks remember the first write failure and report it from Stop.
type Logger interface {
	Start() error
	LogOutput(t float64, model, port, data string)
	LogState(t float64, model, state string)
	Stop() error
}

// New creates a file-backed logger for the given format.
// sep is the field delimiter used by the CSV sink and must be a single character.
func New(format, path, sep string) (Logger, error) {
	switch Format(format) {
	case FormatCSV, "":
		r, size := utf8.DecodeRuneInString(sep)
		if size == 0 || size != len(sep) || r == utf8.RuneError {
			return nil, fmt.Errorf("trajectory separator must be a single character, got %q", sep)
		}
		return NewCSVFileLogger(path, r), nil
	case FormatSQLite:
		return NewSQLiteLogger(path), nil
	default:
		return nil, fmt.Errorf("unknown trajectory format %q; valid: csv, sqlite", format)
	}
}

// Recorder keeps the trajectory in memory. It is mostly useful in tests and
// for post-run inspection of short simulations.
type Recorder struct {
	records []Record
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{records: make([]Record, 0)}
}

func (r *Recorder) Start() error { return nil }
func (r *Recorder) Stop() error  { return nil }

// LogOutput appends an output record.
func (r *Recorder) LogOutput(t float64, model, port, data string) {
	r.records = append(r.records, Record{Time: t, Model: model, Port: port, Data: data})
}

// LogState appends a state record.
func (r *Recorder) LogState(t float64, model, state string) {
	r.records = append(r.records, Record{Time: t, Model: model, Data: state})
}

// Records returns a copy of everything recorded so far, in arrival order.
func (r *Recorder) Records() []Record {
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// States returns the state records of a single model, in arrival order.
func (r *Recorder) States(model string) []Record {
	var out []Record
	for _, rec := range r.records {
		if rec.IsState() && rec.Model == model {
			out = append(out, rec)
		}
	}
	return out
}

// Outputs returns the output records written to one port of one model.
func (r *Recorder) Outputs(model, port string) []Record {
	var out []Record
	for _, rec := range r.records {
		if rec.Model == model && rec.Port == port {
			out = append(out, rec)
		}
	}
	return out
}

// Tee fans every call out to several loggers, in order.
// Start and Stop visit every logger and return the first error.
func Tee(loggers ...Logger) Logger {
	return tee(loggers)
}

type tee []Logger

func (t tee) Start() error {
	var first error
	for _, l := range t {
		if err := l.Start(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t tee) LogOutput(time float64, model, port, data string) {
	for _, l := range t {
		l.LogOutput(time, model, port, data)
	}
}

func (t tee) LogState(time float64, model, state string) {
	for _, l := range t {
		l.LogState(time, model, state)
	}
}

func (t tee) Stop() error {
	var first error
	for _, l := range t {
		if err := l.Stop(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Synchronized makes a logger safe for use by concurrently transitioning models.
// Records from one cycle may then arrive in any order.
func Synchronized(l Logger) Logger {
	if _, ok := l.(*synchronized); ok {
		return l
	}
	return &synchronized{inner: l}
}

type synchronized struct {
	mu    sync.Mutex
	inner Logger
}

func (s *synchronized) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Start()
}

func (s *synchronized) LogOutput(t float64, model, port, data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.LogOutput(t, model, port, data)
}

func (s *synchronized) LogState(t float64, model, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.LogState(t, model, state)
}

func (s *synchronized) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Stop()
}
