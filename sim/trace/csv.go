package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// CSVHeader is the first line of every delimited trajectory file.
var CSVHeader = []string{"time", "model_id", "port_name", "data"}

// CSVLogger writes the trajectory as delimited text, one line per record.
// Lines are buffered and written incrementally; Stop flushes what is left.
type CSVLogger struct {
	path   string
	sep    rune
	out    io.Writer
	file   *os.File
	writer *csv.Writer
	err    error
}

// NewCSVLogger creates a logger writing to w.
func NewCSVLogger(w io.Writer, sep rune) *CSVLogger {
	return &CSVLogger{out: w, sep: sep}
}

// NewCSVFileLogger creates a logger that (re)creates the file at path on Start.
func NewCSVFileLogger(path string, sep rune) *CSVLogger {
	return &CSVLogger{path: path, sep: sep}
}

// Start opens the destination and writes the header line.
func (l *CSVLogger) Start() error {
	if l.path != "" {
		f, err := os.Create(l.path)
		if err != nil {
			return fmt.Errorf("creating trajectory file: %w", err)
		}
		l.file = f
		l.out = f
	}
	if l.out == nil {
		return fmt.Errorf("csv logger has no destination")
	}
	l.writer = csv.NewWriter(l.out)
	l.writer.Comma = l.sep
	l.write(CSVHeader)
	return l.err
}

// LogOutput writes one line for a message on an output port.
func (l *CSVLogger) LogOutput(t float64, model, port, data string) {
	l.write([]string{FormatTime(t), model, port, data})
}

// LogState writes one line for a model state; the port column is left empty.
func (l *CSVLogger) LogState(t float64, model, state string) {
	l.write([]string{FormatTime(t), model, "", state})
}

func (l *CSVLogger) write(fields []string) {
	if l.err != nil || l.writer == nil {
		return
	}
	if err := l.writer.Write(fields); err != nil {
		l.err = fmt.Errorf("writing trajectory: %w", err)
	}
}

// Stop flushes buffered lines, closes the file it opened, and reports the
// first error seen since Start.
func (l *CSVLogger) Stop() error {
	if l.writer != nil {
		l.writer.Flush()
		if err := l.writer.Error(); err != nil && l.err == nil {
			l.err = fmt.Errorf("flushing trajectory: %w", err)
		}
	}
	if l.file != nil {
		if err := l.file.Close(); err != nil && l.err == nil {
			l.err = fmt.Errorf("closing trajectory file: %w", err)
		}
		l.file = nil
	}
	return l.err
}

// ReadCSV parses a trajectory previously written by CSVLogger.
func ReadCSV(r io.Reader, sep rune) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.Comma = sep
	reader.FieldsPerRecord = len(CSVHeader)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing trajectory: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("parsing trajectory: missing header")
	}
	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		t, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing trajectory line %d: bad time %q: %w", i+2, row[0], err)
		}
		records = append(records, Record{Time: t, Model: row[1], Port: row[2], Data: row[3]})
	}
	return records, nil
}
