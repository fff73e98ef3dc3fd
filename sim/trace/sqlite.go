package trace

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const trajectorySchema = `
CREATE TABLE IF NOT EXISTS trajectory (
	seq   INTEGER PRIMARY KEY,
	time  REAL NOT NULL,
	model TEXT NOT NULL,
	port  TEXT NOT NULL DEFAULT '',
	data  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trajectory_model ON trajectory(model, time);
`

// SQLiteLogger writes the trajectory into a SQLite database. All records of a
// run share one transaction, committed by Stop.
type SQLiteLogger struct {
	path string
	db   *sql.DB
	tx   *sql.Tx
	stmt *sql.Stmt
	seq  int64
	err  error
}

// NewSQLiteLogger creates a logger for the database at path. Existing
// trajectory rows are replaced on Start.
func NewSQLiteLogger(path string) *SQLiteLogger {
	return &SQLiteLogger{path: path}
}

// Start opens the database, creates the schema and begins the run transaction.
func (l *SQLiteLogger) Start() error {
	dsn := l.path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open trajectory db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(trajectorySchema); err != nil {
		db.Close()
		return fmt.Errorf("migrate trajectory db: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM trajectory`); err != nil {
		db.Close()
		return fmt.Errorf("reset trajectory db: %w", err)
	}
	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return fmt.Errorf("begin trajectory tx: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO trajectory (seq, time, model, port, data) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		db.Close()
		return fmt.Errorf("prepare trajectory insert: %w", err)
	}
	l.db, l.tx, l.stmt = db, tx, stmt
	l.seq = 0
	return nil
}

// LogOutput inserts an output row.
func (l *SQLiteLogger) LogOutput(t float64, model, port, data string) {
	l.insert(t, model, port, data)
}

// LogState inserts a state row with an empty port.
func (l *SQLiteLogger) LogState(t float64, model, state string) {
	l.insert(t, model, "", state)
}

func (l *SQLiteLogger) insert(t float64, model, port, data string) {
	if l.err != nil || l.stmt == nil {
		return
	}
	l.seq++
	if _, err := l.stmt.Exec(l.seq, t, model, port, data); err != nil {
		l.err = fmt.Errorf("insert trajectory row %d: %w", l.seq, err)
	}
}

// Stop commits the run (or rolls it back after a write failure) and closes the database.
func (l *SQLiteLogger) Stop() error {
	if l.db == nil {
		return l.err
	}
	if l.stmt != nil {
		l.stmt.Close()
	}
	if l.err != nil {
		_ = l.tx.Rollback()
	} else if err := l.tx.Commit(); err != nil {
		l.err = fmt.Errorf("commit trajectory: %w", err)
	}
	if err := l.db.Close(); err != nil && l.err == nil {
		l.err = fmt.Errorf("close trajectory db: %w", err)
	}
	l.db, l.tx, l.stmt = nil, nil, nil
	return l.err
}

// ReadSQLite loads every record stored by SQLiteLogger, in write order.
func ReadSQLite(path string) ([]Record, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open trajectory db: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT time, model, port, data FROM trajectory ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query trajectory: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Time, &r.Model, &r.Port, &r.Data); err != nil {
			return nil, fmt.Errorf("scan trajectory: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
