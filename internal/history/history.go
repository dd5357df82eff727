// Package history keeps a SQLite log of sensor readings and imports.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ynabd/internal/state"

	_ "modernc.org/sqlite" // register sqlite driver
)

// fixed width so recorded_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB is the reading log.
type DB struct {
	db *sql.DB
}

// Point is one historical reading.
type Point struct {
	At     time.Time       `json:"at"`
	Amount decimal.Decimal `json:"amount"`
	Unit   state.Unit      `json:"unit"`
}

// Open opens or creates the database at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (h *DB) Close() error {
	return h.db.Close()
}

// SaveReadings appends values to the log and replaces the latest set.
func (h *DB) SaveReadings(at time.Time, values map[string]state.Value) error {
	tx, err := h.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	ts := at.UTC().Format(timeLayout)

	if _, err := tx.Exec("DELETE FROM latest"); err != nil {
		return err
	}
	for key, v := range values {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO readings (key, unit, amount, recorded_at)
			VALUES (?, ?, ?, ?)`, key, string(v.Unit), v.Amount.String(), ts); err != nil {
			return fmt.Errorf("saving %s: %w", key, err)
		}
		if _, err := tx.Exec(`INSERT INTO latest (key, unit, amount, recorded_at)
			VALUES (?, ?, ?, ?)`, key, string(v.Unit), v.Amount.String(), ts); err != nil {
			return fmt.Errorf("saving latest %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// Latest returns the most recently saved reading set.
func (h *DB) Latest() (map[string]state.Value, error) {
	rows, err := h.db.Query("SELECT key, unit, amount, recorded_at FROM latest")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]state.Value)
	for rows.Next() {
		var key, unit, amount, ts string
		if err := rows.Scan(&key, &unit, &amount, &ts); err != nil {
			return nil, err
		}
		p, err := toPoint(unit, amount, ts)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}
		out[key] = state.Value{Amount: p.Amount, Unit: p.Unit, UpdatedAt: p.At}
	}
	return out, rows.Err()
}

// History returns up to limit readings of key, newest first.
// A limit of zero or less returns all of them.
func (h *DB) History(key string, limit int) ([]Point, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := h.db.Query(`SELECT unit, amount, recorded_at FROM readings
		WHERE key = ? ORDER BY recorded_at DESC LIMIT ?`, key, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var points []Point
	for rows.Next() {
		var unit, amount, ts string
		if err := rows.Scan(&unit, &amount, &ts); err != nil {
			return nil, err
		}
		p, err := toPoint(unit, amount, ts)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// RecordImport logs a transaction import.
func (h *DB) RecordImport(at time.Time, budgetID string, count int) error {
	_, err := h.db.Exec(`INSERT INTO imports (budget_id, imported, recorded_at) VALUES (?, ?, ?)`,
		budgetID, count, at.UTC().Format(timeLayout))
	return err
}

// ImportCount sums imported transactions recorded at or after since.
func (h *DB) ImportCount(since time.Time) (int, error) {
	var n int
	err := h.db.QueryRow(`SELECT COALESCE(SUM(imported), 0) FROM imports WHERE recorded_at >= ?`,
		since.UTC().Format(timeLayout)).Scan(&n)
	return n, err
}

func toPoint(unit, amount, ts string) (Point, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Point{}, err
	}
	at, err := time.Parse(timeLayout, ts)
	if err != nil {
		return Point{}, err
	}
	return Point{At: at, Amount: d, Unit: state.Unit(unit)}, nil
}
