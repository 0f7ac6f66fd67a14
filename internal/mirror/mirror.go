// Package mirror exports the day index to SQLite so that tools outside the
// process (the days command, scripts, BI tools) can query it. The mirror is
// write-only from the indexer's point of view: it is never loaded back, and
// the index is always rebuilt from the vault.
package mirror

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/daymark/internal/checksum"
	"github.com/starford/daymark/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS day_items (
	day          TEXT    NOT NULL,
	position     INTEGER NOT NULL,
	kind         TEXT    NOT NULL,
	display_name TEXT    NOT NULL,
	path         TEXT    NOT NULL,
	line         INTEGER,
	PRIMARY KEY (day, position)
);

CREATE INDEX IF NOT EXISTS idx_day_items_path ON day_items(path);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DB wraps a sql.DB holding the mirrored index.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("mirror: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("mirror: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("mirror: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Row is one mirrored item.
type Row struct {
	Day         string `json:"day"`
	Position    int    `json:"position"`
	Kind        string `json:"kind"`
	DisplayName string `json:"display_name"`
	Path        string `json:"path"`
	Line        *int   `json:"line,omitempty"`
}

// DayCount is the number of items on one day.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Meta describes the last write.
type Meta struct {
	Mode      string
	Checksum  string
	WrittenAt time.Time
}

func rowsOf(snapshot map[string][]models.Item) []Row {
	days := make([]string, 0, len(snapshot))
	for day := range snapshot {
		days = append(days, day)
	}
	sort.Strings(days)

	var out []Row
	for _, day := range days {
		for i, it := range snapshot[day] {
			r := Row{
				Day:         day,
				Position:    i,
				Kind:        string(it.Kind()),
				DisplayName: it.Label(),
				Path:        it.Source(),
			}
			if tag, ok := it.(models.TagItem); ok {
				line := tag.Line
				r.Line = &line
			}
			out = append(out, r)
		}
	}
	return out
}

// Replace overwrites the mirror with snapshot in one transaction. It does
// nothing and returns false when the content is unchanged since the last
// write.
func (db *DB) Replace(snapshot map[string][]models.Item, mode string) (bool, error) {
	rows := rowsOf(snapshot)
	sum, err := checksum.SumJSON(struct {
		Mode string `json:"mode"`
		Rows []Row  `json:"rows"`
	}{mode, rows})
	if err != nil {
		return false, fmt.Errorf("mirror: %w", err)
	}

	prev, err := db.Meta()
	if err != nil {
		return false, err
	}
	if prev.Checksum == sum {
		return false, nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return false, fmt.Errorf("mirror: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(`DELETE FROM day_items`); err != nil {
		return false, fmt.Errorf("mirror: clear: %w", err)
	}
	if len(rows) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO day_items (day, position, kind, display_name, path, line) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return false, fmt.Errorf("mirror: prepare insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.Exec(r.Day, r.Position, r.Kind, r.DisplayName, r.Path, r.Line); err != nil {
				return false, fmt.Errorf("mirror: insert: %w", err)
			}
		}
	}

	meta := map[string]string{
		"mode":       mode,
		"checksum":   sum,
		"written_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range meta {
		if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v); err != nil {
			return false, fmt.Errorf("mirror: write meta: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("mirror: commit: %w", err)
	}
	return true, nil
}

// Meta returns the bookkeeping of the last write. A fresh database yields
// the zero Meta.
func (db *DB) Meta() (Meta, error) {
	rows, err := db.conn.Query(`SELECT key, value FROM meta`)
	if err != nil {
		return Meta{}, fmt.Errorf("mirror: meta: %w", err)
	}
	defer rows.Close()
	var m Meta
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Meta{}, err
		}
		switch k {
		case "mode":
			m.Mode = v
		case "checksum":
			m.Checksum = v
		case "written_at":
			m.WrittenAt, _ = time.Parse(time.RFC3339Nano, v)
		}
	}
	return m, rows.Err()
}

// ItemsForDay returns the mirrored items of day in index order.
func (db *DB) ItemsForDay(day string) ([]Row, error) {
	rows, err := db.conn.Query(`
		SELECT day, position, kind, display_name, path, line
		FROM day_items WHERE day = ? ORDER BY position`, day)
	if err != nil {
		return nil, fmt.Errorf("mirror: items for day: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var line sql.NullInt64
		if err := rows.Scan(&r.Day, &r.Position, &r.Kind, &r.DisplayName, &r.Path, &line); err != nil {
			return nil, err
		}
		if line.Valid {
			l := int(line.Int64)
			r.Line = &l
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Days returns per-day counts for days in [from, to]. Empty bounds are open.
func (db *DB) Days(from, to string) ([]DayCount, error) {
	if from != "" && to != "" && from > to {
		return nil, errors.New("mirror: from is after to")
	}
	q := `SELECT day, count(*) FROM day_items WHERE 1 = 1`
	var args []any
	if from != "" {
		q += ` AND day >= ?`
		args = append(args, from)
	}
	if to != "" {
		q += ` AND day <= ?`
		args = append(args, to)
	}
	q += ` GROUP BY day ORDER BY day`

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("mirror: days: %w", err)
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}
