// Package history stores connection statistics samples in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yllada/goras/common"
	"github.com/yllada/goras/ras"
)

const schema = `
CREATE TABLE IF NOT EXISTS samples (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at     INTEGER NOT NULL,
	handle          INTEGER NOT NULL,
	entry_name      TEXT    NOT NULL,
	entry_id        TEXT    NOT NULL,
	bytes_tx        INTEGER NOT NULL,
	bytes_rx        INTEGER NOT NULL,
	frames_tx       INTEGER NOT NULL,
	frames_rx       INTEGER NOT NULL,
	errors          INTEGER NOT NULL,
	duration_ms     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_samples_entry_time ON samples (entry_name, recorded_at);
`

// Sample is one statistics reading of a connection.
type Sample struct {
	Time              time.Time     `json:"time"`
	Handle            ras.Handle    `json:"handle"`
	EntryName         string        `json:"entry_name"`
	EntryID           uuid.UUID     `json:"entry_id"`
	BytesTransmitted  uint64        `json:"bytes_transmitted"`
	BytesReceived     uint64        `json:"bytes_received"`
	FramesTransmitted uint64        `json:"frames_transmitted"`
	FramesReceived    uint64        `json:"frames_received"`
	Errors            uint64        `json:"errors"`
	Duration          time.Duration `json:"duration"`
}

// NewSample builds a sample from a connection and its statistics.
func NewSample(conn ras.Conn, stats *ras.ConnectionStatistics, at time.Time) Sample {
	return Sample{
		Time:              at,
		Handle:            conn.Handle(),
		EntryName:         conn.EntryName(),
		EntryID:           conn.EntryID(),
		BytesTransmitted:  stats.BytesTransmitted,
		BytesReceived:     stats.BytesReceived,
		FramesTransmitted: stats.FramesTransmitted,
		FramesReceived:    stats.FramesReceived,
		Errors:            stats.TotalErrors(),
		Duration:          stats.ConnectionDuration,
	}
}

// Store wraps the SQLite history database.
type Store struct {
	db     *sql.DB
	path   string
	logger common.Logger
}

// Open opens or creates the database at path.
func Open(path string, logger common.Logger) (*Store, error) {
	logger = common.LoggerOrDefault(logger)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	logger.Debug("History database opened at %s", path)
	return &Store{db: db, path: path, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close history database: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Record stores samples in a single transaction.
func (s *Store) Record(ctx context.Context, samples ...Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (recorded_at, handle, entry_name, entry_id, bytes_tx, bytes_rx,
			frames_tx, frames_rx, errors, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, sm := range samples {
		_, err := stmt.ExecContext(ctx,
			sm.Time.UnixNano(),
			int64(sm.Handle),
			sm.EntryName,
			sm.EntryID.String(),
			int64(sm.BytesTransmitted),
			int64(sm.BytesReceived),
			int64(sm.FramesTransmitted),
			int64(sm.FramesReceived),
			int64(sm.Errors),
			sm.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert sample: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit samples: %w", err)
	}
	return nil
}

// Query selects samples.
type Query struct {
	// EntryName restricts samples to one entry. Empty selects all entries.
	EntryName string
	// Since excludes samples recorded before it. Zero selects all.
	Since time.Time
	// Limit caps the number of samples, newest first. Zero means no limit.
	Limit int
}

// Samples returns the samples matching q, oldest first.
func (s *Store) Samples(ctx context.Context, q Query) ([]Sample, error) {
	sqlQuery := `
		SELECT recorded_at, handle, entry_name, entry_id, bytes_tx, bytes_rx,
			frames_tx, frames_rx, errors, duration_ms
		FROM samples
		WHERE (? = '' OR entry_name = ?) AND recorded_at >= ?
		ORDER BY recorded_at DESC, id DESC`
	args := []any{q.EntryName, q.EntryName, sinceNanos(q.Since)}
	if q.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var recordedAt, handle, tx, rx, ftx, frx, errs, durMs int64
		var entryName, entryID string
		if err := rows.Scan(&recordedAt, &handle, &entryName, &entryID, &tx, &rx, &ftx, &frx, &errs, &durMs); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		id, err := uuid.Parse(entryID)
		if err != nil {
			id = uuid.Nil
		}
		out = append(out, Sample{
			Time:              time.Unix(0, recordedAt),
			Handle:            ras.Handle(handle),
			EntryName:         entryName,
			EntryID:           id,
			BytesTransmitted:  uint64(tx),
			BytesReceived:     uint64(rx),
			FramesTransmitted: uint64(ftx),
			FramesReceived:    uint64(frx),
			Errors:            uint64(errs),
			Duration:          time.Duration(durMs) * time.Millisecond,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Entries returns the distinct entry names with samples.
func (s *Store) Entries(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT entry_name FROM samples ORDER BY entry_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Prune deletes samples recorded before cutoff and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM samples WHERE recorded_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune samples: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Pruned %d history sample(s) older than %s", n, cutoff.Format(time.RFC3339))
	}
	return n, nil
}

func sinceNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
