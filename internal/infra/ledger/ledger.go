// Package ledger keeps a SQLite record of every sampled timestamp, so failed frames can be
// listed after the run and re-runs can be compared.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/forPelevin/harvester/internal/types"
	_ "github.com/mattn/go-sqlite3"
)

type Ledger struct {
	conn *sql.DB
}

func Open(path string) (*Ledger, error) {
	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	// one writer; the sampler's worker pool shares this handle
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ledger: %w", err)
	}

	l := &Ledger{conn: conn}
	if err := l.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create ledger tables: %w", err)
	}
	return l, nil
}

func (l *Ledger) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS frames (
		video TEXT NOT NULL,
		timestamp_s INTEGER NOT NULL,
		frame_index INTEGER NOT NULL,
		path TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (video, timestamp_s)
	);
	`
	_, err := l.conn.Exec(query)
	return err
}

// Record upserts the row for (video, timestamp), so a re-run replaces the previous outcome.
func (l *Ledger) Record(ctx context.Context, r types.FrameRecord) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	query := `
		INSERT OR REPLACE INTO frames (
			video, timestamp_s, frame_index, path, status, error, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := l.conn.ExecContext(ctx, query,
		r.Video,
		r.TimestampSec,
		r.FrameIndex,
		r.Path,
		r.Status,
		r.Error,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record frame %s@%ds: %w", r.Video, r.TimestampSec, err)
	}
	return nil
}

// Frames lists the rows for video ordered by timestamp.
func (l *Ledger) Frames(ctx context.Context, video string) ([]types.FrameRecord, error) {
	query := `
		SELECT video, timestamp_s, frame_index, path, status, error, updated_at
		FROM frames
		WHERE video = ?
		ORDER BY timestamp_s`

	rows, err := l.conn.QueryContext(ctx, query, video)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	var out []types.FrameRecord
	for rows.Next() {
		var r types.FrameRecord
		if err := rows.Scan(
			&r.Video,
			&r.TimestampSec,
			&r.FrameIndex,
			&r.Path,
			&r.Status,
			&r.Error,
			&r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (l *Ledger) Close() error {
	return l.conn.Close()
}
