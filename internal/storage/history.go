package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rewired-gh/cricketoracle/internal/models"
	_ "modernc.org/sqlite"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS predictions (
	id           TEXT PRIMARY KEY,
	team1        TEXT NOT NULL,
	team2        TEXT NOT NULL,
	team1_pct    REAL NOT NULL,
	team2_pct    REAL NOT NULL,
	team1_chance REAL NOT NULL,
	team2_chance REAL NOT NULL,
	verdict      TEXT NOT NULL,
	snapshot_id  TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
`

// History records served predictions in SQLite. Team statistics are never
// persisted; they are rebuilt from the dataset on every load.
type History struct {
	db         *sql.DB
	maxEntries int
}

// OpenHistory opens or creates the history database at path.
// maxEntries bounds the table size on Rotate; zero or less keeps everything.
func OpenHistory(path string, maxEntries int) (*History, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// A single connection avoids SQLITE_BUSY between concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return &History{db: db, maxEntries: maxEntries}, nil
}

// Record stores a prediction.
func (h *History) Record(ctx context.Context, p *models.PredictionResult) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid prediction: %w", err)
	}

	const q = `
	INSERT INTO predictions (id, team1, team2, team1_pct, team2_pct, team1_chance, team2_chance, verdict, snapshot_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := h.db.ExecContext(ctx, q,
		p.ID, p.Team1, p.Team2,
		p.Team1Pct, p.Team2Pct,
		p.Team1Chance, p.Team2Chance,
		p.Verdict, p.SnapshotID, p.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting prediction %s: %w", p.ID, err)
	}
	return nil
}

// Recent returns up to limit predictions, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]models.PredictionResult, error) {
	const q = `
	SELECT id, team1, team2, team1_pct, team2_pct, team1_chance, team2_chance, verdict, snapshot_id, created_at
	FROM predictions
	ORDER BY created_at DESC, rowid DESC
	LIMIT ?
	`
	rows, err := h.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("querying predictions: %w", err)
	}
	defer rows.Close()

	var out []models.PredictionResult
	for rows.Next() {
		var (
			p       models.PredictionResult
			created int64
		)
		if err := rows.Scan(
			&p.ID, &p.Team1, &p.Team2,
			&p.Team1Pct, &p.Team2Pct,
			&p.Team1Chance, &p.Team2Chance,
			&p.Verdict, &p.SnapshotID, &created,
		); err != nil {
			return nil, fmt.Errorf("scanning prediction row: %w", err)
		}
		p.CreatedAt = time.Unix(0, created)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prediction rows: %w", err)
	}
	return out, nil
}

// Rotate removes the oldest predictions beyond the configured maximum.
func (h *History) Rotate(ctx context.Context) (int64, error) {
	if h.maxEntries <= 0 {
		return 0, nil
	}
	const q = `
	DELETE FROM predictions
	WHERE rowid NOT IN (
		SELECT rowid FROM predictions ORDER BY created_at DESC, rowid DESC LIMIT ?
	)
	`
	res, err := h.db.ExecContext(ctx, q, h.maxEntries)
	if err != nil {
		return 0, fmt.Errorf("rotating predictions: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}
