package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/slumber/internal/domain/habit"
	"github.com/okian/slumber/internal/domain/model"
	"github.com/okian/slumber/internal/domain/quality"
	"github.com/okian/slumber/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
	id         TEXT PRIMARY KEY,
	record     TEXT NOT NULL,
	quality    TEXT NOT NULL,
	score      INTEGER NOT NULL,
	factors    TEXT NOT NULL DEFAULT '[]',
	tips       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
`

// Files created before factors were stored lack the column.
const (
	hasFactorsColumn = `SELECT COUNT(*) FROM pragma_table_info('predictions') WHERE name = 'factors'`
	addFactorsColumn = `ALTER TABLE predictions ADD COLUMN factors TEXT NOT NULL DEFAULT '[]'`
)

const selectColumns = `SELECT id, record, quality, score, factors, tips, created_at FROM predictions`

// SQLiteStore persists predictions in a SQLite database file.
type SQLiteStore struct {
	db      *sql.DB
	updater *updater
	closed  atomic.Bool
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	o := buildOptions(opts)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure history db: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}

	s := &SQLiteStore{db: db}
	s.updater = startUpdater(ctx, o.metricsUpdateInterval, s.Count)
	return s, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	var n int
	if err := db.QueryRowContext(ctx, hasFactorsColumn).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		if _, err := db.ExecContext(ctx, addFactorsColumn); err != nil {
			return err
		}
	}
	return nil
}

// Save implements Store.Save. Fails with ErrClosed after Close.
func (s *SQLiteStore) Save(ctx context.Context, p model.Prediction) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := validate(p); err != nil {
		return err
	}
	start := time.Now()

	record, err := json.Marshal(p.Record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	factors, err := json.Marshal(p.Factors)
	if err != nil {
		return fmt.Errorf("encode factors: %w", err)
	}
	tips, err := json.Marshal(p.Tips)
	if err != nil {
		return fmt.Errorf("encode tips: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO predictions (id, record, quality, score, factors, tips, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, string(record), string(p.Quality), p.Score, string(factors), string(tips), p.CreatedAt.UnixNano(),
	)
	if err != nil {
		return s.wrap("save prediction", err)
	}
	metrics.RecordHistoryWriteLatency(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

// Get implements Store.Get.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Prediction, error) {
	if s.closed.Load() {
		return model.Prediction{}, ErrClosed
	}
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	p, err := scanPrediction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Prediction{}, ErrNotFound
	}
	if err != nil {
		return model.Prediction{}, s.wrap("get prediction", err)
	}
	return p, nil
}

// Recent implements Store.Recent.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]model.Prediction, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, s.wrap("list predictions", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Prediction, 0, n)
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, s.wrap("scan prediction", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list predictions", err)
	}
	return out, nil
}

// Count implements Store.Count. Returns 0 if the query fails.
func (s *SQLiteStore) Count(ctx context.Context) int {
	if s.closed.Load() {
		return 0
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close stops the metrics updater and closes the database. Later calls
// are no-ops.
func (s *SQLiteStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.updater.stop()
	return s.db.Close()
}

func (s *SQLiteStore) wrap(op string, err error) error {
	if s.closed.Load() || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrediction(sc scanner) (model.Prediction, error) {
	var (
		p         model.Prediction
		record    string
		q         string
		factors   string
		tips      string
		createdAt int64
	)
	if err := sc.Scan(&p.ID, &record, &q, &p.Score, &factors, &tips, &createdAt); err != nil {
		return model.Prediction{}, err
	}
	var r habit.Record
	if err := json.Unmarshal([]byte(record), &r); err != nil {
		return model.Prediction{}, fmt.Errorf("decode record: %w", err)
	}
	parsed, err := quality.Parse(q)
	if err != nil {
		return model.Prediction{}, err
	}
	if err := json.Unmarshal([]byte(factors), &p.Factors); err != nil {
		return model.Prediction{}, fmt.Errorf("decode factors: %w", err)
	}
	if err := json.Unmarshal([]byte(tips), &p.Tips); err != nil {
		return model.Prediction{}, fmt.Errorf("decode tips: %w", err)
	}
	p.Record = r
	p.Quality = parsed
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	return p, nil
}
