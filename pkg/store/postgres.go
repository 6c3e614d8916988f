package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chenBenjamin97/shot-labeler/pkg/shot"
	_ "github.com/lib/pq" //PostgreSQL driver
)

const createLabelsTable = `
CREATE TABLE IF NOT EXISTS shot_labels (
	video_id   TEXT        NOT NULL,
	source     TEXT        NOT NULL,
	data       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (video_id, source)
)`

const upsertLabels = `
INSERT INTO shot_labels (video_id, source, data, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (video_id, source) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`

//confirmed sorts first
const selectLabels = `
SELECT source, data FROM shot_labels
WHERE video_id = $1
ORDER BY source = 'confirmed' DESC
LIMIT 1`

const confirmLabels = `
INSERT INTO shot_labels (video_id, source, data, updated_at)
SELECT video_id, 'confirmed', data, now() FROM shot_labels
WHERE video_id = $1 AND source = 'generated'
ON CONFLICT (video_id, source) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`

//PostgresStore keeps the labels as JSONB rows keyed by video and source.
type PostgresStore struct {
	conn *sql.DB
}

//NewPostgresStore opens dsn, pings it and creates the labels table when missing.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresStore: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewPostgresStore: failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, createLabelsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewPostgresStore: failed to create table: %w", err)
	}

	return &PostgresStore{conn: db}, nil
}

func (s *PostgresStore) Save(ctx context.Context, source Source, labels *shot.VideoLabels) error {
	if err := validSource(source); err != nil {
		return err
	}
	if labels == nil || labels.VideoID == "" {
		return errors.New("Save: labels without video id")
	}

	data, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	if _, err := s.conn.ExecContext(ctx, upsertLabels, labels.VideoID, string(source), data); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, videoID string) (*shot.VideoLabels, Source, error) {
	var source string
	var data []byte
	err := s.conn.QueryRowContext(ctx, selectLabels, videoID).Scan(&source, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("%w: '%s'", ErrNotFound, videoID)
	}
	if err != nil {
		return nil, "", fmt.Errorf("Get: %w", err)
	}

	var labels shot.VideoLabels
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, "", fmt.Errorf("Get: Could not parse %s labels of '%s', got '%v'", source, videoID, err)
	}
	return &labels, Source(source), nil
}

func (s *PostgresStore) Confirm(ctx context.Context, videoID string) error {
	res, err := s.conn.ExecContext(ctx, confirmLabels, videoID)
	if err != nil {
		return fmt.Errorf("Confirm: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Confirm: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: no generated labels for '%s'", ErrNotFound, videoID)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
