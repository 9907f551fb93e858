package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khaledhikmat/dfd-go/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS video_analyses (
	id          UUID PRIMARY KEY,
	hash        TEXT NOT NULL,
	filename    TEXT NOT NULL,
	is_fake     BOOLEAN NOT NULL,
	fake_prob   DOUBLE PRECISION NOT NULL,
	frame_count INTEGER NOT NULL,
	payload     JSONB NOT NULL,
	analyzed_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS video_analyses_hash_idx ON video_analyses (hash, analyzed_at DESC);
CREATE TABLE IF NOT EXISTS screening_events (
	id         BIGSERIAL PRIMARY KEY,
	kind       TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

type postgresService struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgres connects to the database and makes sure the schema exists.
func NewPostgres(ctx context.Context, databaseURL string) (IService, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &postgresService{
		pool:    pool,
		timeout: 10 * time.Second,
	}, nil
}

func (svc *postgresService) NewAnalysis(analysis model.VideoAnalysis) error {
	ctx, cancel := context.WithTimeout(context.Background(), svc.timeout)
	defer cancel()

	payload, err := json.Marshal(analysis)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO video_analyses (
			id, hash, filename, is_fake, fake_prob, frame_count, payload, analyzed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = svc.pool.Exec(ctx, query,
		analysis.ID, analysis.Hash, analysis.Filename,
		analysis.Result.IsFake, analysis.Result.AverageFakeProbability, analysis.Result.FrameCount,
		payload, analysis.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (svc *postgresService) RetrieveAnalyses() ([]model.VideoAnalysis, error) {
	ctx, cancel := context.WithTimeout(context.Background(), svc.timeout)
	defer cancel()

	rows, err := svc.pool.Query(ctx, `SELECT payload FROM video_analyses ORDER BY analyzed_at`)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	analyses := []model.VideoAnalysis{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}

		var analysis model.VideoAnalysis
		if err := json.Unmarshal(payload, &analysis); err != nil {
			return nil, err
		}
		analyses = append(analyses, analysis)
	}

	return analyses, rows.Err()
}

func (svc *postgresService) RetrieveAnalysisByHash(hash string) (model.VideoAnalysis, error) {
	ctx, cancel := context.WithTimeout(context.Background(), svc.timeout)
	defer cancel()

	var payload []byte
	err := svc.pool.QueryRow(ctx,
		`SELECT payload FROM video_analyses WHERE hash=$1 ORDER BY analyzed_at DESC LIMIT 1`,
		hash,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.VideoAnalysis{}, fmt.Errorf("analysis for hash %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return model.VideoAnalysis{}, fmt.Errorf("find analysis by hash: %w", err)
	}

	var analysis model.VideoAnalysis
	if err := json.Unmarshal(payload, &analysis); err != nil {
		return model.VideoAnalysis{}, err
	}
	return analysis, nil
}

func (svc *postgresService) NewError(err interface{}) error {
	record := toErrorRecord(err)
	record.Timestamp = time.Now().Unix()
	return svc.newEvent("error", record)
}

func (svc *postgresService) NewWatcherStats(stats model.WatcherStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newEvent("watcher-stats", stats)
}

func (svc *postgresService) NewWorkerStats(stats model.WorkerStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newEvent("worker-stats", stats)
}

func (svc *postgresService) NewAlerterStats(stats model.AlerterStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newEvent("alerter-stats", stats)
}

func (svc *postgresService) Close() error {
	svc.pool.Close()
	return nil
}

func (svc *postgresService) newEvent(kind string, v interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), svc.timeout)
	defer cancel()

	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	if _, err := svc.pool.Exec(ctx, `INSERT INTO screening_events (kind, payload) VALUES ($1,$2)`, kind, payload); err != nil {
		return fmt.Errorf("insert %s: %w", kind, err)
	}
	return nil
}
