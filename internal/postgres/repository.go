// Package postgres is the reporting sink: audit events for score and
// practice activity, plus periodic leaderboard snapshots archived by the
// worker. The document store remains the source of truth.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flashdeck-backend/internal/config"
	"github.com/flashdeck-backend/internal/domain"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS score_events (
			id BIGSERIAL PRIMARY KEY,
			deck_id VARCHAR(64) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			user_email VARCHAR(255),
			correct INT NOT NULL,
			incorrect INT NOT NULL,
			source VARCHAR(20) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS practice_events (
			id BIGSERIAL PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			deck_id VARCHAR(64) NOT NULL,
			practiced_on DATE NOT NULL,
			streak INT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS leaderboard_snapshots (
			deck_id VARCHAR(64) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			user_email VARCHAR(255),
			correct INT NOT NULL,
			incorrect INT NOT NULL,
			last_attempt VARCHAR(32),
			archived_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (deck_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_score_events_deck ON score_events(deck_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_practice_events_user ON practice_events(user_id, practiced_on DESC)`,
	}

	for _, migration := range migrations {
		if _, err := r.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// RecordScoreEvent records a leaderboard update for auditing
func (r *Repository) RecordScoreEvent(ctx context.Context, event domain.ScoreEvent) error {
	query := `
		INSERT INTO score_events (deck_id, user_id, user_email, correct, incorrect, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		event.DeckID,
		event.UserID,
		event.UserEmail,
		event.Correct,
		event.Incorrect,
		event.Source,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("recording score event: %w", err)
	}
	return nil
}

// RecordPracticeEvent records a practice-log transition for auditing
func (r *Repository) RecordPracticeEvent(ctx context.Context, event domain.PracticeEvent) error {
	query := `
		INSERT INTO practice_events (user_id, deck_id, practiced_on, streak, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		event.UserID,
		event.DeckID,
		event.PracticedOn,
		event.Streak,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("recording practice event: %w", err)
	}
	return nil
}

// BatchUpsertSnapshots archives leaderboard entries, replacing any prior
// snapshot for the same (deck, user) key
func (r *Repository) BatchUpsertSnapshots(ctx context.Context, rows []domain.LeaderboardSnapshot) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO leaderboard_snapshots (deck_id, user_id, user_email, correct, incorrect, last_attempt, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		ON CONFLICT (deck_id, user_id)
		DO UPDATE SET user_email = $3, correct = $4, incorrect = $5, last_attempt = $6, archived_at = CURRENT_TIMESTAMP
	`
	for _, row := range rows {
		batch.Queue(query,
			row.DeckID,
			row.UserID,
			row.Entry.UserEmail,
			row.Entry.Correct,
			row.Entry.Incorrect,
			row.Entry.LastAttempt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("archiving snapshots: %w", err)
		}
	}
	return nil
}

// SnapshotCount returns the number of archived entries for a deck
func (r *Repository) SnapshotCount(ctx context.Context, deckID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leaderboard_snapshots WHERE deck_id = $1`, deckID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting snapshots: %w", err)
	}
	return count, nil
}
