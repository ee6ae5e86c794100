// Package store persists game sessions behind the game.Store interface.
// The Postgres implementation keeps each session as a JSONB document and
// serializes commands with row locks; the memory implementation backs tests
// and DB-less development.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"arthneeti/internal/game"
)

type Postgres struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

func NewPostgres(db *pgxpool.Pool, log *slog.Logger) *Postgres {
	if log == nil {
		log = slog.Default()
	}
	return &Postgres{db: db, log: log}
}

// Migrate creates the schema. Safe to run on every boot.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS arthneeti;

		CREATE TABLE IF NOT EXISTS arthneeti.sessions (
			id         uuid PRIMARY KEY,
			doc        jsonb NOT NULL,
			is_active  boolean NOT NULL DEFAULT true,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS sessions_active_idx
			ON arthneeti.sessions (updated_at) WHERE is_active;

		CREATE TABLE IF NOT EXISTS arthneeti.game_records (
			session_id   uuid PRIMARY KEY REFERENCES arthneeti.sessions (id),
			display_name text NOT NULL,
			career_stage text NOT NULL,
			end_reason   text NOT NULL,
			net_worth    bigint NOT NULL,
			wealth       bigint NOT NULL,
			happiness    int NOT NULL,
			credit_score int NOT NULL,
			literacy     int NOT NULL,
			months       int NOT NULL,
			score        bigint NOT NULL,
			persona      text NOT NULL,
			ended_at     timestamptz NOT NULL
		);
		CREATE INDEX IF NOT EXISTS game_records_score_idx
			ON arthneeti.game_records (score DESC);

		CREATE TABLE IF NOT EXISTS arthneeti.player_profiles (
			display_name text PRIMARY KEY,
			doc          jsonb NOT NULL,
			updated_at   timestamptz NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, s *game.Session) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(ctx, `
		INSERT INTO arthneeti.sessions (id, doc, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, doc, s.IsActive, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*game.Session, error) {
	var doc []byte
	err := p.db.QueryRow(ctx, `
		SELECT doc FROM arthneeti.sessions WHERE id = $1
	`, id).Scan(&doc)
	if err == pgx.ErrNoRows {
		return nil, game.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var s game.Session
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

const (
	maxTxAttempts  = 8
	initialBackoff = 75 * time.Millisecond
)

// Update loads the session under a row lock, applies fn, and writes the
// document back, all in one serializable transaction. Serialization
// conflicts are retried with doubling backoff.
func (p *Postgres) Update(ctx context.Context, id string, fn func(*game.Session) error) (*game.Session, error) {
	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		sess, err := p.updateOnce(ctx, id, fn)
		if err == nil {
			return sess, nil
		}
		if !isSerializationError(err) {
			return nil, err
		}
		lastErr = err
		p.log.Debug("session update retry", "session_id", id, "attempt", attempt+1)
		if err := sleepWithContext(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("session update gave up after %d attempts: %w", maxTxAttempts, lastErr)
}

func (p *Postgres) updateOnce(ctx context.Context, id string, fn func(*game.Session) error) (*game.Session, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var doc []byte
	err = tx.QueryRow(ctx, `
		SELECT doc FROM arthneeti.sessions WHERE id = $1 FOR UPDATE
	`, id).Scan(&doc)
	if err == pgx.ErrNoRows {
		return nil, game.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var s game.Session
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if err := fn(&s); err != nil {
		return nil, err
	}
	s.UpdatedAt = time.Now().UTC()

	out, err := json.Marshal(&s)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `
		UPDATE arthneeti.sessions
		SET doc = $2, is_active = $3, updated_at = $4
		WHERE id = $1
	`, id, out, s.IsActive, s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &s, nil
}

// RecordResult appends the finished-game row and folds it into the player's
// profile, in one transaction. A session already recorded changes nothing,
// so the profile absorbs each game exactly once.
func (p *Postgres) RecordResult(ctx context.Context, rec game.GameRecord) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO arthneeti.game_records
			(session_id, display_name, career_stage, end_reason, net_worth,
			 wealth, happiness, credit_score, literacy, months, score, persona, ended_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (session_id) DO NOTHING
	`, rec.SessionID, rec.DisplayName, rec.CareerStage, rec.EndReason, rec.NetWorth,
		rec.Wealth, rec.Happiness, rec.CreditScore, rec.Literacy, rec.Months,
		rec.Score, rec.Persona, rec.EndedAt)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}

	var doc []byte
	var prof game.PlayerProfile
	err = tx.QueryRow(ctx, `
		SELECT doc FROM arthneeti.player_profiles WHERE display_name = $1 FOR UPDATE
	`, rec.DisplayName).Scan(&doc)
	switch {
	case err == pgx.ErrNoRows:
	case err != nil:
		return err
	default:
		if err := json.Unmarshal(doc, &prof); err != nil {
			return fmt.Errorf("decode profile %s: %w", rec.DisplayName, err)
		}
	}
	prof.Absorb(rec)

	out, err := json.Marshal(&prof)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO arthneeti.player_profiles (display_name, doc, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (display_name) DO UPDATE
		SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at
	`, rec.DisplayName, out, prof.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Profile(ctx context.Context, displayName string) (*game.PlayerProfile, error) {
	var doc []byte
	err := p.db.QueryRow(ctx, `
		SELECT doc FROM arthneeti.player_profiles WHERE display_name = $1
	`, displayName).Scan(&doc)
	if err == pgx.ErrNoRows {
		return nil, game.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	var prof game.PlayerProfile
	if err := json.Unmarshal(doc, &prof); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", displayName, err)
	}
	return &prof, nil
}

func (p *Postgres) Leaderboard(ctx context.Context, limit int) ([]game.LeaderboardRow, error) {
	rows, err := p.db.Query(ctx, `
		WITH ranked AS (
			SELECT display_name, net_worth, score, persona, end_reason, months,
			       RANK() OVER (ORDER BY score DESC, ended_at ASC) AS rank
			FROM arthneeti.game_records
		)
		SELECT rank, display_name, net_worth, score, persona, end_reason, months
		FROM ranked
		ORDER BY rank
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.LeaderboardRow
	for rows.Next() {
		var r game.LeaderboardRow
		if err := rows.Scan(&r.Rank, &r.DisplayName, &r.NetWorth, &r.Score,
			&r.Persona, &r.EndReason, &r.Months); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) StaleSessions(ctx context.Context, idleFor time.Duration, limit int) ([]string, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id FROM arthneeti.sessions
		WHERE is_active AND updated_at < now() - make_interval(secs => $1)
		ORDER BY updated_at
		LIMIT $2
	`, idleFor.Seconds(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected.
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
