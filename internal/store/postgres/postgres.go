package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vovakirdan/chatguard-server/internal/store"
)

// Schema creates the message table and its indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS chat_messages (
	id                BIGSERIAL PRIMARY KEY,
	room_id           TEXT NOT NULL DEFAULT 'general',
	username          TEXT NOT NULL,
	message           TEXT NOT NULL,
	toxicity_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
	is_toxic          BOOLEAN NOT NULL DEFAULT FALSE,
	toxic_categories  JSONB NOT NULL DEFAULT '{}'::jsonb,
	intent            TEXT,
	intent_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	tone              TEXT,
	tone_confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
	coaching_message  TEXT,
	suggested_rewrite TEXT,
	created_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_room ON chat_messages (room_id, id);
CREATE INDEX IF NOT EXISTS idx_chat_messages_username ON chat_messages (username);
`

const selectColumns = `
	SELECT id, room_id, username, message, toxicity_score, is_toxic, toxic_categories::text,
		COALESCE(intent, ''), intent_confidence, COALESCE(tone, ''), tone_confidence,
		coaching_message, suggested_rewrite, created_at
	FROM chat_messages
`

// PostgresStore implements store.Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL, verifies the connection and applies the schema.
func New(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Append persists msg and assigns its ID and CreatedAt.
func (s *PostgresStore) Append(ctx context.Context, msg *store.Message) error {
	categories, err := store.EncodeCategories(msg.Categories)
	if err != nil {
		return err
	}
	createdAt := time.Now().UTC().Truncate(time.Microsecond)

	err = s.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (
			room_id, username, message, toxicity_score, is_toxic, toxic_categories,
			intent, intent_confidence, tone, tone_confidence,
			coaching_message, suggested_rewrite, created_at
		) VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`,
		msg.Room, msg.Username, msg.Text, msg.ToxicityScore, msg.IsToxic, categories,
		msg.Intent, msg.IntentConfidence, msg.Tone, msg.ToneConfidence,
		msg.Coaching, msg.Rewrite, createdAt,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	msg.CreatedAt = createdAt
	return nil
}

// List returns up to limit messages of room, newest first.
func (s *PostgresStore) List(ctx context.Context, room string, limit int) ([]*store.Message, error) {
	rows, err := s.pool.Query(ctx, selectColumns+`
		WHERE room_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, room, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// Get retrieves a message by ID.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*store.Message, error) {
	msg, err := scanMessage(s.pool.QueryRow(ctx, selectColumns+`WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return msg, nil
}

// Delete removes a message by ID.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Stats aggregates totals and intent/tone breakdowns.
func (s *PostgresStore) Stats(ctx context.Context) (*store.Stats, error) {
	stats := &store.Stats{
		Intents: make(map[string]int64),
		Tones:   make(map[string]int64),
	}

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_toxic)
		FROM chat_messages
	`).Scan(&stats.Total, &stats.Toxic)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}

	if err := s.breakdown(ctx, "intent", stats.Intents); err != nil {
		return nil, err
	}
	if err := s.breakdown(ctx, "tone", stats.Tones); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *PostgresStore) breakdown(ctx context.Context, column string, into map[string]int64) error {
	query := fmt.Sprintf(`
		SELECT %[1]s, COUNT(*)
		FROM chat_messages
		WHERE %[1]s IS NOT NULL AND %[1]s <> ''
		GROUP BY %[1]s
	`, column)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("query %s breakdown: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scan %s breakdown: %w", column, err)
		}
		into[key] = count
	}
	return rows.Err()
}

func scanMessage(row pgx.Row) (*store.Message, error) {
	var (
		msg        store.Message
		categories string
	)
	err := row.Scan(
		&msg.ID,
		&msg.Room,
		&msg.Username,
		&msg.Text,
		&msg.ToxicityScore,
		&msg.IsToxic,
		&categories,
		&msg.Intent,
		&msg.IntentConfidence,
		&msg.Tone,
		&msg.ToneConfidence,
		&msg.Coaching,
		&msg.Rewrite,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}

	msg.Categories, err = store.DecodeCategories([]byte(categories))
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
