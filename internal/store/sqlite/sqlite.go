package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/chatguard-server/internal/store"
)

// Schema creates the message table and its indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS chat_messages (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id           TEXT NOT NULL DEFAULT 'general',
	username          TEXT NOT NULL,
	message           TEXT NOT NULL,
	toxicity_score    REAL NOT NULL DEFAULT 0,
	is_toxic          BOOLEAN NOT NULL DEFAULT 0,
	toxic_categories  TEXT NOT NULL DEFAULT '{}',
	intent            TEXT,
	intent_confidence REAL NOT NULL DEFAULT 0,
	tone              TEXT,
	tone_confidence   REAL NOT NULL DEFAULT 0,
	coaching_message  TEXT,
	suggested_rewrite TEXT,
	created_at        DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_room ON chat_messages (room_id, id);
CREATE INDEX IF NOT EXISTS idx_chat_messages_username ON chat_messages (username);
`

const selectColumns = `
	SELECT id, room_id, username, message, toxicity_score, is_toxic, toxic_categories,
		COALESCE(intent, ''), intent_confidence, COALESCE(tone, ''), tone_confidence,
		coaching_message, suggested_rewrite, created_at
	FROM chat_messages
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// ApplySchema is a NewWithSetup hook that creates the message table.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

// New opens (or creates) the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Tests use it with ":memory:".
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single connection: SQLite serializes writers and :memory: is per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append persists msg and assigns its ID and CreatedAt.
func (s *SQLiteStore) Append(ctx context.Context, msg *store.Message) error {
	categories, err := store.EncodeCategories(msg.Categories)
	if err != nil {
		return err
	}
	createdAt := time.Now().UTC().Truncate(time.Microsecond)

	query := `
		INSERT INTO chat_messages (
			room_id, username, message, toxicity_score, is_toxic, toxic_categories,
			intent, intent_confidence, tone, tone_confidence,
			coaching_message, suggested_rewrite, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		msg.Room, msg.Username, msg.Text, msg.ToxicityScore, msg.IsToxic, categories,
		msg.Intent, msg.IntentConfidence, msg.Tone, msg.ToneConfidence,
		nullString(msg.Coaching), nullString(msg.Rewrite), createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	msg.CreatedAt = createdAt
	return nil
}

// List returns up to limit messages of room, newest first.
func (s *SQLiteStore) List(ctx context.Context, room string, limit int) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE room_id = ?
		ORDER BY id DESC
		LIMIT ?
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
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*store.Message, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+`WHERE id = ?`, id)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return msg, nil
}

// Delete removes a message by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Stats aggregates totals and intent/tone breakdowns.
func (s *SQLiteStore) Stats(ctx context.Context) (*store.Stats, error) {
	stats := &store.Stats{
		Intents: make(map[string]int64),
		Tones:   make(map[string]int64),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_toxic THEN 1 ELSE 0 END), 0)
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

// breakdown counts messages per distinct value of column (intent or tone).
func (s *SQLiteStore) breakdown(ctx context.Context, column string, into map[string]int64) error {
	query := fmt.Sprintf(`
		SELECT %[1]s, COUNT(*)
		FROM chat_messages
		WHERE %[1]s IS NOT NULL AND %[1]s != ''
		GROUP BY %[1]s
	`, column)

	rows, err := s.db.QueryContext(ctx, query)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (*store.Message, error) {
	var (
		msg        store.Message
		categories string
		coaching   sql.NullString
		rewrite    sql.NullString
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
		&coaching,
		&rewrite,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}

	msg.Categories, err = store.DecodeCategories([]byte(categories))
	if err != nil {
		return nil, err
	}
	if coaching.Valid {
		msg.Coaching = &coaching.String
	}
	if rewrite.Valid {
		msg.Rewrite = &rewrite.String
	}
	return &msg, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
