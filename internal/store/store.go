package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a message id does not exist.
var ErrNotFound = errors.New("message not found")

// Message represents a persisted, analyzed chat message.
// Records are immutable once written; the only mutation is deletion.
type Message struct {
	ID               int64
	Room             string
	Username         string
	Text             string
	ToxicityScore    float64
	IsToxic          bool
	Categories       map[string]float64
	Intent           string
	IntentConfidence float64
	Tone             string
	ToneConfidence   float64
	Coaching         *string
	Rewrite          *string
	CreatedAt        time.Time
}

// Stats aggregates the persisted messages.
type Stats struct {
	Total   int64
	Toxic   int64
	Intents map[string]int64
	Tones   map[string]int64
}

// Clean returns the count of non-toxic messages.
func (s *Stats) Clean() int64 {
	return s.Total - s.Toxic
}

// ToxicityRate returns the toxic share in percent, 0 when nothing is stored.
func (s *Stats) ToxicityRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Toxic) / float64(s.Total) * 100
}

// MessageStore handles message persistence.
type MessageStore interface {
	// Append persists msg and fills in its ID and CreatedAt.
	Append(ctx context.Context, msg *Message) error

	// List returns up to limit messages of a room, newest first.
	List(ctx context.Context, room string, limit int) ([]*Message, error)

	// Get retrieves a message by ID.
	Get(ctx context.Context, id int64) (*Message, error)

	// Delete removes a message. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id int64) error

	// Stats returns totals and intent/tone breakdowns.
	Stats(ctx context.Context) (*Stats, error)
}

// Store aggregates storage interfaces.
type Store interface {
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}

// Chronological reverses a newest-first slice in place and returns it.
func Chronological(msgs []*Message) []*Message {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs
}

// EncodeCategories serializes per-category scores for storage.
func EncodeCategories(categories map[string]float64) (string, error) {
	if len(categories) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(categories)
	if err != nil {
		return "", fmt.Errorf("encode categories: %w", err)
	}
	return string(data), nil
}

// DecodeCategories parses stored per-category scores.
func DecodeCategories(raw []byte) (map[string]float64, error) {
	categories := make(map[string]float64)
	if len(raw) == 0 {
		return categories, nil
	}
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return categories, nil
}
