package http

import (
	"math"

	"github.com/vovakirdan/chatguard-server/internal/proto"
	"github.com/vovakirdan/chatguard-server/internal/store"
)

// MessageView is a stored message in history responses.
type MessageView struct {
	ID               int64              `json:"id"`
	Username         string             `json:"username"`
	Message          string             `json:"message"`
	ToxicityScore    float64            `json:"toxicity_score"`
	IsToxic          bool               `json:"is_toxic"`
	ToxicCategories  map[string]float64 `json:"toxic_categories"`
	Intent           string             `json:"intent"`
	IntentConfidence float64            `json:"intent_confidence"`
	Tone             string             `json:"tone"`
	ToneConfidence   float64            `json:"tone_confidence"`
	CoachingMessage  *string            `json:"coaching_message"`
	SuggestedRewrite *string            `json:"suggested_rewrite"`
	Timestamp        string             `json:"timestamp"`
	RoomID           string             `json:"room_id"`
}

func messageView(m *store.Message) MessageView {
	categories := m.Categories
	if categories == nil {
		categories = map[string]float64{}
	}
	return MessageView{
		ID:               m.ID,
		Username:         m.Username,
		Message:          m.Text,
		ToxicityScore:    proto.Round3(m.ToxicityScore),
		IsToxic:          m.IsToxic,
		ToxicCategories:  categories,
		Intent:           m.Intent,
		IntentConfidence: proto.Round3(m.IntentConfidence),
		Tone:             m.Tone,
		ToneConfidence:   proto.Round3(m.ToneConfidence),
		CoachingMessage:  m.Coaching,
		SuggestedRewrite: m.Rewrite,
		Timestamp:        proto.FormatTime(m.CreatedAt),
		RoomID:           m.Room,
	}
}

func messageViews(msgs []*store.Message) []MessageView {
	views := make([]MessageView, 0, len(msgs))
	for _, m := range store.Chronological(msgs) {
		views = append(views, messageView(m))
	}
	return views
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	TotalMessages     int64            `json:"total_messages"`
	ToxicMessages     int64            `json:"toxic_messages"`
	CleanMessages     int64            `json:"clean_messages"`
	ToxicityRate      float64          `json:"toxicity_rate"`
	Intents           map[string]int64 `json:"intents"`
	Tones             map[string]int64 `json:"tones"`
	ActiveConnections int              `json:"active_connections"`
}

func statsResponse(s *store.Stats, connections int) StatsResponse {
	return StatsResponse{
		TotalMessages:     s.Total,
		ToxicMessages:     s.Toxic,
		CleanMessages:     s.Clean(),
		ToxicityRate:      math.Round(s.ToxicityRate()*100) / 100,
		Intents:           nonNil(s.Intents),
		Tones:             nonNil(s.Tones),
		ActiveConnections: connections,
	}
}

func nonNil(m map[string]int64) map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	return m
}
