package proto

import (
	"math"
	"time"
)

const (
	InboundTypeMessage = "message"

	OutboundTypeSystem   = "system"
	OutboundTypeAnalysis = "analysis"
	OutboundTypeMessage  = "message"
	OutboundTypeError    = "error"

	ErrCodeBadRequest  = "bad_request"
	ErrCodePersist     = "persist_failed"
	ErrCodeInternal    = "internal"
	ErrCodeRateLimited = "rate_limited"
)

// Inbound is a chat message coming from the client. Type defaults to "message".
type Inbound struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

// System is a server notice (welcome, departures).
type System struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// NewSystem builds a system notice stamped with now.
func NewSystem(message string, now time.Time) System {
	return System{Type: OutboundTypeSystem, Message: message, Timestamp: FormatTime(now)}
}

// Toxicity is the toxicity section of an analysis.
type Toxicity struct {
	Score         float64            `json:"score"`
	IsToxic       bool               `json:"is_toxic"`
	Categories    map[string]float64 `json:"categories"`
	TopCategories []string           `json:"top_categories"`
}

// Label is a classified label with its confidence and explanation.
type Label struct {
	Type        string  `json:"type"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// AnalysisDetail groups toxicity, intent and tone.
type AnalysisDetail struct {
	Toxicity Toxicity `json:"toxicity"`
	Intent   Label    `json:"intent"`
	Tone     Label    `json:"tone"`
}

// Coaching carries the optional coaching text and rewrite.
type Coaching struct {
	Message          *string `json:"message"`
	SuggestedRewrite *string `json:"suggested_rewrite"`
}

// Response is the full analysis of one message, returned to its sender.
type Response struct {
	ID        int64          `json:"id"`
	Username  string         `json:"username"`
	Message   string         `json:"message"`
	Analysis  AnalysisDetail `json:"analysis"`
	Coaching  Coaching       `json:"coaching"`
	Timestamp string         `json:"timestamp"`
}

// Analysis is the sender-only websocket frame: type "analysis" plus the response fields.
type Analysis struct {
	Type string `json:"type"`
	Response
}

// NewAnalysis wraps a response for the websocket.
func NewAnalysis(resp Response) Analysis {
	return Analysis{Type: OutboundTypeAnalysis, Response: resp}
}

// Broadcast is the reduced projection every participant receives.
type Broadcast struct {
	Type          string  `json:"type"`
	Username      string  `json:"username"`
	Message       string  `json:"message"`
	IsToxic       bool    `json:"is_toxic"`
	ToxicityScore float64 `json:"toxicity_score"`
	Timestamp     string  `json:"timestamp"`
}

// ErrorEnvelope reports a failure to the sender.
type ErrorEnvelope struct {
	Type  string `json:"type"`
	Error *Error `json:"error"`
}

// NewError builds an error frame.
func NewError(code, msg string) ErrorEnvelope {
	return ErrorEnvelope{Type: OutboundTypeError, Error: &Error{Code: code, Msg: msg}}
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// FormatTime renders timestamps in the wire format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Round3 rounds v to three decimals.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
