package tone

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/chatguard-server/internal/advisory"
	"github.com/vovakirdan/chatguard-server/internal/intent"
)

type stubAdvisor struct {
	out    string
	err    error
	prompt advisory.Prompt
	calls  int
}

func (s *stubAdvisor) Complete(_ context.Context, p advisory.Prompt) (string, error) {
	s.calls++
	s.prompt = p
	return s.out, s.err
}

func TestFallbackBands(t *testing.T) {
	tests := []struct {
		score      float64
		intent     string
		wantTone   string
		wantConfid float64
	}{
		{0.75, intent.Threat, Aggressive, 0.8},
		{0.71, intent.Neutral, Aggressive, 0.8},
		{0.1, intent.Threat, Aggressive, 0.8},
		{0.7, intent.Neutral, Rude, 0.7},
		{0.51, intent.Positive, Rude, 0.7},
		{0.2, intent.Insult, Rude, 0.7},
		{0.4, intent.Positive, Polite, 0.8},
		{0.5, intent.Complaint, Frustrated, 0.6},
		{0.0, intent.Question, Neutral, 0.5},
		{0.3, intent.Neutral, Neutral, 0.5},
	}

	for _, tt := range tests {
		got := Fallback(tt.score, tt.intent)
		assert.Equal(t, tt.wantTone, got.Tone, "score=%v intent=%s", tt.score, tt.intent)
		assert.Equal(t, tt.wantConfid, got.Confidence, "score=%v intent=%s", tt.score, tt.intent)
		assert.True(t, got.Fallback)
	}
}

func TestFallbackIsPure(t *testing.T) {
	a := Fallback(0.62, intent.Disagreement)
	b := Fallback(0.62, intent.Disagreement)
	assert.Equal(t, a, b)
	assert.Contains(t, a.Explanation, "0.62")
	assert.Contains(t, a.Explanation, intent.Disagreement)
}

func TestParseResponse(t *testing.T) {
	res := ParseResponse("Tone: Sarcastic\nConfidence: 0.85\nExplanation: mocking phrasing")
	assert.Equal(t, Result{Tone: Sarcastic, Confidence: 0.85, Explanation: "mocking phrasing"}, res)
}

func TestParseResponseTolerance(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Result
	}{
		{"malformed confidence", "Tone: rude\nConfidence: high\nExplanation: x", Result{Tone: Rude, Confidence: 0.7, Explanation: "x"}},
		{"missing confidence", "Tone: polite", Result{Tone: Polite, Confidence: 0.7}},
		{"missing everything", "I cannot help with that.", Result{Tone: Neutral, Confidence: 0.7}},
		{"empty tone value", "Tone:   \nConfidence: 0.4", Result{Tone: Neutral, Confidence: 0.4}},
		{"out of range confidence", "Tone: aggressive\nConfidence: 3", Result{Tone: Aggressive, Confidence: 1}},
		{"explanation with colon", "Explanation: note: harsh\nTone: rude", Result{Tone: Rude, Confidence: 0.7, Explanation: "note: harsh"}},
		{"indented lines", "  Tone: neutral\n  Confidence: 0.55 ", Result{Tone: Neutral, Confidence: 0.55}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseResponse(tt.in))
		})
	}
}

func TestResolveWithoutAdvisorUsesFallback(t *testing.T) {
	r := NewResolver(nil, time.Second, nil)
	res := r.Resolve(context.Background(), "whatever", 0.85, intent.Insult)
	assert.Equal(t, Aggressive, res.Tone)
	assert.True(t, res.Fallback)
}

func TestResolveUsesAdvisor(t *testing.T) {
	adv := &stubAdvisor{out: "Tone: passive-aggressive\nConfidence: 0.66\nExplanation: backhanded"}
	r := NewResolver(adv, time.Second, nil)

	res := r.Resolve(context.Background(), "fine, whatever you say", 0.2, intent.Neutral)
	require.Equal(t, 1, adv.calls)
	assert.Equal(t, PassiveAggressive, res.Tone)
	assert.Equal(t, 0.66, res.Confidence)
	assert.False(t, res.Fallback)
	assert.Contains(t, adv.prompt.User, "fine, whatever you say")
}

func TestResolveAdvisorErrorFallsBack(t *testing.T) {
	adv := &stubAdvisor{err: errors.New("upstream down")}
	res := NewResolver(adv, time.Second, nil).Resolve(context.Background(), "thanks!", 0.1, intent.Positive)
	assert.Equal(t, Polite, res.Tone)
	assert.Equal(t, 0.8, res.Confidence)
	assert.True(t, res.Fallback)
}

func TestResolveEmptyAdvisorResponseFallsBack(t *testing.T) {
	adv := &stubAdvisor{out: "   "}
	res := NewResolver(adv, time.Second, nil).Resolve(context.Background(), "meh", 0.0, intent.Complaint)
	assert.Equal(t, Frustrated, res.Tone)
}
