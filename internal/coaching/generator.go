// Package coaching produces communication feedback and polite rewrites for
// messages that cross the coaching gate.
package coaching

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatguard-server/internal/advisory"
	"github.com/vovakirdan/chatguard-server/internal/intent"
	"github.com/vovakirdan/chatguard-server/internal/metrics"
	"github.com/vovakirdan/chatguard-server/internal/tone"
)

// GateThreshold is the toxicity score above which coaching is attached.
// Rewrites are suppressed below the same value.
const GateThreshold = 0.3

const rewritePrefix = "I would like to respectfully share that "

// substitutions are applied in order, case-sensitively, before lower-casing.
var substitutions = []struct{ from, to string }{
	{"stupid", "incorrect"},
	{"idiot", "person"},
	{"shut up", "please be quiet"},
	{"hate", "dislike"},
}

// Gate reports whether a message with this score and tone receives coaching.
func Gate(toxicityScore float64, toneLabel string) bool {
	return toxicityScore > GateThreshold || toneLabel == tone.Rude || toneLabel == tone.Aggressive
}

// Generator builds coaching text and rewrites.
type Generator struct {
	advisor advisory.Service
	timeout time.Duration
	log     *zerolog.Logger
}

// NewGenerator builds a Generator. A nil advisor always uses the fallback tables.
func NewGenerator(advisor advisory.Service, timeout time.Duration, logger *zerolog.Logger) *Generator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Generator{advisor: advisor, timeout: timeout, log: logger}
}

// Coaching returns feedback for text. It never fails.
func (g *Generator) Coaching(ctx context.Context, text, toneLabel string, toxicityScore float64, intentLabel string) string {
	if g.advisor == nil {
		return FallbackCoaching(toneLabel, toxicityScore, intentLabel)
	}

	out, err := advisory.Complete(ctx, g.advisor, g.timeout, advisory.CoachingPrompt(text, toneLabel, toxicityScore, intentLabel))
	if err == nil {
		out = trimQuotes(out)
	}
	if err != nil || out == "" {
		g.log.Warn().Err(err).Msg("advisory coaching failed, using fallback")
		metrics.AdvisoryFallbacks.WithLabelValues("coaching").Inc()
		return FallbackCoaching(toneLabel, toxicityScore, intentLabel)
	}
	return out
}

// Rewrite suggests a polite version of text, or nil when the score is below
// GateThreshold. It never fails.
func (g *Generator) Rewrite(ctx context.Context, text, toneLabel string, toxicityScore float64) *string {
	if toxicityScore < GateThreshold {
		return nil
	}
	if g.advisor == nil {
		out := FallbackRewrite(text)
		return &out
	}

	out, err := advisory.Complete(ctx, g.advisor, g.timeout, advisory.RewritePrompt(text))
	if err == nil {
		out = trimQuotes(out)
	}
	if err != nil || out == "" {
		g.log.Warn().Err(err).Str("tone", toneLabel).Msg("advisory rewrite failed, using fallback")
		metrics.AdvisoryFallbacks.WithLabelValues("rewrite").Inc()
		out = FallbackRewrite(text)
	}
	return &out
}

// FallbackCoaching picks feedback from severity bands that mirror the tone fallback.
func FallbackCoaching(toneLabel string, toxicityScore float64, intentLabel string) string {
	switch {
	case toxicityScore > 0.7:
		return "Consider rephrasing this message in a more respectful way. Aggressive language can damage relationships and hinder productive conversation."
	case toxicityScore > 0.5:
		return "This message comes across as harsh. Try expressing your thoughts with more neutral language to maintain positive communication."
	case toneLabel == tone.Rude || toneLabel == tone.Aggressive:
		return "Your message could be perceived as disrespectful. Consider using a more polite tone to ensure your message is well-received."
	case intentLabel == intent.Complaint:
		return "When expressing concerns, try to focus on specific issues and suggest constructive solutions rather than just criticizing."
	default:
		return "Your message is clear. Consider adding context or asking questions to encourage dialogue."
	}
}

// FallbackRewrite replaces disparaging terms with neutral ones and softens the result.
func FallbackRewrite(text string) string {
	for _, s := range substitutions {
		text = strings.ReplaceAll(text, s.from, s.to)
	}
	return rewritePrefix + strings.ToLower(text)
}

// trimQuotes strips one pair of matching quotes wrapping the whole text.
// Apostrophes inside or at one end of the text are kept.
func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
