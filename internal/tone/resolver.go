// Package tone resolves the emotional register of a message, preferring the
// advisory service and falling back to a deterministic band table.
package tone

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatguard-server/internal/advisory"
	"github.com/vovakirdan/chatguard-server/internal/intent"
	"github.com/vovakirdan/chatguard-server/internal/metrics"
	"github.com/vovakirdan/chatguard-server/internal/toxicity"
)

// Tone labels. Frustrated is only produced by the fallback table.
const (
	Polite            = "polite"
	Neutral           = "neutral"
	Rude              = "rude"
	Aggressive        = "aggressive"
	Frustrated        = "frustrated"
	PassiveAggressive = "passive-aggressive"
	Sarcastic         = "sarcastic"
)

// defaultParsedConfidence replaces a missing or malformed Confidence line.
const defaultParsedConfidence = 0.7

// Result is a resolved tone.
type Result struct {
	Tone        string
	Confidence  float64
	Explanation string
	// Fallback is true when the rule table produced the result.
	Fallback bool
}

// Resolver classifies tone.
type Resolver struct {
	advisor advisory.Service
	timeout time.Duration
	log     *zerolog.Logger
}

// NewResolver builds a Resolver. A nil advisor always uses the fallback table.
func NewResolver(advisor advisory.Service, timeout time.Duration, logger *zerolog.Logger) *Resolver {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Resolver{advisor: advisor, timeout: timeout, log: logger}
}

// Resolve returns the tone of text given its toxicity score and intent. It never fails.
func (r *Resolver) Resolve(ctx context.Context, text string, toxicityScore float64, intentLabel string) Result {
	if r.advisor == nil {
		return Fallback(toxicityScore, intentLabel)
	}

	out, err := advisory.Complete(ctx, r.advisor, r.timeout, advisory.TonePrompt(text, toxicityScore, intentLabel))
	if err != nil {
		r.log.Warn().Err(err).Msg("advisory tone analysis failed, using fallback")
		metrics.AdvisoryFallbacks.WithLabelValues("tone").Inc()
		return Fallback(toxicityScore, intentLabel)
	}
	return ParseResponse(out)
}

// Fallback maps (toxicity score, intent) to a tone through fixed severity bands.
func Fallback(toxicityScore float64, intentLabel string) Result {
	var label string
	var confidence float64

	switch {
	case toxicityScore > 0.7 || intentLabel == intent.Threat:
		label, confidence = Aggressive, 0.8
	case toxicityScore > 0.5 || intentLabel == intent.Insult:
		label, confidence = Rude, 0.7
	case intentLabel == intent.Positive:
		label, confidence = Polite, 0.8
	case intentLabel == intent.Complaint:
		label, confidence = Frustrated, 0.6
	default:
		label, confidence = Neutral, 0.5
	}

	return Result{
		Tone:        label,
		Confidence:  confidence,
		Explanation: fmt.Sprintf("Tone classified based on toxicity score (%.2f) and intent (%s)", toxicityScore, intentLabel),
		Fallback:    true,
	}
}

// ParseResponse reads "Tone:", "Confidence:" and "Explanation:" lines from a free-form
// response. Missing tone becomes Neutral, a missing or malformed confidence becomes 0.7
// and a missing explanation stays empty.
func ParseResponse(resp string) Result {
	res := Result{Tone: Neutral, Confidence: defaultParsedConfidence}

	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "Tone":
			if value != "" {
				res.Tone = strings.ToLower(value)
			}
		case "Confidence":
			c, err := strconv.ParseFloat(value, 64)
			if err != nil {
				c = defaultParsedConfidence
			}
			res.Confidence = toxicity.Clamp(c)
		case "Explanation":
			res.Explanation = value
		}
	}
	return res
}
