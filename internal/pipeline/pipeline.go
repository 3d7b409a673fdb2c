// Package pipeline drives one chat message through scoring, classification,
// tone resolution, coaching and persistence, and projects the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/chatguard-server/internal/coaching"
	"github.com/vovakirdan/chatguard-server/internal/intent"
	"github.com/vovakirdan/chatguard-server/internal/metrics"
	"github.com/vovakirdan/chatguard-server/internal/proto"
	"github.com/vovakirdan/chatguard-server/internal/store"
	"github.com/vovakirdan/chatguard-server/internal/tone"
	"github.com/vovakirdan/chatguard-server/internal/toxicity"
)

const (
	// DefaultRoom is recorded on messages when no room is configured.
	DefaultRoom = "general"
	// Anonymous is the author recorded when none is given.
	Anonymous = "anonymous"
)

var (
	// ErrEmptyMessage is returned for blank input. Nothing is recorded.
	ErrEmptyMessage = errors.New("empty message")
	// ErrPersist wraps store failures. The message was analyzed but not recorded.
	ErrPersist = errors.New("persist message")
)

// Deps are the capabilities the pipeline calls into.
// Scorer may be nil; every message then scores zero.
type Deps struct {
	Scorer     toxicity.Scorer
	Classifier *intent.Classifier
	Tone       *tone.Resolver
	Coaching   *coaching.Generator
	Store      store.MessageStore
	Logger     *zerolog.Logger
}

// Options tune the pipeline. Zero values take the defaults.
type Options struct {
	Threshold float64
	Room      string
}

// DefaultOptions returns the stock threshold and room.
func DefaultOptions() Options {
	return Options{Threshold: toxicity.DefaultThreshold, Room: DefaultRoom}
}

// Pipeline analyzes and records chat messages. It is safe for concurrent use
// as long as its dependencies are.
type Pipeline struct {
	scorer     toxicity.Scorer
	classifier *intent.Classifier
	tone       *tone.Resolver
	coaching   *coaching.Generator
	store      store.MessageStore
	threshold  float64
	room       string
	log        *zerolog.Logger
}

// New builds a Pipeline. Missing classifier, tone resolver or coaching generator
// are replaced with advisory-free defaults; a store is required.
func New(deps Deps, opts Options) (*Pipeline, error) {
	if deps.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	logger := deps.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if deps.Classifier == nil {
		deps.Classifier = intent.New()
	}
	if deps.Tone == nil {
		deps.Tone = tone.NewResolver(nil, 0, logger)
	}
	if deps.Coaching == nil {
		deps.Coaching = coaching.NewGenerator(nil, 0, logger)
	}
	if opts.Threshold <= 0 {
		opts.Threshold = toxicity.DefaultThreshold
	}
	if opts.Room == "" {
		opts.Room = DefaultRoom
	}

	return &Pipeline{
		scorer:     deps.Scorer,
		classifier: deps.Classifier,
		tone:       deps.Tone,
		coaching:   deps.Coaching,
		store:      deps.Store,
		threshold:  opts.Threshold,
		room:       opts.Room,
		log:        logger,
	}, nil
}

// Threshold returns the score at or above which messages are toxic.
func (p *Pipeline) Threshold() float64 {
	return p.threshold
}

// ScorerEnabled reports whether a toxicity scorer is configured.
func (p *Pipeline) ScorerEnabled() bool {
	return p.scorer != nil
}

// Process analyzes text written by author, persists the record and returns the
// sender projection. Scorer and advisory failures degrade to defaults; only an
// empty text (ErrEmptyMessage) or a store failure (ErrPersist) return an error.
func (p *Pipeline) Process(ctx context.Context, text, author string) (*Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	author = strings.TrimSpace(author)
	if author == "" {
		author = Anonymous
	}

	start := time.Now()
	defer func() { metrics.PipelineDuration.Observe(time.Since(start).Seconds()) }()

	tox := p.score(ctx, text)

	intentLabel, intentConfidence := p.classifier.Classify(text)

	toneResult := p.tone.Resolve(ctx, text, tox.Score, intentLabel)

	var coachingText, rewrite *string
	if coaching.Gate(tox.Score, toneResult.Tone) {
		c := p.coaching.Coaching(ctx, text, toneResult.Tone, tox.Score, intentLabel)
		coachingText = &c
		rewrite = p.coaching.Rewrite(ctx, text, toneResult.Tone, tox.Score)
	}

	rec := &store.Message{
		Room:             p.room,
		Username:         author,
		Text:             text,
		ToxicityScore:    tox.Score,
		IsToxic:          toxicity.IsToxic(tox.Score, p.threshold),
		Categories:       tox.Categories,
		Intent:           intentLabel,
		IntentConfidence: toxicity.Clamp(intentConfidence),
		Tone:             toneResult.Tone,
		ToneConfidence:   toxicity.Clamp(toneResult.Confidence),
		Coaching:         coachingText,
		Rewrite:          rewrite,
	}
	if err := p.store.Append(ctx, rec); err != nil {
		metrics.MessagesProcessed.WithLabelValues("persist_error").Inc()
		p.log.Error().Err(err).Str("username", author).Msg("failed to persist message")
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	metrics.MessagesProcessed.WithLabelValues("ok").Inc()
	if rec.IsToxic {
		metrics.MessagesToxic.Inc()
	}
	p.log.Info().
		Int64("message_id", rec.ID).
		Str("username", author).
		Float64("toxicity", rec.ToxicityScore).
		Str("intent", rec.Intent).
		Str("tone", rec.Tone).
		Msg("message processed")

	return newResponse(rec, toneResult.Explanation), nil
}

// score never fails: a missing or failing scorer yields the zero result.
func (p *Pipeline) score(ctx context.Context, text string) toxicity.Result {
	if p.scorer == nil {
		return toxicity.Zero()
	}
	res, err := p.scorer.Score(ctx, text)
	if err != nil {
		metrics.ScorerFailures.Inc()
		p.log.Warn().Err(err).Msg("toxicity scoring failed, using zero score")
		return toxicity.Zero()
	}
	return res.Normalize()
}

// Response is the sender projection of a processed message.
type Response struct {
	proto.Response
	record *store.Message
}

// Record returns the persisted message behind the response.
func (r *Response) Record() *store.Message {
	return r.record
}

// Digest returns the reduced projection broadcast to every participant.
func (r *Response) Digest() proto.Broadcast {
	return proto.Broadcast{
		Type:          proto.OutboundTypeMessage,
		Username:      r.Username,
		Message:       r.Message,
		IsToxic:       r.Analysis.Toxicity.IsToxic,
		ToxicityScore: r.Analysis.Toxicity.Score,
		Timestamp:     r.Timestamp,
	}
}

func newResponse(rec *store.Message, toneExplanation string) *Response {
	categories := make(map[string]float64, len(rec.Categories))
	for name, s := range rec.Categories {
		categories[name] = proto.Round3(s)
	}

	return &Response{
		Response: proto.Response{
			ID:       rec.ID,
			Username: rec.Username,
			Message:  rec.Text,
			Analysis: proto.AnalysisDetail{
				Toxicity: proto.Toxicity{
					Score:         proto.Round3(rec.ToxicityScore),
					IsToxic:       rec.IsToxic,
					Categories:    categories,
					TopCategories: toxicity.TopCategories(rec.Categories, toxicity.TopK, toxicity.CategoryFloor),
				},
				Intent: proto.Label{
					Type:        rec.Intent,
					Confidence:  proto.Round3(rec.IntentConfidence),
					Explanation: intent.Explain(rec.Intent),
				},
				Tone: proto.Label{
					Type:        rec.Tone,
					Confidence:  proto.Round3(rec.ToneConfidence),
					Explanation: toneExplanation,
				},
			},
			Coaching: proto.Coaching{
				Message:          rec.Coaching,
				SuggestedRewrite: rec.Rewrite,
			},
			Timestamp: proto.FormatTime(rec.CreatedAt),
		},
		record: rec,
	}
}
