// Package advisory provides the free-text generation capability used for tone
// classification, coaching and rewrite suggestions.
package advisory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vovakirdan/chatguard-server/internal/config"
)

// ErrDisabled is returned when a call is made without a configured backend.
var ErrDisabled = errors.New("advisory service disabled")

// Prompt is one generation request.
type Prompt struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Service generates free text for a prompt.
type Service interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// New builds the configured backend. It returns (nil, nil) when the provider is
// "none" or no API key is set, which callers treat as "use fallbacks".
func New(cfg config.AdvisoryConfig) (Service, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == "none" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil
	}

	switch provider {
	case "openai":
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout)
	case "gemini":
		return NewGemini(context.Background(), cfg.APIKey, cfg.Model, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown advisory provider %q", cfg.Provider)
	}
}

// Complete calls svc with a bounded deadline. A nil svc yields ErrDisabled.
func Complete(ctx context.Context, svc Service, timeout time.Duration, p Prompt) (string, error) {
	if svc == nil {
		return "", ErrDisabled
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	out, err := svc.Complete(ctx, p)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("empty advisory response")
	}
	return out, nil
}
