package toxicity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// HTTPError is returned when the scoring endpoint answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("toxicity endpoint error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("toxicity endpoint error: status=%d body=%s", e.StatusCode, e.Body)
}

// HTTPScorer calls a text-classification endpoint that returns per-label scores,
// such as a hosted toxic-bert model. The overall score is the highest category score.
type HTTPScorer struct {
	url        string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// NewHTTPScorer builds a scorer for the given endpoint URL.
func NewHTTPScorer(url, apiKey string, timeout time.Duration) (*HTTPScorer, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("toxicity: url required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &HTTPScorer{
		url:        url,
		apiKey:     strings.TrimSpace(apiKey),
		timeout:    timeout,
		httpClient: &http.Client{Transport: tr},
	}, nil
}

// NewHTTPScorerWithClient is intended for tests; it avoids network access by using a custom RoundTripper.
func NewHTTPScorerWithClient(url, apiKey string, timeout time.Duration, client *http.Client) (*HTTPScorer, error) {
	s, err := NewHTTPScorer(url, apiKey, timeout)
	if err != nil {
		return nil, err
	}
	if client != nil {
		s.httpClient = client
	}
	return s, nil
}

type scoreRequest struct {
	Inputs string `json:"inputs"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Score implements Scorer.
func (s *HTTPScorer) Score(ctx context.Context, text string) (Result, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(scoreRequest{Inputs: text}); err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, &buf)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("toxicity request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read toxicity response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	labels, err := decodeLabels(raw)
	if err != nil {
		return Result{}, err
	}
	if len(labels) == 0 {
		return Result{}, errors.New("toxicity response has no labels")
	}

	res := Result{Categories: make(map[string]float64, len(labels))}
	for _, l := range labels {
		score := Clamp(l.Score)
		res.Categories[strings.ToLower(l.Label)] = score
		res.Score = max(res.Score, score)
	}
	return res, nil
}

// decodeLabels accepts both the batched [[...]] and flat [...] response shapes.
func decodeLabels(raw []byte) ([]labelScore, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}
	var flat []labelScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode toxicity response: %w", err)
	}
	return flat, nil
}
