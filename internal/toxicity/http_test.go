package toxicity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func TestHTTPScorerNestedResponse(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if got := req.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("authorization = %q", got)
		}
		var in scoreRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if in.Inputs != "you are so stupid" {
			t.Fatalf("inputs = %q", in.Inputs)
		}
		return jsonResponse(http.StatusOK, `[[{"label":"toxic","score":0.91},{"label":"Insult","score":0.72},{"label":"threat","score":0.02}]]`), nil
	})}

	s, err := NewHTTPScorerWithClient("http://scorer/models/toxic-bert", "secret", time.Second, client)
	require.NoError(t, err)

	res, err := s.Score(context.Background(), "you are so stupid")
	require.NoError(t, err)
	assert.InDelta(t, 0.91, res.Score, 1e-9)
	assert.InDelta(t, 0.72, res.Categories["insult"], 1e-9)
	assert.Len(t, res.Categories, 3)
}

func TestHTTPScorerFlatResponse(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `[{"label":"toxic","score":0.2},{"label":"obscene","score":0.4}]`), nil
	})}

	s, err := NewHTTPScorerWithClient("http://scorer", "", time.Second, client)
	require.NoError(t, err)

	res, err := s.Score(context.Background(), "hello")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, res.Score, 1e-9)
}

func TestHTTPScorerErrors(t *testing.T) {
	_, err := NewHTTPScorer("  ", "", 0)
	require.Error(t, err)

	client := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusServiceUnavailable, `{"error":"loading"}`), nil
	})}
	s, err := NewHTTPScorerWithClient("http://scorer", "", time.Second, client)
	require.NoError(t, err)

	_, err = s.Score(context.Background(), "hello")
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)

	client.Transport = roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `[]`), nil
	})
	_, err = s.Score(context.Background(), "hello")
	require.Error(t, err)
}
