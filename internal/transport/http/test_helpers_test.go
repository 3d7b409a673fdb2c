package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/chatguard-server/internal/auth"
	"github.com/vovakirdan/chatguard-server/internal/config"
	"github.com/vovakirdan/chatguard-server/internal/core"
	"github.com/vovakirdan/chatguard-server/internal/pipeline"
	"github.com/vovakirdan/chatguard-server/internal/session"
	"github.com/vovakirdan/chatguard-server/internal/store/sqlite"
	"github.com/vovakirdan/chatguard-server/internal/toxicity"
)

// keywordScorer scores 0.85 for texts containing "stupid", 0.05 otherwise.
type keywordScorer struct{}

func (keywordScorer) Score(_ context.Context, text string) (toxicity.Result, error) {
	if strings.Contains(text, "stupid") {
		return toxicity.Result{Score: 0.85, Categories: map[string]float64{"toxic": 0.85, "insult": 0.7}}, nil
	}
	return toxicity.Result{Score: 0.05, Categories: map[string]float64{"toxic": 0.05}}, nil
}

type testEnv struct {
	server *httptest.Server
	hub    *core.Hub
	auth   *auth.Service
}

// startTestServer wires the real stack over an in-memory SQLite store.
func startTestServer(t *testing.T, authCfg config.AuthConfig, opts ...func(*config.Config)) *testEnv {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	p, err := pipeline.New(pipeline.Deps{Scorer: keywordScorer{}, Store: st}, pipeline.DefaultOptions())
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	hub := core.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	<-hub.Started()
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.Auth = authCfg
	for _, opt := range opts {
		opt(&cfg)
	}

	authService := auth.NewService(authCfg)
	server := NewServer(Deps{
		Analyzer:   p,
		Sessions:   session.New(p, hub, nil),
		Hub:        hub,
		Store:      st,
		Auth:       authService,
		Components: Components{Toxicity: true},
	}, &cfg, nil)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, hub: hub, auth: authService}
}
