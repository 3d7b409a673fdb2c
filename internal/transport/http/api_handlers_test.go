package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/chatguard-server/internal/auth"
	"github.com/vovakirdan/chatguard-server/internal/config"
	"github.com/vovakirdan/chatguard-server/internal/proto"
)

func doJSON(t *testing.T, env *testEnv, method, path string, body any, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, env.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func analyze(t *testing.T, env *testEnv, text, user string) proto.Response {
	t.Helper()
	resp := doJSON(t, env, http.MethodPost, "/api/analyze", AnalyzeRequest{Message: text, Username: user}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[proto.Response](t, resp)
}

func TestHealthEndpoint(t *testing.T) {
	env := startTestServer(t, config.AuthConfig{})

	resp, err := env.server.Client().Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestRootAndAPIHealth(t *testing.T) {
	env := startTestServer(t, config.AuthConfig{})

	root := decode[map[string]any](t, doJSON(t, env, http.MethodGet, "/", nil, ""))
	assert.Equal(t, "online", root["status"])

	health := decode[map[string]any](t, doJSON(t, env, http.MethodGet, "/api/health", nil, ""))
	assert.Equal(t, "healthy", health["status"])
	models := health["models"].(map[string]any)
	assert.Equal(t, true, models["toxicity_detector"])
	assert.Equal(t, true, models["intent_classifier"])
	assert.Equal(t, false, models["tone_analyzer"])
	assert.Equal(t, float64(0), health["connections"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := startTestServer(t, config.AuthConfig{})
	doJSON(t, env, http.MethodGet, "/health", nil, "")

	resp := doJSON(t, env, http.MethodGet, "/metrics", nil, "")
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "chatguard_http_requests_total")
}

func TestAnalyzeEndpoint(t *testing.T) {
	env := startTestServer(t, config.AuthConfig{})

	out := analyze(t, env, "you are so stupid, shut up", "alice")

	assert.Positive(t, out.ID)
	assert.Equal(t, "alice", out.Username)
	assert.Equal(t, 0.85, out.Analysis.Toxicity.Score)
	assert.True(t, out.Analysis.Toxicity.IsToxic)
	assert.Equal(t, []string{"toxic", "insult"}, out.Analysis.Toxicity.TopCategories)
	assert.Equal(t, "insult", out.Analysis.Intent.Type)
	assert.Equal(t, "aggressive", out.Analysis.Tone.Type)
	require.NotNil(t, out.Coaching.SuggestedRewrite)
	assert.Equal(t,
		"I would like to respectfully share that you are so incorrect, please be quiet",
		*out.Coaching.SuggestedRewrite)
	_, err := time.Parse(time.RFC3339Nano, out.Timestamp)
	assert.NoError(t, err)
}

func TestAnalyzeQueryParameters(t *testing.T) {
	env := startTestServer(t, config.AuthConfig{})

	resp := doJSON(t, env, http.MethodPost, "/api/analyze?message=thanks%20a%20lot&username=bob", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[proto.Response](t, resp)
	assert.Equal(t, "bob", out.Username)
	assert.Equal(t, "positive", out.Analysis.Intent.Type)
	assert.Nil(t, out.Coaching.Message)
}

func TestAnalyzeRejectsEmpty(t *testing.T) {
	env := startTestServer(t, config.AuthConfig{})

	resp := doJSON(t, env, http.MethodPost, "/api/analyze", AnalyzeRequest{Message: "   "}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	history := decode[MessagesResponse](t, doJSON(t, env, http.MethodGet, "/api/messages", nil, ""))
	assert.Zero(t, history.Count)
}

func TestMessagesChronological(t *testing.T) {
	env := startTestServer(t, config.AuthConfig{})
	for _, text := range []string{"one", "two", "three"} {
		analyze(t, env, text, "alice")
	}

	resp := doJSON(t, env, http.MethodGet, "/api/messages?limit=2", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[MessagesResponse](t, resp)

	require.Equal(t, 2, out.Count)
	assert.Equal(t, "two", out.Messages[0].Message)
	assert.Equal(t, "three", out.Messages[1].Message)
	assert.Equal(t, "general", out.Messages[0].RoomID)

	other := decode[MessagesResponse](t, doJSON(t, env, http.MethodGet, "/api/messages?room_id=elsewhere", nil, ""))
	assert.Zero(t, other.Count)
	assert.NotNil(t, other.Messages)

	bad := doJSON(t, env, http.MethodGet, "/api/messages?limit=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	env := startTestServer(t, config.AuthConfig{})
	analyze(t, env, "you are so stupid", "alice")
	analyze(t, env, "what time is it?", "bob")
	analyze(t, env, "thanks everyone", "carol")

	out := decode[StatsResponse](t, doJSON(t, env, http.MethodGet, "/api/stats", nil, ""))
	assert.Equal(t, int64(3), out.TotalMessages)
	assert.Equal(t, int64(1), out.ToxicMessages)
	assert.Equal(t, int64(2), out.CleanMessages)
	assert.Equal(t, 33.33, out.ToxicityRate)
	assert.Equal(t, int64(1), out.Intents["insult"])
	assert.Equal(t, int64(1), out.Intents["question"])
	assert.Equal(t, int64(1), out.Tones["aggressive"])
	assert.Zero(t, out.ActiveConnections)
}

func TestDeleteMessageOpenWithoutAuth(t *testing.T) {
	env := startTestServer(t, config.AuthConfig{})
	msg := analyze(t, env, "remove me", "alice")

	resp := doJSON(t, env, http.MethodDelete, "/api/messages/"+strconv.FormatInt(msg.ID, 10), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[DeleteResponse](t, resp)
	assert.Equal(t, msg.ID, out.ID)

	again := doJSON(t, env, http.MethodDelete, "/api/messages/"+strconv.FormatInt(msg.ID, 10), nil, "")
	assert.Equal(t, http.StatusNotFound, again.StatusCode)

	bad := doJSON(t, env, http.MethodDelete, "/api/messages/not-a-number", nil, "")
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestModeratorFlow(t *testing.T) {
	hash, err := auth.HashPassword("moderator-pass")
	require.NoError(t, err)
	env := startTestServer(t, config.AuthConfig{
		JWTSecret:             "test-secret",
		ModeratorPasswordHash: hash,
		TokenTTL:              time.Hour,
	})
	msg := analyze(t, env, "remove me", "alice")
	path := "/api/messages/" + strconv.FormatInt(msg.ID, 10)

	assert.Equal(t, http.StatusUnauthorized, doJSON(t, env, http.MethodDelete, path, nil, "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, env, http.MethodDelete, path, nil, "garbage").StatusCode)

	wrong := doJSON(t, env, http.MethodPost, "/api/moderator/login", LoginRequest{Password: "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, wrong.StatusCode)

	login := doJSON(t, env, http.MethodPost, "/api/moderator/login", LoginRequest{Password: "moderator-pass"}, "")
	require.Equal(t, http.StatusOK, login.StatusCode)
	token := decode[AuthResponse](t, login).Token
	require.NotEmpty(t, token)

	assert.Equal(t, http.StatusOK, doJSON(t, env, http.MethodDelete, path, nil, token).StatusCode)
	assert.Equal(t, http.StatusNotFound, doJSON(t, env, http.MethodDelete, path, nil, token).StatusCode)
}

func TestModeratorLoginDisabled(t *testing.T) {
	env := startTestServer(t, config.AuthConfig{})

	resp := doJSON(t, env, http.MethodPost, "/api/moderator/login", LoginRequest{Password: "x"}, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
