package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"career-roadmap/backend/config"
	"career-roadmap/backend/utils"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		var body geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		assert.Equal(t, "make a plan", body.Contents[0].Parts[0].Text)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"[{\"title\":"},{"text":"\"x\"}]"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(srv.URL+"/", "secret", "gemini-2.5-flash", srv.Client())
	out, err := c.Complete(context.Background(), "make a plan")
	require.NoError(t, err)
	assert.Equal(t, `[{"title":"x"}]`, out)
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"quota", http.StatusTooManyRequests, `{"error":{"message":"quota"}}`},
		{"blocked", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{"empty", http.StatusOK, `{"candidates":[]}`},
		{"garbage", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewGeminiClient(srv.URL, "k", "m", srv.Client())
			_, err := c.Complete(context.Background(), "p")
			assert.Error(t, err)
		})
	}
}

func TestGeminiHTTPErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewGeminiClient(srv.URL, "k", "m", srv.Client()).Complete(context.Background(), "p")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, "gemini", httpErr.Provider)
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk", r.Header.Get("Authorization"))

		var body responsesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body.Model)

		_, _ = w.Write([]byte(`{"output":[{"type":"reasoning"},{"type":"message","role":"assistant","content":[{"type":"output_text","text":"[]"}]}]}`))
	}))
	defer srv.Close()

	out, err := NewOpenAIClient(srv.URL, "sk", "gpt-test", srv.Client()).Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestOpenAIRefusal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"refusal":"no"}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(srv.URL, "sk", "m", srv.Client()).Complete(context.Background(), "p")
	assert.ErrorContains(t, err, "refused")
}

type flakyOracle struct {
	err   error
	calls int
}

func (f *flakyOracle) Name() string { return "flaky" }

func (f *flakyOracle) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "ok", nil
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	inner := &flakyOracle{err: errors.New("connection reset")}
	b := NewBreaker(inner, BreakerSettings{MinRequests: 3, FailureThreshold: 0.5, Timeout: time.Minute}, utils.NewNopLogger())

	for i := 0; i < 3; i++ {
		_, err := b.Complete(context.Background(), "p")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 3, inner.calls, "an open breaker must not reach the provider")
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	inner := &flakyOracle{err: context.Canceled}
	b := NewBreaker(inner, BreakerSettings{MinRequests: 1, FailureThreshold: 0.1}, utils.NewNopLogger())

	for i := 0; i < 5; i++ {
		_, _ = b.Complete(context.Background(), "p")
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerPassesThrough(t *testing.T) {
	b := NewBreaker(&flakyOracle{}, BreakerSettings{}, utils.NewNopLogger())
	out, err := b.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "flaky", b.Name())
}

func TestNewSelectsProvider(t *testing.T) {
	log := utils.NewNopLogger()

	o, err := New(config.OracleConfig{Provider: config.ProviderGemini, APIKey: "k", Model: "m"}, log)
	require.NoError(t, err)
	assert.Equal(t, "gemini", o.Name())

	o, err = New(config.OracleConfig{Provider: config.ProviderOpenAI, APIKey: "k", Model: "m"}, log)
	require.NoError(t, err)
	assert.Equal(t, "openai", o.Name())

	_, err = New(config.OracleConfig{Provider: "other", APIKey: "k"}, log)
	assert.Error(t, err)

	_, err = New(config.OracleConfig{Provider: config.ProviderGemini}, log)
	assert.Error(t, err)
}
