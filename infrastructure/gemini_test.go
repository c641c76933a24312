package infrastructure

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffable/domain"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestGeminiGenerator_FallsBackToNextModel(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var captured geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)
		if strings.Contains(r.URL.Path, "broken-model") {
			http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "/models/good-model:generateContent", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello "},{"text":"there"}]}}]}`)
	}))
	defer srv.Close()

	g := NewGeminiGenerator("secret", srv.URL, []string{"broken-model", "good-model"}, quietLogger())
	out, err := g.Generate(context.Background(), domain.Prompt{
		System:      "be brief",
		Temperature: 0.2,
		JSON:        true,
		Messages: []domain.ChatMessage{
			{Role: domain.ChatUser, Content: "hi"},
			{Role: domain.ChatAssistant, Content: "hello"},
			{Role: domain.ChatUser, Content: "again"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello there", out)
	assert.Equal(t, int32(2), calls.Load())
	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "be brief", captured.SystemInstruction.Parts[0].Text)
	require.Len(t, captured.Contents, 3)
	assert.Equal(t, "model", captured.Contents[1].Role)
	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
}

func TestGeminiGenerator_AllModelsFail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	g := NewGeminiGenerator("k", srv.URL, []string{"a", "b"}, quietLogger())
	_, err := g.Generate(context.Background(), domain.Prompt{Messages: []domain.ChatMessage{{Role: domain.ChatUser, Content: "x"}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestGeminiGenerator_RequiresMessages(t *testing.T) {
	t.Parallel()

	g := NewGeminiGenerator("k", "http://unused", []string{"a"}, quietLogger())
	_, err := g.Generate(context.Background(), domain.Prompt{System: "only system"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGeminiGenerator_KeyStaysOutOfErrors(t *testing.T) {
	t.Parallel()

	g := NewGeminiGenerator("SECRET-KEY-123", "http://127.0.0.1:1", []string{"m1"}, quietLogger())
	_, err := g.Generate(context.Background(), domain.Prompt{Messages: []domain.ChatMessage{{Role: domain.ChatUser, Content: "x"}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
}
