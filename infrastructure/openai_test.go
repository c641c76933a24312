package infrastructure

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffable/domain"
)

func TestOpenAIGenerator_Generate(t *testing.T) {
	t.Parallel()

	var captured openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"  {\"matches\":[]}  "},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("sk-test", srv.URL+"/v1", "gpt-test")
	out, err := g.Generate(context.Background(), domain.Prompt{
		System:   "rank",
		JSON:     true,
		Messages: []domain.ChatMessage{{Role: domain.ChatUser, Content: "go"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"matches":[]}`, out)

	assert.Equal(t, "gpt-test", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, captured.Messages[0].Role)
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, captured.ResponseFormat.Type)
}

func TestOpenAIGenerator_UpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("sk-test", srv.URL+"/v1", "gpt-test")
	_, err := g.Generate(context.Background(), domain.Prompt{Messages: []domain.ChatMessage{{Role: domain.ChatUser, Content: "go"}}})
	assert.ErrorIs(t, err, domain.ErrUpstream)
}
