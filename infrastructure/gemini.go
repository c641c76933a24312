package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"staffable/domain"
)

// GeminiGenerator calls the Gemini generateContent REST endpoint, trying each
// configured model in order until one answers.
type GeminiGenerator struct {
	apiKey  string
	baseURL string
	models  []string
	client  *http.Client
	log     *logrus.Logger
}

func NewGeminiGenerator(apiKey, baseURL string, models []string, log *logrus.Logger) *GeminiGenerator {
	return &GeminiGenerator{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		models:  models,
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float32 `json:"temperature"`
	TopP             float32 `json:"topP"`
	TopK             int     `json:"topK"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func geminiRole(r domain.ChatRole) string {
	if r == domain.ChatAssistant {
		return "model"
	}
	return "user"
}

func (g *GeminiGenerator) Generate(ctx context.Context, p domain.Prompt) (string, error) {
	if len(p.Messages) == 0 {
		return "", fmt.Errorf("%w: prompt has no messages", domain.ErrInvalidInput)
	}

	req := geminiRequest{
		GenerationConfig: geminiGenerationConfig{
			Temperature: p.Temperature,
			TopP:        0.8,
			TopK:        40,
		},
	}
	if p.System != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: p.System}}}
	}
	if p.JSON {
		req.GenerationConfig.ResponseMimeType = "application/json"
	}
	for _, m := range p.Messages {
		req.Contents = append(req.Contents, geminiContent{
			Role:  geminiRole(m.Role),
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastError error
	for _, model := range g.models {
		text, err := g.callModel(ctx, model, body)
		if err == nil {
			g.log.WithField("model", model).Debug("gemini generation succeeded")
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastError = err
		g.log.WithError(err).WithField("model", model).Warn("gemini model failed")
	}
	if lastError == nil {
		lastError = errors.New("no models configured")
	}
	return "", fmt.Errorf("%w: all Gemini models failed: %w", domain.ErrUpstream, lastError)
}

func (g *GeminiGenerator) callModel(ctx context.Context, model string, body []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(model))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse API response: %w", err)
	}
	return extractTextFromResponse(parsed)
}

func extractTextFromResponse(resp geminiResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates in response")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("no text in response")
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
