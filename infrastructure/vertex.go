package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"staffable/domain"
)

// VertexGenerator generates through the Vertex AI Gemini SDK.
type VertexGenerator struct {
	client *genai.Client
	model  string
}

func NewVertexGenerator(ctx context.Context, project, location, model, credentialsFile string) (*VertexGenerator, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := genai.NewClient(ctx, project, location, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vertex client: %w", err)
	}
	return &VertexGenerator{client: client, model: model}, nil
}

func (v *VertexGenerator) Generate(ctx context.Context, p domain.Prompt) (string, error) {
	if len(p.Messages) == 0 {
		return "", fmt.Errorf("%w: prompt has no messages", domain.ErrInvalidInput)
	}

	model := v.client.GenerativeModel(v.model)
	model.SetTemperature(p.Temperature)
	if p.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(p.System)}}
	}
	if p.JSON {
		model.ResponseMIMEType = "application/json"
	}

	chat := model.StartChat()
	history := p.Messages[:len(p.Messages)-1]
	for _, m := range history {
		chat.History = append(chat.History, &genai.Content{
			Role:  geminiRole(m.Role),
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	last := p.Messages[len(p.Messages)-1]
	resp, err := chat.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return "", fmt.Errorf("%w: vertex generate: %w", domain.ErrUpstream, err)
	}
	return vertexText(resp)
}

func vertexText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates in vertex response", domain.ErrUpstream)
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrUpstream, errors.New("no text in vertex response"))
	}
	return text, nil
}

func (v *VertexGenerator) Close() error {
	return v.client.Close()
}
