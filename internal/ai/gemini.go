package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiClient calls Gemini for text completion and for page OCR.
type GeminiClient struct {
	client    *genai.Client
	model     string
	sanitizer *Sanitizer
}

func NewGeminiClient(ctx context.Context, apiKey, model string, s *Sanitizer) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model, sanitizer: s}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	m := c.client.GenerativeModel(c.model)
	m.SetTemperature(0.7)
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	resp, err := m.GenerateContent(ctx, genai.Text(BuildPrompt(req.Task, req.Content, c.sanitizer)))
	if err != nil {
		return "", classifyGemini(err)
	}
	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("empty response from gemini")
	}
	return text, nil
}

// Recognize transcribes the text in a rendered page image.
func (c *GeminiClient) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	m := c.client.GenerativeModel(c.model)
	m.SetTemperature(0)
	prompt := "Transcribe all text visible in this page image exactly, preserving line breaks. " +
		"Output only the transcribed text."
	if lang != "" {
		prompt += " Expected language(s): " + lang + "."
	}
	resp, err := m.GenerateContent(ctx, genai.ImageData("png", image), genai.Text(prompt))
	if err != nil {
		return "", classifyGemini(err)
	}
	return responseText(resp), nil
}

// Close releases the underlying client.
func (c *GeminiClient) Close() {
	_ = c.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

// classifyGemini maps SDK failures onto the shared error types. Safety blocks
// on the prompt or the candidate count as content policy rejections.
func classifyGemini(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &PolicyError{Message: blocked.Error()}
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return classifyStatus(gerr.Code, gerr.Message)
	}
	msg := err.Error()
	if strings.Contains(msg, "RESOURCE_EXHAUSTED") {
		return &RetryableError{StatusCode: http.StatusTooManyRequests, Message: msg}
	}
	return fmt.Errorf("gemini request failed: %w", err)
}
