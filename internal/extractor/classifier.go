package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/muturi/chatbridge/internal/config"
)

const classifierSystemPrompt = `You classify chat messages for a workflow ` +
	`orchestration system. Respond with a single JSON object and nothing else: ` +
	`{"isWorkflowEvent": bool, "eventType": string, "source": string, ` +
	`"priority": "low"|"medium"|"high"|"critical", "metadata": object, ` +
	`"reasoning": string}. eventType is a short token such as ` +
	`"incident_detected", "document_uploaded", or "data_processing_requested". ` +
	`reasoning is mandatory even when isWorkflowEvent is false.`

// HTTPClassifier invokes an OpenAI-compatible chat-completions endpoint and
// parses the model's reply against the closed classification schema.
type HTTPClassifier struct {
	cfg    config.ClassifierConfig
	client *http.Client
	apiKey string
}

// NewHTTPClassifier creates a classifier bound to the configured endpoint.
// The API key is read from the environment variable named in the config.
func NewHTTPClassifier(cfg config.ClassifierConfig) *HTTPClassifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClassifier{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		apiKey: os.Getenv(cfg.APIKeyEnv),
	}
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	// ResponseFormat asks conforming backends for strict JSON output.
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify sends the message (and optional chat context) to the generative
// endpoint and decodes the reply. Any transport, status, or parse problem is
// an error; the caller decides what a failure means.
func (c *HTTPClassifier) Classify(ctx context.Context, userMessage, chatContext string) (Classification, error) {
	user := userMessage
	if chatContext != "" {
		user = fmt.Sprintf("Conversation context:\n%s\n\nMessage:\n%s", chatContext, userMessage)
	}

	payload, err := json.Marshal(chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: classifierSystemPrompt},
			{Role: "user", Content: user},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return Classification{}, fmt.Errorf("classifier: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return Classification{}, fmt.Errorf("classifier: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Classification{}, fmt.Errorf("classifier: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Classification{}, fmt.Errorf("classifier: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Classification{}, fmt.Errorf("classifier: unexpected status %d", resp.StatusCode)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return Classification{}, fmt.Errorf("classifier: parse response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Classification{}, fmt.Errorf("classifier: empty completion")
	}

	return parseClassification(completion.Choices[0].Message.Content)
}

// parseClassification decodes the model's reply, tolerating markdown code
// fences around the JSON object.
func parseClassification(content string) (Classification, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	var c Classification
	if err := json.Unmarshal([]byte(content), &c); err != nil {
		return Classification{}, fmt.Errorf("classifier: malformed output: %w", err)
	}
	if c.Reasoning == "" {
		return Classification{}, fmt.Errorf("classifier: missing reasoning")
	}
	return c, nil
}
