package scanning

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "llava"
)

// Ollama implements Provider using a local Ollama vision model.
// Models that read receipts reasonably well:
//   - llava:1.6
//   - qwen2-vl:7b (good OCR)
//   - llava-phi3 (faster, less accurate)
type Ollama struct {
	baseURL string
	model   string
	parser  TextParser
	client  *http.Client
	now     func() time.Time
}

// NewOllama creates an Ollama provider
func NewOllama(baseURL, modelName string, parser TextParser) *Ollama {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if modelName == "" {
		modelName = DefaultOllamaModel
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   modelName,
		parser:  parser,
		// local vision models are slow
		client: &http.Client{Timeout: 120 * time.Second},
		now:    time.Now,
	}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

func (o *Ollama) Name() string { return ProviderOllama }

// Recognize sends the image and the prompt with hints to the chat endpoint
func (o *Ollama) Recognize(ctx context.Context, img Image, hints []string) (receipt.ReceiptData, error) {
	data, err := prepareImage(img)
	if err != nil {
		return receipt.ReceiptData{}, err
	}

	req := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Messages: []ollamaMessage{
			{
				Role:    "system",
				Content: "You are an expert at reading Hungarian shop receipts. Read all text in the image carefully.",
			},
			{
				Role:    "user",
				Content: buildPrompt(hints),
				Images:  []string{base64.StdEncoding.EncodeToString(data)},
			},
		},
		Options: map[string]any{"temperature": 0},
	}

	var resp ollamaChatResponse
	if err := postJSON(ctx, o.client, o.baseURL+"/api/chat", nil, req, &resp); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return receipt.ReceiptData{}, fmt.Errorf("ollama API error (status %d): %s", statusErr.StatusCode, statusErr.Body)
		}
		return receipt.ReceiptData{}, fmt.Errorf("calling ollama API: %w", err)
	}

	out, err := decodeModelReply(resp.Message.Content, o.parser, o.now())
	if err != nil {
		return out, fmt.Errorf("reading ollama reply: %w", err)
	}
	return out, nil
}

// Close is a no-op for the HTTP client
func (o *Ollama) Close() error {
	return nil
}
