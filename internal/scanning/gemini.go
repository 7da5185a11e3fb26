package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

// DefaultGeminiModel is used when no model name is configured
const DefaultGeminiModel = "gemini-2.5-pro"

// Gemini implements Provider using Google Gemini, prompted with recent corrections
type Gemini struct {
	key       Credential
	modelName string
	parser    TextParser
	now       func() time.Time
}

// NewGemini creates a Gemini provider. The key is resolved on every call and a
// client is created per call, so a key set after startup is picked up.
func NewGemini(key Credential, modelName string, parser TextParser) *Gemini {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &Gemini{
		key:       key,
		modelName: modelName,
		parser:    parser,
		now:       time.Now,
	}
}

func (g *Gemini) Name() string { return ProviderGemini }

// Recognize asks the model for the receipt as JSON
func (g *Gemini) Recognize(ctx context.Context, img Image, hints []string) (receipt.ReceiptData, error) {
	key := g.key.value()
	if key == "" {
		return receipt.ReceiptData{}, fmt.Errorf("gemini api key: %w", ErrConfigMissing)
	}

	data, err := prepareImage(img)
	if err != nil {
		return receipt.ReceiptData{}, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return receipt.ReceiptData{}, fmt.Errorf("creating gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.modelName)
	model.SetTemperature(0)

	// genai.ImageData takes the format suffix, not the MIME type
	resp, err := model.GenerateContent(ctx, genai.ImageData("png", data), genai.Text(buildPrompt(hints)))
	if err != nil {
		return receipt.ReceiptData{}, fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return receipt.ReceiptData{}, fmt.Errorf("no response from gemini: %w", ErrEmptyResult)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	out, err := decodeModelReply(text.String(), g.parser, g.now())
	if err != nil {
		return out, fmt.Errorf("reading gemini reply: %w", err)
	}
	return out, nil
}

// Close is a no-op; clients live for one call
func (g *Gemini) Close() error {
	return nil
}
