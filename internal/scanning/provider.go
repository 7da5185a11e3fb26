package scanning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

// Provider is one recognition backend in the fallback chain
type Provider interface {
	// Name identifies the provider in logs and results
	Name() string
	// Recognize extracts a record from the image. hints are recent user corrections
	// that providers able to take instructions may pass on.
	Recognize(ctx context.Context, img Image, hints []string) (receipt.ReceiptData, error)
	// Close releases the provider resources
	Close() error
}

// Provider names accepted in configuration
const (
	ProviderMindee = "mindee"
	ProviderVision = "vision"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// ProviderConfig holds the settings for every known provider
type ProviderConfig struct {
	MindeeKey   Credential
	MindeeURL   string
	VisionKey   Credential
	VisionURL   string
	GeminiKey   Credential
	GeminiModel string
	OllamaURL   string
	OllamaModel string
	HTTPClient  *http.Client
}

// NewProviders builds the named providers in order
func NewProviders(names []string, cfg ProviderConfig, parser TextParser) ([]Provider, error) {
	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "":
			continue
		case ProviderMindee:
			providers = append(providers, NewMindee(cfg.MindeeKey, cfg.MindeeURL, cfg.HTTPClient))
		case ProviderVision:
			providers = append(providers, NewVision(cfg.VisionKey, cfg.VisionURL, parser, cfg.HTTPClient))
		case ProviderGemini:
			providers = append(providers, NewGemini(cfg.GeminiKey, cfg.GeminiModel, parser))
		case ProviderOllama:
			providers = append(providers, NewOllama(cfg.OllamaURL, cfg.OllamaModel, parser))
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}
	return providers, nil
}

// StatusError is returned for a non-2xx provider response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func defaultHTTPClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: 60 * time.Second}
}

// postJSON sends in as a JSON body and decodes the JSON response into out
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w: %w", req.URL.Host, ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w: %w", ErrMalformedResponse, err)
	}
	return nil
}
