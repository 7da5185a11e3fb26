package scanning

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

// DefaultVisionURL is the Google Cloud Vision annotate endpoint
const DefaultVisionURL = "https://vision.googleapis.com/v1/images:annotate"

// Vision implements Provider with Google Cloud Vision text detection. The detected
// text is handed to the receipt text parser.
type Vision struct {
	key    Credential
	url    string
	parser TextParser
	client *http.Client
}

// NewVision creates a Vision provider. The key is resolved on every call.
func NewVision(key Credential, endpoint string, parser TextParser, client *http.Client) *Vision {
	if endpoint == "" {
		endpoint = DefaultVisionURL
	}
	return &Vision{
		key:    key,
		url:    endpoint,
		parser: parser,
		client: defaultHTTPClient(client),
	}
}

type visionRequest struct {
	Requests []visionImageRequest `json:"requests"`
}

type visionImageRequest struct {
	Image struct {
		Content string `json:"content"`
	} `json:"image"`
	Features []visionFeature `json:"features"`
	Context  struct {
		LanguageHints []string `json:"languageHints"`
	} `json:"imageContext"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionResponse struct {
	Responses []struct {
		FullTextAnnotation *struct {
			Text string `json:"text"`
		} `json:"fullTextAnnotation"`
		TextAnnotations []struct {
			Description string `json:"description"`
		} `json:"textAnnotations"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

func (v *Vision) Name() string { return ProviderVision }

// Recognize runs text detection and parses the result. Text detection takes no hints.
func (v *Vision) Recognize(ctx context.Context, img Image, _ []string) (receipt.ReceiptData, error) {
	key := v.key.value()
	if key == "" {
		return receipt.ReceiptData{}, fmt.Errorf("vision api key: %w", ErrConfigMissing)
	}

	data, err := prepareImage(img)
	if err != nil {
		return receipt.ReceiptData{}, err
	}

	endpoint, err := url.Parse(v.url)
	if err != nil {
		return receipt.ReceiptData{}, fmt.Errorf("parsing vision url: %w", err)
	}
	q := endpoint.Query()
	q.Set("key", key)
	endpoint.RawQuery = q.Encode()

	var r visionImageRequest
	r.Image.Content = base64.StdEncoding.EncodeToString(data)
	r.Features = []visionFeature{{Type: "TEXT_DETECTION"}}
	r.Context.LanguageHints = []string{"hu"}

	var resp visionResponse
	if err := postJSON(ctx, v.client, endpoint.String(), nil, visionRequest{Requests: []visionImageRequest{r}}, &resp); err != nil {
		return receipt.ReceiptData{}, fmt.Errorf("vision API: %w", err)
	}

	text, err := resp.text()
	if err != nil {
		return receipt.ReceiptData{}, err
	}
	if strings.TrimSpace(text) == "" {
		return receipt.ReceiptData{}, fmt.Errorf("vision detected no text: %w", ErrEmptyResult)
	}

	out := v.parser.Parse(text)
	if len(out.Items) == 0 {
		return out, fmt.Errorf("no items in detected text: %w", ErrEmptyResult)
	}
	return out, nil
}

func (r visionResponse) text() (string, error) {
	if len(r.Responses) == 0 {
		return "", nil
	}
	first := r.Responses[0]
	if first.Error != nil && first.Error.Message != "" {
		return "", fmt.Errorf("vision API error %d: %s", first.Error.Code, first.Error.Message)
	}
	if first.FullTextAnnotation != nil && first.FullTextAnnotation.Text != "" {
		return first.FullTextAnnotation.Text, nil
	}
	// the first text annotation holds the whole detected text
	if len(first.TextAnnotations) > 0 {
		return first.TextAnnotations[0].Description, nil
	}
	return "", nil
}

func (v *Vision) Close() error {
	return nil
}
