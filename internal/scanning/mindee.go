package scanning

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-scanner/internal/parsing"
	"github.com/zombor/receipt-scanner/internal/receipt"
)

// DefaultMindeeURL is the expense receipt prediction endpoint
const DefaultMindeeURL = "https://api.mindee.net/v1/products/mindee/expense_receipts/v5/predict"

// Mindee implements Provider using the Mindee expense receipt API, which returns
// line items as structured fields
type Mindee struct {
	key    Credential
	url    string
	client *http.Client
	now    func() time.Time
}

// NewMindee creates a Mindee provider. The key is resolved on every call.
func NewMindee(key Credential, url string, client *http.Client) *Mindee {
	if url == "" {
		url = DefaultMindeeURL
	}
	return &Mindee{
		key:    key,
		url:    url,
		client: defaultHTTPClient(client),
		now:    time.Now,
	}
}

type mindeeRequest struct {
	Document string `json:"document"`
}

type mindeeText struct {
	Value *string `json:"value"`
}

type mindeeAmount struct {
	Value *float64 `json:"value"`
}

type mindeeLineItem struct {
	Description *string  `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	TotalAmount *float64 `json:"total_amount"`
}

type mindeeResponse struct {
	Document struct {
		Inference struct {
			Prediction struct {
				LineItems    []mindeeLineItem `json:"line_items"`
				SupplierName mindeeText       `json:"supplier_name"`
				TotalAmount  mindeeAmount     `json:"total_amount"`
				Date         mindeeText       `json:"date"`
			} `json:"prediction"`
		} `json:"inference"`
	} `json:"document"`
}

func (m *Mindee) Name() string { return ProviderMindee }

// Recognize sends the image to Mindee. Structured providers take no hints.
func (m *Mindee) Recognize(ctx context.Context, img Image, _ []string) (receipt.ReceiptData, error) {
	key := m.key.value()
	if key == "" {
		return receipt.ReceiptData{}, fmt.Errorf("mindee api key: %w", ErrConfigMissing)
	}

	data, err := prepareImage(img)
	if err != nil {
		return receipt.ReceiptData{}, err
	}

	header := http.Header{}
	header.Set("Authorization", "Token "+key)

	var resp mindeeResponse
	err = postJSON(ctx, m.client, m.url, header, mindeeRequest{Document: base64.StdEncoding.EncodeToString(data)}, &resp)
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return receipt.ReceiptData{}, fmt.Errorf("mindee API: %w: %w", ErrEmptyResult, err)
	}
	if err != nil {
		return receipt.ReceiptData{}, fmt.Errorf("mindee API: %w", err)
	}

	out := m.toReceipt(resp)
	if len(out.Items) == 0 {
		return out, fmt.Errorf("mindee returned no line items: %w", ErrEmptyResult)
	}
	return out, nil
}

func (m *Mindee) toReceipt(resp mindeeResponse) receipt.ReceiptData {
	p := resp.Document.Inference.Prediction

	out := receipt.ReceiptData{
		Items: make([]receipt.ReceiptItem, 0, len(p.LineItems)),
		Store: deref(p.SupplierName.Value),
		Date:  normalizeDate(deref(p.Date.Value)),
		Total: roundAmount(p.TotalAmount.Value),
	}
	for _, li := range p.LineItems {
		name := parsing.CleanName(deref(li.Description))
		if name == "" {
			continue
		}
		qty := 1.0
		if li.Quantity != nil && *li.Quantity > 0 {
			qty = *li.Quantity
		}
		price := roundAmount(li.UnitPrice)
		if li.UnitPrice == nil && li.TotalAmount != nil {
			unit := decimal.NewFromFloat(*li.TotalAmount).Div(decimal.NewFromFloat(qty))
			price = int(unit.Round(0).IntPart())
		}
		out.Items = append(out.Items, receipt.ReceiptItem{
			ID:       receipt.NewItemID(),
			Name:     name,
			Quantity: qty,
			Unit:     receipt.DefaultUnit,
			Price:    price,
			Category: parsing.Categorize(name),
		})
	}
	receipt.Finalize(&out, m.now())
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func roundAmount(v *float64) int {
	if v == nil {
		return 0
	}
	return int(decimal.NewFromFloat(*v).Round(0).IntPart())
}

func (m *Mindee) Close() error {
	return nil
}
