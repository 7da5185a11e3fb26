package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-scanner/internal/parsing"
	"github.com/zombor/receipt-scanner/internal/receipt"
)

// TextParser turns recognized receipt text into a record
type TextParser interface {
	Parse(text string) receipt.ReceiptData
}

// modelReceipt is the JSON shape requested from vision-generation models. Numbers
// are decoded loosely since models write prices as 250, 250.0 or "250".
type modelReceipt struct {
	Store string      `json:"store"`
	Date  string      `json:"date"`
	Total json.Number `json:"total"`
	Items []struct {
		Name     string      `json:"name"`
		Quantity json.Number `json:"quantity"`
		Unit     string      `json:"unit"`
		Price    json.Number `json:"price"`
		Category string      `json:"category"`
	} `json:"items"`
}

// firstJSONObject returns the first balanced {...} span of text. Braces inside JSON
// strings are ignored.
func firstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// decodeModelReply converts a model answer into a record. An embedded JSON object is
// decoded; a reply without one is treated as plain recognized text.
func decodeModelReply(text string, parser TextParser, now time.Time) (receipt.ReceiptData, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return receipt.ReceiptData{}, fmt.Errorf("model returned no text: %w", ErrEmptyResult)
	}

	span, ok := firstJSONObject(text)
	if !ok {
		data := parser.Parse(text)
		if len(data.Items) == 0 {
			return data, fmt.Errorf("no items in recognized text: %w", ErrEmptyResult)
		}
		return data, nil
	}

	dec := json.NewDecoder(strings.NewReader(span))
	dec.UseNumber()
	var m modelReceipt
	if err := dec.Decode(&m); err != nil {
		return receipt.ReceiptData{}, fmt.Errorf("decoding model json: %v: %w", err, ErrMalformedResponse)
	}

	data := receipt.ReceiptData{
		Store: m.Store,
		Date:  normalizeDate(m.Date),
		Total: wholeAmount(m.Total),
		Items: make([]receipt.ReceiptItem, 0, len(m.Items)),
	}
	for _, it := range m.Items {
		name := parsing.CleanName(it.Name)
		if name == "" {
			continue
		}
		qty, _ := decimalOf(it.Quantity).Float64()
		unit, ok := parsing.NormalizeUnit(it.Unit)
		if !ok {
			unit = receipt.DefaultUnit
		}
		category := strings.TrimSpace(it.Category)
		if !parsing.IsCategory(category) {
			category = parsing.Categorize(name)
		}
		data.Items = append(data.Items, receipt.ReceiptItem{
			ID:       receipt.NewItemID(),
			Name:     name,
			Quantity: qty,
			Unit:     unit,
			Price:    wholeAmount(it.Price),
			Category: category,
		})
	}
	receipt.Finalize(&data, now)

	if len(data.Items) == 0 {
		return data, fmt.Errorf("model json has no items: %w", ErrEmptyResult)
	}
	return data, nil
}

// decimalOf parses a loosely typed JSON number, zero when absent or invalid
func decimalOf(n json.Number) decimal.Decimal {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func wholeAmount(n json.Number) int {
	return int(decimalOf(n).Round(0).IntPart())
}

// normalizeDate accepts the date shapes models commonly produce; anything else is
// left empty so the record defaults to today
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range []string{receipt.DateLayout, "2006.01.02", "2006.01.02.", "2006/01/02", "02.01.2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(receipt.DateLayout)
		}
	}
	return ""
}
