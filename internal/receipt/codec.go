package receipt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// exportSchema describes the structural export format. Every field is optional so that
// older or partial exports still import; present fields must have the right shape.
const exportSchema = `{
  "type": "object",
  "properties": {
    "items": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "id":       {"type": "string"},
          "name":     {"type": "string"},
          "quantity": {"type": "number", "exclusiveMinimum": 0},
          "unit":     {"type": "string"},
          "price":    {"type": "integer", "minimum": 0},
          "category": {"type": "string"},
          "checked":  {"type": "boolean"}
        },
        "required": ["name"]
      }
    },
    "total": {"type": "integer", "minimum": 0},
    "date":  {"type": "string"},
    "store": {"type": "string"}
  }
}`

// ImportParseError is returned when import input is not a valid receipt export
type ImportParseError struct {
	Cause error
}

func (e *ImportParseError) Error() string {
	return fmt.Sprintf("import parse error: %v", e.Cause)
}

func (e *ImportParseError) Unwrap() error {
	return e.Cause
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("receipt.json", bytes.NewReader([]byte(exportSchema))); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("receipt.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// Export serializes a record to its structural text form
func Export(d ReceiptData) ([]byte, error) {
	out := d.Clone()
	if out.Items == nil {
		out.Items = []ReceiptItem{}
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling receipt: %w", err)
	}
	return b, nil
}

type importItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity"`
	Unit     *string  `json:"unit"`
	Price    *int     `json:"price"`
	Category *string  `json:"category"`
	Checked  *bool    `json:"checked"`
}

type importDoc struct {
	Items []importItem `json:"items"`
	Total int          `json:"total"`
	Date  string       `json:"date"`
	Store string       `json:"store"`
}

// Import parses a structural export, filling defaults for fields missing from older exports
func Import(data []byte) (ReceiptData, error) {
	return importAt(data, time.Now())
}

func importAt(data []byte, now time.Time) (ReceiptData, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return ReceiptData{}, &ImportParseError{Cause: fmt.Errorf("unmarshaling json: %w", err)}
	}

	schema, err := loadSchema()
	if err != nil {
		return ReceiptData{}, err
	}
	if err := schema.Validate(generic); err != nil {
		return ReceiptData{}, &ImportParseError{Cause: fmt.Errorf("json does not match schema: %w", err)}
	}

	var doc importDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return ReceiptData{}, &ImportParseError{Cause: fmt.Errorf("decoding receipt: %w", err)}
	}

	d := ReceiptData{
		Items: make([]ReceiptItem, 0, len(doc.Items)),
		Total: doc.Total,
		Date:  doc.Date,
		Store: doc.Store,
	}
	for _, in := range doc.Items {
		it := ReceiptItem{
			ID:       in.ID,
			Name:     in.Name,
			Quantity: 1,
			Unit:     DefaultUnit,
			Category: DefaultCategory,
		}
		if in.Quantity != nil {
			it.Quantity = *in.Quantity
		}
		if in.Unit != nil && *in.Unit != "" {
			it.Unit = *in.Unit
		}
		if in.Price != nil {
			it.Price = *in.Price
		}
		if in.Category != nil && *in.Category != "" {
			it.Category = *in.Category
		}
		if in.Checked != nil {
			it.Checked = *in.Checked
		}
		d.Items = append(d.Items, it)
	}

	Finalize(&d, now)
	return d, nil
}
