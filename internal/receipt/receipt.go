package receipt

import (
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultUnit is the canonical unit for items sold by count
	DefaultUnit = "piece"
	// DefaultCategory is assigned when no category keyword matches
	DefaultCategory = "Other"
	// UnknownStore is used when no retailer could be recognized
	UnknownStore = "Unknown store"
	// DateLayout is the layout used for dates produced by the engine
	DateLayout = "2006-01-02"
)

// ReceiptItem is a single purchased product line
type ReceiptItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Price    int     `json:"price"` // Unit price in whole currency units
	Category string  `json:"category"`
	Checked  bool    `json:"checked"`
}

// ReceiptData is the structured record extracted from one receipt
type ReceiptData struct {
	Items []ReceiptItem `json:"items"`
	Total int           `json:"total"`
	Date  string        `json:"date"`
	Store string        `json:"store"`
}

// CorrectionExample pairs a machine-produced record with its user-corrected version
type CorrectionExample struct {
	Original  ReceiptData `json:"original"`
	Corrected ReceiptData `json:"corrected"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewItemID returns a fresh opaque item identifier
func NewItemID() string {
	return uuid.NewString()
}

// NewItem creates an item with a fresh ID and the default quantity, unit and category
func NewItem(name string, price int) ReceiptItem {
	return ReceiptItem{
		ID:       NewItemID(),
		Name:     name,
		Quantity: 1,
		Unit:     DefaultUnit,
		Price:    price,
		Category: DefaultCategory,
	}
}

// Clone returns a deep copy of the record
func (d ReceiptData) Clone() ReceiptData {
	out := d
	if d.Items != nil {
		out.Items = make([]ReceiptItem, len(d.Items))
		copy(out.Items, d.Items)
	}
	return out
}
