package receipt

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ItemsTotal returns the sum of price × quantity over items, rounded to a whole currency amount
func ItemsTotal(items []ReceiptItem) int {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromInt(int64(it.Price)).Mul(decimal.NewFromFloat(it.Quantity)))
	}
	return int(sum.Round(0).IntPart())
}

// Finalize applies the record defaults in place: missing store and date, item defaults
// and the total invariant (a record with items never leaves with a zero total).
func Finalize(d *ReceiptData, now time.Time) {
	d.Store = strings.TrimSpace(d.Store)
	if d.Store == "" {
		d.Store = UnknownStore
	}
	d.Date = strings.TrimSpace(d.Date)
	if d.Date == "" {
		d.Date = now.Format(DateLayout)
	}
	if d.Items == nil {
		d.Items = []ReceiptItem{}
	}
	for i := range d.Items {
		it := &d.Items[i]
		if it.ID == "" {
			it.ID = NewItemID()
		}
		if it.Quantity <= 0 {
			it.Quantity = 1
		}
		if it.Unit == "" {
			it.Unit = DefaultUnit
		}
		if it.Price < 0 {
			it.Price = 0
		}
		if it.Category == "" {
			it.Category = DefaultCategory
		}
	}
	if d.Total < 0 {
		d.Total = 0
	}
	if d.Total == 0 && len(d.Items) > 0 {
		d.Total = ItemsTotal(d.Items)
	}
}
