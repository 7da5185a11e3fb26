package scanning

import (
	"time"

	"github.com/zombor/receipt-scanner/internal/parsing"
	"github.com/zombor/receipt-scanner/internal/receipt"
)

// MockStore is the store name of the placeholder record
const MockStore = "Minta Bolt"

// MockReceipt returns the fixed placeholder record used when every provider failed.
// Content is constant; item ids are fresh on every call.
func MockReceipt(now time.Time) receipt.ReceiptData {
	items := []receipt.ReceiptItem{
		{Name: "FEHÉR KENYÉR", Quantity: 1, Unit: receipt.DefaultUnit, Price: 250, Category: parsing.Bakery},
		{Name: "TEJ 2,8%", Quantity: 1, Unit: "l", Price: 350, Category: parsing.Dairy},
		{Name: "ALMA", Quantity: 2, Unit: "kg", Price: 300, Category: parsing.Produce},
		{Name: "TRAPPISTA SAJT", Quantity: 0.25, Unit: "kg", Price: 3200, Category: parsing.Dairy},
	}
	for i := range items {
		items[i].ID = receipt.NewItemID()
	}

	data := receipt.ReceiptData{
		Items: items,
		Store: MockStore,
		Date:  now.Format(receipt.DateLayout),
	}
	receipt.Finalize(&data, now)
	return data
}
