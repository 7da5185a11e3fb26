package scanning

import "strings"

// receiptPrompt is the instruction shared by the vision-generation providers
const receiptPrompt = `You are reading a Hungarian shop receipt (nyugta). Read every printed line and extract the purchased products.

For each product line return:
- "name": the product name as printed, upper case, without quantity or unit tokens
- "quantity": the number of units bought (default 1)
- "unit": one of "piece", "kg", "dkg", "g", "l", "dl", "cl", "ml", "pack"
- "price": the price of ONE unit in forints, as an integer
- "category": one of "Dairy", "Bakery", "Meat", "Produce", "Beverages", "Sweets & Snacks", "Pantry", "Frozen", "Household", "Hygiene", "Other"

Also return:
- "store": the retailer name printed at the top
- "date": the purchase date as YYYY-MM-DD
- "total": the amount after ÖSSZESEN or FIZETENDŐ, as an integer

Ignore payment lines (KÉSZPÉNZ, BANKKÁRTYA), change (VISSZAJÁRÓ), VAT summaries and footer text.

Return ONLY a JSON object in this format:
{
  "store": "TESCO",
  "date": "2024-03-15",
  "total": 1450,
  "items": [
    {"name": "FEHÉR KENYÉR", "quantity": 1, "unit": "piece", "price": 250, "category": "Bakery"}
  ]
}`

// buildPrompt appends recent user corrections to the shared instruction
func buildPrompt(hints []string) string {
	if len(hints) == 0 {
		return receiptPrompt
	}
	var b strings.Builder
	b.WriteString(receiptPrompt)
	b.WriteString("\n\nUsers corrected these product names on earlier receipts (read → correct). Apply the same corrections when you see them:\n")
	for _, h := range hints {
		b.WriteString("- ")
		b.WriteString(h)
		b.WriteString("\n")
	}
	return b.String()
}
