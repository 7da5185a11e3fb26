package parsing

import (
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

// Parser turns the full recognized text of a receipt into a structured record
type Parser struct {
	extractor *Extractor
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger
}

// NewParser creates a Parser using the default extraction cascade and the wall clock
func NewParser(logger *slog.Logger) *Parser {
	return NewParserWithDeps(NewExtractor(), time.Now, receipt.NewItemID, logger)
}

// NewParserWithDeps creates a Parser with custom dependencies for testing
func NewParserWithDeps(extractor *Extractor, now func() time.Time, newID func() string, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		extractor: extractor,
		now:       now,
		newID:     newID,
		logger:    logger,
	}
}

// Parse classifies every line in order and extracts the accepted items. It never
// fails: a document without items yields a record with an empty item list.
func (p *Parser) Parse(text string) receipt.ReceiptData {
	lines := SplitLines(text)

	var (
		found    Found
		store    string
		date     string
		declared int
		rejected int
	)
	items := make([]receipt.ReceiptItem, 0)

	for i, line := range lines {
		c := Classify(line, i, found)
		switch c.Kind {
		case StoreCandidate:
			store = c.Value
			found.Store = true
		case DateCandidate:
			date = c.Value
			found.Date = true
		case TotalCandidate:
			declared = c.Amount
			found.Total = true
		case ItemCandidate:
			f, ok := p.extractor.Extract(line)
			if !ok {
				rejected++
				continue
			}
			items = append(items, receipt.ReceiptItem{
				ID:       p.newID(),
				Name:     f.Name,
				Quantity: f.Quantity,
				Unit:     f.Unit,
				Price:    f.Price,
				Category: f.Category,
			})
		}
	}

	data := receipt.ReceiptData{
		Items: items,
		Total: declared,
		Date:  date,
		Store: store,
	}
	receipt.Finalize(&data, p.now())

	p.logger.Debug("parsing.receipt.done",
		"lines", len(lines),
		"items", len(items),
		"rejected", rejected,
		"declared_total", declared,
		"total", data.Total,
	)
	return data
}

// SplitLines returns the trimmed, non-empty lines of text in order
func SplitLines(text string) []string {
	text = norm.NFC.String(strings.ReplaceAll(text, "\r\n", "\n"))
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
