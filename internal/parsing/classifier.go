package parsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

// LineKind is the classification of one receipt line
type LineKind int

const (
	Noise LineKind = iota
	StoreCandidate
	DateCandidate
	TotalCandidate
	ItemCandidate
)

func (k LineKind) String() string {
	switch k {
	case Noise:
		return "noise"
	case StoreCandidate:
		return "store"
	case DateCandidate:
		return "date"
	case TotalCandidate:
		return "total"
	case ItemCandidate:
		return "item"
	default:
		return fmt.Sprintf("LineKind(%d)", int(k))
	}
}

// storeWindow is the number of leading lines searched for a retailer name
const storeWindow = 5

// Retailers are the known store name tokens, upper case
var Retailers = []string{
	"TESCO", "SPAR", "INTERSPAR", "ALDI", "LIDL", "AUCHAN", "PENNY", "CBA", "COOP",
	"PRIMA", "METRO", "ROSSMANN", "DM", "MÜLLER", "MATCH", "REÁL",
}

var (
	separatorRe = regexp.MustCompile(`^[\s\-=*_.#~+|]+$`)
	timeRe      = regexp.MustCompile(`^\d{1,2}:\d{2}(?::\d{2})?$`)
	barcodeRe   = regexp.MustCompile(`^\d{8,}$`)

	boilerplateRes = []*regexp.Regexp{
		// document-type headers
		regexp.MustCompile(`(?i)^nem\s+adóügyi\s+bizonylat`),
		regexp.MustCompile(`(?i)^(?:nyugta|nyugtaszám|blokk|számla|egyszerűsített\s+számla)`),
		// thank-you footers
		regexp.MustCompile(`(?i)köszönjük|viszontlátásra|várjuk\s+vissza`),
		// tax-id and tax summary labels
		regexp.MustCompile(`(?i)^(?:adószám|adó\s*szám|adó|cégjegyzék|[áa]fa|nav\s)`),
		// payment-method labels
		regexp.MustCompile(`(?i)^(?:fizetési\s+mód|fizetőeszköz|kártyaszám|terminál|engedélyszám|tranzakció)`),
		// cashier and register labels
		regexp.MustCompile(`(?i)^(?:pénztáros|pénztárgép|pénztár|kassza|kezelő|eladó|ap\s?[a-z]\d{6,})`),
		// change and rounding lines carry amounts that are neither items nor the total
		regexp.MustCompile(`(?i)^(?:visszajáró|kerekítés)`),
	}

	datePatterns = []struct {
		re             *regexp.Regexp
		year, mon, day int
	}{
		{regexp.MustCompile(`(\d{4})\s*\.\s*(\d{1,2})\s*\.\s*(\d{1,2})`), 1, 2, 3},
		{regexp.MustCompile(`(\d{1,2})\s*\.\s*(\d{1,2})\s*\.\s*(\d{4})`), 3, 2, 1},
		{regexp.MustCompile(`(\d{4})\s*-\s*(\d{1,2})\s*-\s*(\d{1,2})`), 1, 2, 3},
		{regexp.MustCompile(`(\d{1,2})\s*/\s*(\d{1,2})\s*/\s*(\d{4})`), 3, 2, 1},
	}

	// the keyword must start a word so "AJÁNDÉKKÁRTYA" is not a card payment
	totalKeywordRe = regexp.MustCompile(`(?i)(?:^|[^\p{L}])((?:összesen|végösszeg|fizetendő|részösszeg|összeg|total|bankkártya|szép\s*kártya|kártya|készpénz|utalvány))`)

	retailerRe = buildRetailerRe()
)

func buildRetailerRe() *regexp.Regexp {
	quoted := make([]string, len(Retailers))
	for i, r := range Retailers {
		quoted[i] = regexp.QuoteMeta(r)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:` + strings.Join(quoted, "|") + `)(?:$|[^\p{L}])`)
}

// Found records which single-valued fields a document has already produced.
// Detection of a field stops once it is found.
type Found struct {
	Store bool
	Date  bool
	Total bool
}

// Classification is the result of classifying one line
type Classification struct {
	Kind LineKind
	// Value is the store name or the normalized date
	Value string
	// Amount is the declared total for total lines
	Amount int
}

// Classify decides what a trimmed, non-empty line is. Rules are applied in precedence
// order: noise, store (first lines only), date, total, item.
func Classify(line string, index int, found Found) Classification {
	if isNoise(line) {
		return Classification{Kind: Noise}
	}

	if !found.Store && index < storeWindow && isRetailerLine(line) {
		return Classification{Kind: StoreCandidate, Value: collapseSpaces(line)}
	}

	if !found.Date {
		if date, ok := findDate(line); ok {
			return Classification{Kind: DateCandidate, Value: date}
		}
	}

	if !found.Total {
		if amount, ok := findTotal(line); ok {
			return Classification{Kind: TotalCandidate, Amount: amount}
		}
	}

	if _, ok := trailingAmount(line); ok {
		return Classification{Kind: ItemCandidate}
	}

	return Classification{Kind: Noise}
}

func isNoise(line string) bool {
	if utf8.RuneCountInString(line) < 3 {
		return true
	}
	if separatorRe.MatchString(line) || timeRe.MatchString(line) || barcodeRe.MatchString(line) {
		return true
	}
	for _, re := range boilerplateRes {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func isRetailerLine(line string) bool {
	if retailerRe.MatchString(line) {
		return true
	}
	// a priced line is a product even when a word resembles a retailer (PENNE, PENNY)
	if _, priced := trailingAmount(line); priced {
		return false
	}
	// tolerate a single OCR misread in longer retailer names
	words := strings.FieldsFunc(strings.ToUpper(line), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if utf8.RuneCountInString(w) < 5 {
			continue
		}
		for _, r := range Retailers {
			if utf8.RuneCountInString(r) < 5 {
				continue
			}
			if levenshtein.ComputeDistance(w, r) <= 1 {
				return true
			}
		}
	}
	return false
}

func findDate(line string) (string, bool) {
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		y, _ := strconv.Atoi(m[p.year])
		mo, _ := strconv.Atoi(m[p.mon])
		d, _ := strconv.Atoi(m[p.day])
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		if mo < 1 || mo > 12 || d < 1 || t.Day() != d {
			continue
		}
		return t.Format(receipt.DateLayout), true
	}
	return "", false
}

// findTotal accepts "KEYWORD ... AMOUNT" and "AMOUNT KEYWORD" lines
func findTotal(line string) (int, bool) {
	m := totalKeywordRe.FindStringSubmatchIndex(line)
	if m == nil {
		return 0, false
	}
	if amount, ok := trailingAmount(line[m[3]:]); ok {
		return amount, true
	}
	if amount, ok := leadingAmount(strings.TrimSpace(line[:m[2]])); ok {
		return amount, true
	}
	return 0, false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
