package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

// ItemFields are the values pulled out of one item line
type ItemFields struct {
	Name     string
	Quantity float64
	Unit     string
	Price    int
	Category string
}

// Strategy is one extraction pattern. TryExtract reports false when the pattern
// does not match the whole line.
type Strategy interface {
	Name() string
	TryExtract(line string) (ItemFields, bool)
}

// regexStrategy extracts fields from the named groups name, qty, unit and price
type regexStrategy struct {
	name string
	re   *regexp.Regexp
}

func (s regexStrategy) Name() string { return s.name }

func (s regexStrategy) TryExtract(line string) (ItemFields, bool) {
	m := s.re.FindStringSubmatch(line)
	if m == nil {
		return ItemFields{}, false
	}

	var f ItemFields
	for i, group := range s.re.SubexpNames() {
		v := strings.TrimSpace(m[i])
		if v == "" {
			continue
		}
		switch group {
		case "name":
			f.Name = v
		case "price":
			price, ok := ParseAmount(v)
			if !ok {
				return ItemFields{}, false
			}
			f.Price = price
		case "qty":
			q, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
			if err != nil || q <= 0 {
				return ItemFields{}, false
			}
			f.Quantity = q
		case "unit":
			if code, ok := NormalizeUnit(v); ok {
				f.Unit = code
			}
		}
	}
	if f.Quantity > 0 && f.Unit == "" {
		f.Unit = receipt.DefaultUnit
	}
	return f, true
}

var (
	unitRe = unitPattern()

	// quantity and unit written inside the name, e.g. "2KG", "1,5 l", "3 db"
	qtyUnitRe = regexp.MustCompile(`(?:^|\s)(\d+(?:[.,]\d+)?)\s*(` + unitRe + `)\.?(?:\s|$)`)
	// bare multiplier, e.g. "2x" or "3 ×"
	qtyTimesRe = regexp.MustCompile(`(?:^|\s)(\d+)\s*[x×*](?:\s|$)`)

	promoWordRe = regexp.MustCompile(`(?i)(?:^|\s)(?:akciós|akció|kedvezmény|engedmény|leárazás|-\d{1,2}\s*%)(?:\s|$)`)

	disallowedNameRes = []*regexp.Regexp{
		regexp.MustCompile(`^[\d\s.,:/-]+$`),
		regexp.MustCompile(`(?i)^(?:összesen|végösszeg|fizetendő|részösszeg|összeg|total|készpénz|bankkártya|kártya|szép\s*kártya|utalvány|visszajáró|kerekítés|[áa]fa|adó)`),
		regexp.MustCompile(`^[\p{L}\d]{1,2}$`),
		regexp.MustCompile(`(?i)^(?:dátum|időpont|idő|date|time)(?:$|[^\p{L}])`),
	}

	nameTrim = ".,;:-_*#@|/\\'\"+=~ "
)

// DefaultStrategies returns the extraction cascade, most specific shape first
func DefaultStrategies() []Strategy {
	amount := `(?:` + amountPattern + `)`
	return []Strategy{
		regexStrategy{
			name: "multiplied",
			re: regexp.MustCompile(`^(?P<name>.+?)\s+(?P<qty>\d+(?:[.,]\d+)?)\s*(?P<unit>` + unitRe + `)?\.?\s*[x×*]\s*(?P<price>` + amount + `)` +
				currencyPattern + `(?:\s*/\s*` + unitRe + `)?\s+(?P<total>` + amount + `)` + currencyPattern + `\s*$`),
		},
		regexStrategy{
			name: "discounted",
			re: regexp.MustCompile(`^(?P<name>.+?)\s+(?:(?i:akciós|akció|kedvezmény|engedmény|leárazás)|-\d{1,2}\s*%)\s+(?P<price>` + amount + `)` +
				currencyPattern + `\s*$`),
		},
		regexStrategy{
			name: "standard",
			re:   regexp.MustCompile(`^(?P<name>.*\p{L}.*?)\s+(?P<price>` + amount + `)` + currencyPattern + `\s*$`),
		},
		regexStrategy{
			name: "bare",
			re:   regexp.MustCompile(`^(?P<name>\p{Lu}[\p{Lu}\s.\-]*\p{Lu})\s*(?P<price>\d+)\s*$`),
		},
	}
}

// Extractor turns item candidate lines into item fields
type Extractor struct {
	strategies []Strategy
}

// NewExtractor creates an Extractor with the default strategy cascade
func NewExtractor() *Extractor {
	return NewExtractorWithStrategies(DefaultStrategies())
}

// NewExtractorWithStrategies creates an Extractor with a custom strategy cascade
func NewExtractorWithStrategies(strategies []Strategy) *Extractor {
	return &Extractor{strategies: strategies}
}

// Extract applies the first matching strategy and validates the result. Lines whose
// name or price is implausible are rejected rather than force-included.
func (e *Extractor) Extract(line string) (ItemFields, bool) {
	line = strings.TrimSpace(norm.NFC.String(line))

	var (
		fields  ItemFields
		matched bool
	)
	for _, s := range e.strategies {
		if fields, matched = s.TryExtract(line); matched {
			break
		}
	}
	if !matched {
		return ItemFields{}, false
	}

	if fields.Quantity == 0 {
		fields.Name, fields.Quantity, fields.Unit = splitQuantity(fields.Name)
	}
	fields.Name = CleanName(fields.Name)

	if !validItem(fields) {
		return ItemFields{}, false
	}
	fields.Category = Categorize(fields.Name)
	return fields, true
}

// splitQuantity removes the first quantity token from name, defaulting to one piece
func splitQuantity(name string) (string, float64, string) {
	if m := qtyUnitRe.FindStringSubmatchIndex(name); m != nil {
		q, err := strconv.ParseFloat(strings.ReplaceAll(name[m[2]:m[3]], ",", "."), 64)
		code, ok := NormalizeUnit(name[m[4]:m[5]])
		if err == nil && q > 0 && ok {
			return name[:m[0]] + " " + name[m[1]:], q, code
		}
	}
	if m := qtyTimesRe.FindStringSubmatchIndex(name); m != nil {
		if q, err := strconv.Atoi(name[m[2]:m[3]]); err == nil && q > 0 {
			return name[:m[0]] + " " + name[m[1]:], float64(q), receipt.DefaultUnit
		}
	}
	return name, 1, receipt.DefaultUnit
}

// CleanName produces the display form of a product name: residual quantity tokens and
// promotional words removed, whitespace collapsed, edge punctuation trimmed, upper case.
func CleanName(name string) string {
	name = norm.NFC.String(name)
	for {
		cleaned := qtyUnitRe.ReplaceAllString(name, " ")
		cleaned = qtyTimesRe.ReplaceAllString(cleaned, " ")
		cleaned = promoWordRe.ReplaceAllString(cleaned, " ")
		if cleaned == name {
			break
		}
		name = cleaned
	}
	name = collapseSpaces(name)
	name = strings.Trim(name, nameTrim)
	// a Caser is stateful and cannot be shared between goroutines
	return cases.Upper(language.Hungarian).String(name)
}

func validItem(f ItemFields) bool {
	if utf8.RuneCountInString(f.Name) < 3 {
		return false
	}
	if f.Price < MinPrice || f.Price > MaxPrice {
		return false
	}
	for _, re := range disallowedNameRes {
		if re.MatchString(f.Name) {
			return false
		}
	}
	return true
}
