package parsing

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MinPrice and MaxPrice bound a plausible item price in forints
	MinPrice = 1
	MaxPrice = 50000

	// amountPattern matches "5 250", "5.250", "5250", "250,00" and "12.50"
	amountPattern = `\d{1,3}(?:[ .]\d{3})+(?:,\d{1,2})?|\d+(?:[.,]\d{1,2})?`
	// currencyPattern is the optional currency marker after an amount
	currencyPattern = `(?:\s*(?i:Ft\.?|HUF|,-))?`
)

var (
	trailingAmountRe = regexp.MustCompile(`(?:^|\s)(` + amountPattern + `)` + currencyPattern + `\s*$`)
	leadingAmountRe  = regexp.MustCompile(`^(` + amountPattern + `)` + currencyPattern + `(?:\s|$)`)
	decimalTailRe    = regexp.MustCompile(`[.,](\d{1,2})$`)
)

// ParseAmount converts a localized amount token to whole currency units. Thousand
// separators (space or dot) are dropped; a one or two digit tail after a comma or
// dot is a decimal fraction and is rounded half up.
func ParseAmount(token string) (int, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(token), " ", "")
	if s == "" {
		return 0, false
	}

	whole, frac := s, ""
	if m := decimalTailRe.FindStringSubmatchIndex(s); m != nil {
		whole, frac = s[:m[0]], s[m[2]:m[3]]
	}
	whole = strings.NewReplacer(".", "", ",", "").Replace(whole)
	if whole == "" {
		whole = "0"
	}
	num := whole
	if frac != "" {
		num += "." + frac
	}

	d, err := decimal.NewFromString(num)
	if err != nil {
		return 0, false
	}
	return int(d.Round(0).IntPart()), true
}

// trailingAmount returns the amount a line ends with
func trailingAmount(line string) (int, bool) {
	m := trailingAmountRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return ParseAmount(m[1])
}

// leadingAmount returns the amount a line starts with
func leadingAmount(line string) (int, bool) {
	m := leadingAmountRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return ParseAmount(m[1])
}
