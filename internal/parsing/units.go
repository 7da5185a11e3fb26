package parsing

import (
	"regexp"
	"sort"
	"strings"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

// UnitAlias maps one unit spelling to its canonical code
type UnitAlias struct {
	Spelling string
	Code     string
}

// UnitAliases lists every recognized unit spelling in lower case
var UnitAliases = []UnitAlias{
	{"kg", "kg"},
	{"kilo", "kg"},
	{"kilogramm", "kg"},
	{"dkg", "dkg"},
	{"deka", "dkg"},
	{"g", "g"},
	{"gr", "g"},
	{"gramm", "g"},
	{"l", "l"},
	{"ltr", "l"},
	{"liter", "l"},
	{"dl", "dl"},
	{"cl", "cl"},
	{"ml", "ml"},
	{"db", receipt.DefaultUnit},
	{"darab", receipt.DefaultUnit},
	{"pc", receipt.DefaultUnit},
	{"pcs", receipt.DefaultUnit},
	{"cs", "pack"},
	{"csom", "pack"},
	{"csomag", "pack"},
}

// NormalizeUnit maps a unit spelling to its canonical code
func NormalizeUnit(spelling string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(spelling))
	s = strings.TrimSuffix(s, ".")
	for _, a := range UnitAliases {
		if a.Spelling == s {
			return a.Code, true
		}
	}
	return "", false
}

// unitPattern is an alternation of all unit spellings, longest first so that
// "kg" is preferred over "g" and "dkg" over "kg".
func unitPattern() string {
	spellings := make([]string, 0, len(UnitAliases))
	for _, a := range UnitAliases {
		spellings = append(spellings, regexp.QuoteMeta(a.Spelling))
	}
	sort.SliceStable(spellings, func(i, j int) bool {
		return len(spellings[i]) > len(spellings[j])
	})
	return `(?i:` + strings.Join(spellings, "|") + `)`
}
