package parsing

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

// Category labels assigned to items
const (
	Dairy     = "Dairy"
	Bakery    = "Bakery"
	Meat      = "Meat"
	Produce   = "Produce"
	Beverages = "Beverages"
	Snacks    = "Sweets & Snacks"
	Pantry    = "Pantry"
	Frozen    = "Frozen"
	Household = "Household"
	Hygiene   = "Hygiene"
	Other     = receipt.DefaultCategory
)

// CategoryRule maps a lower-case name fragment to a category label
type CategoryRule struct {
	Keyword  string
	Category string
}

// CategoryRules is scanned in order; the first keyword contained in the name wins.
// More specific fragments are listed before the shorter words they contain.
var CategoryRules = []CategoryRule{
	// beverages that would otherwise hit produce
	{"almalé", Beverages},
	{"narancslé", Beverages},
	{"gyümölcslé", Beverages},
	{"multivitamin", Beverages},
	{"borotva", Hygiene},
	{"vízkő", Household},

	{"jégkrém", Frozen},
	{"fagyasztott", Frozen},
	{"mirelit", Frozen},
	{"pizza", Frozen},

	{"tejföl", Dairy},
	{"tejszín", Dairy},
	{"joghurt", Dairy},
	{"kefir", Dairy},
	{"túró", Dairy},
	{"sajt", Dairy},
	{"trappista", Dairy},
	{"vaj", Dairy},
	{"tej", Dairy},

	{"kenyér", Bakery},
	{"kifli", Bakery},
	{"zsemle", Bakery},
	{"kalács", Bakery},
	{"bagett", Bakery},
	{"croissant", Bakery},
	{"pogácsa", Bakery},
	{"péksüt", Bakery},

	{"csirke", Meat},
	{"pulyka", Meat},
	{"sertés", Meat},
	{"marha", Meat},
	{"sonka", Meat},
	{"szalámi", Meat},
	{"kolbász", Meat},
	{"virsli", Meat},
	{"párizsi", Meat},
	{"darált", Meat},
	{"hús", Meat},

	{"borsó", Produce},
	{"alma", Produce},
	{"banán", Produce},
	{"körte", Produce},
	{"narancs", Produce},
	{"citrom", Produce},
	{"szőlő", Produce},
	{"paradicsom", Produce},
	{"paprika", Produce},
	{"burgonya", Produce},
	{"krumpli", Produce},
	{"hagyma", Produce},
	{"uborka", Produce},
	{"répa", Produce},
	{"saláta", Produce},
	{"gomba", Produce},

	{"ásványvíz", Beverages},
	{"víz", Beverages},
	{"üdítő", Beverages},
	{"cola", Beverages},
	{"sör", Beverages},
	{"bor", Beverages},
	{"kávé", Beverages},
	{"tea", Beverages},
	{"juice", Beverages},

	{"csokoládé", Snacks},
	{"csoki", Snacks},
	{"keksz", Snacks},
	{"nápolyi", Snacks},
	{"chips", Snacks},
	{"cukorka", Snacks},
	{"gumicukor", Snacks},

	{"liszt", Pantry},
	{"cukor", Pantry},
	{"rizs", Pantry},
	{"tészta", Pantry},
	{"olaj", Pantry},
	{"tojás", Pantry},

	{"mosószer", Household},
	{"mosogató", Household},
	{"öblítő", Household},
	{"toalettpapír", Household},
	{"wc", Household},
	{"papírtörlő", Household},
	{"szivacs", Household},
	{"szemeteszsák", Household},

	{"sampon", Hygiene},
	{"fogkrém", Hygiene},
	{"fogkefe", Hygiene},
	{"szappan", Hygiene},
	{"tusfürdő", Hygiene},
	{"dezodor", Hygiene},
	{"pelenka", Hygiene},

	// short enough to occur inside mosogató or csokoládé once accents are folded
	{"só", Pantry},
}

// Categories lists every label Categorize can return
var Categories = []string{
	Dairy, Bakery, Meat, Produce, Beverages, Snacks, Pantry, Frozen, Household, Hygiene, Other,
}

// IsCategory reports whether label is one of Categories
func IsCategory(label string) bool {
	for _, c := range Categories {
		if c == label {
			return true
		}
	}
	return false
}

var foldedKeywords = foldKeywords()

func foldKeywords() []string {
	out := make([]string, len(CategoryRules))
	for i, rule := range CategoryRules {
		out[i] = foldAccents(rule.Keyword)
	}
	return out
}

// foldAccents lower-cases s and drops combining marks, so "KENYER" and "kenyér" compare equal
func foldAccents(s string) string {
	// a transform chain keeps state and cannot be shared between goroutines
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(norm.NFC.String(s))
	}
	return folded
}

// Categorize returns the category of the first rule whose keyword occurs in name,
// or Other when nothing matches. Accents are ignored on both sides.
func Categorize(name string) string {
	folded := foldAccents(name)
	for i, rule := range CategoryRules {
		if strings.Contains(folded, foldedKeywords[i]) {
			return rule.Category
		}
	}
	return Other
}
