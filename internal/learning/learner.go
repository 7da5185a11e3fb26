package learning

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

// recentInStats is the number of newest examples included in Stats
const recentInStats = 3

// NamePair is one item name as produced and as corrected by the user
type NamePair struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
}

func (p NamePair) String() string {
	return fmt.Sprintf("%s → %s", p.Original, p.Corrected)
}

// PairStat counts how often a name correction was seen
type PairStat struct {
	NamePair
	Count    int `json:"count"`
	Distance int `json:"distance"`
}

// Stats summarizes the stored corrections
type Stats struct {
	Count  int                         `json:"count"`
	Recent []receipt.CorrectionExample `json:"recent"`
	Pairs  []PairStat                  `json:"pairs"`
}

// Learner records user corrections and turns them into extraction hints
type Learner struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// NewLearner creates a Learner over store
func NewLearner(store Store, logger *slog.Logger) *Learner {
	return NewLearnerWithDeps(store, time.Now, logger)
}

// NewLearnerWithDeps creates a Learner with a custom clock for testing
func NewLearnerWithDeps(store Store, now func() time.Time, logger *slog.Logger) *Learner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Learner{store: store, now: now, logger: logger}
}

// Record stores a correction example pairing original with its corrected version
func (l *Learner) Record(original, corrected receipt.ReceiptData) error {
	ex := receipt.CorrectionExample{
		Original:  original.Clone(),
		Corrected: corrected.Clone(),
		Timestamp: l.now().UTC(),
	}
	if err := l.store.Append(ex); err != nil {
		return fmt.Errorf("recording correction: %w", err)
	}
	l.logger.Info("learning.correction.recorded", "pairs", len(namePairs(ex)))
	return nil
}

// RecentHints renders the last n examples, oldest first, one line per example in the
// form "ORIGINAL → CORRECTED; ...". Examples without renamed items are left out.
// A store that cannot be read yields no hints.
func (l *Learner) RecentHints(n int) []string {
	if n <= 0 {
		return nil
	}
	examples := l.list()
	if len(examples) > n {
		examples = examples[len(examples)-n:]
	}

	hints := make([]string, 0, len(examples))
	for _, ex := range examples {
		pairs := namePairs(ex)
		if len(pairs) == 0 {
			continue
		}
		parts := make([]string, len(pairs))
		for i, p := range pairs {
			parts[i] = p.String()
		}
		hints = append(hints, strings.Join(parts, "; "))
	}
	return hints
}

// Stats returns the example count, the newest examples and the frequency of each
// distinct name correction, most frequent first.
func (l *Learner) Stats() Stats {
	examples := l.list()

	counts := make(map[NamePair]int)
	for _, ex := range examples {
		for _, p := range namePairs(ex) {
			counts[p]++
		}
	}
	pairs := make([]PairStat, 0, len(counts))
	for p, c := range counts {
		pairs = append(pairs, PairStat{
			NamePair: p,
			Count:    c,
			Distance: levenshtein.ComputeDistance(p.Original, p.Corrected),
		})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		if pairs[i].Original != pairs[j].Original {
			return pairs[i].Original < pairs[j].Original
		}
		return pairs[i].Corrected < pairs[j].Corrected
	})

	recent := make([]receipt.CorrectionExample, 0, recentInStats)
	for i := len(examples) - 1; i >= 0 && len(recent) < recentInStats; i-- {
		recent = append(recent, examples[i])
	}

	return Stats{Count: len(examples), Recent: recent, Pairs: pairs}
}

func (l *Learner) list() []receipt.CorrectionExample {
	examples, err := l.store.List()
	if err != nil {
		l.logger.Warn("learning.store.unreadable", "error", err)
		return nil
	}
	return examples
}

// namePairs matches corrected items to original items by ID, falling back to the
// item at the same position, and returns the pairs whose names differ.
func namePairs(ex receipt.CorrectionExample) []NamePair {
	byID := make(map[string]receipt.ReceiptItem, len(ex.Original.Items))
	for _, it := range ex.Original.Items {
		if it.ID != "" {
			byID[it.ID] = it
		}
	}

	var pairs []NamePair
	for i, c := range ex.Corrected.Items {
		o, ok := byID[c.ID]
		if !ok || c.ID == "" {
			if i >= len(ex.Original.Items) {
				continue
			}
			o = ex.Original.Items[i]
		}
		from, to := strings.TrimSpace(o.Name), strings.TrimSpace(c.Name)
		if from == "" || to == "" || from == to {
			continue
		}
		pairs = append(pairs, NamePair{Original: from, Corrected: to})
	}
	return pairs
}
