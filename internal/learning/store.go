package learning

import (
	"sync"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

// MaxExamples is the number of correction examples kept; older ones are evicted first
const MaxExamples = 10

// Store defines the interface for correction example persistence
type Store interface {
	// Append adds an example, evicting the oldest ones beyond MaxExamples
	Append(example receipt.CorrectionExample) error

	// List returns the stored examples, oldest first
	List() ([]receipt.CorrectionExample, error)

	// Close releases the backing resources
	Close() error
}

// MemoryStore keeps correction examples in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	limit    int
	examples []receipt.CorrectionExample
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{limit: MaxExamples}
}

func (m *MemoryStore) Append(example receipt.CorrectionExample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.examples = append(m.examples, cloneExample(example))
	if over := len(m.examples) - m.limit; over > 0 {
		m.examples = append([]receipt.CorrectionExample(nil), m.examples[over:]...)
	}
	return nil
}

func (m *MemoryStore) List() ([]receipt.CorrectionExample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]receipt.CorrectionExample, len(m.examples))
	for i, ex := range m.examples {
		out[i] = cloneExample(ex)
	}
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func cloneExample(ex receipt.CorrectionExample) receipt.CorrectionExample {
	return receipt.CorrectionExample{
		Original:  ex.Original.Clone(),
		Corrected: ex.Corrected.Clone(),
		Timestamp: ex.Timestamp,
	}
}
