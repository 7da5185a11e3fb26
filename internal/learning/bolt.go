package learning

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

const examplesBucket = "corrections"

// BoltStore implements Store on a single bbolt file. Keys are the bucket sequence in
// big-endian form so cursor order is insertion order.
type BoltStore struct {
	db     *bbolt.DB
	limit  int
	logger *slog.Logger
}

// NewBoltStore opens or creates the store file at path
func NewBoltStore(path string, logger *slog.Logger) (*BoltStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(examplesBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltStore{db: db, limit: MaxExamples, logger: logger}, nil
}

// Append stores the example and evicts the oldest entries in the same transaction
func (b *BoltStore) Append(example receipt.CorrectionExample) error {
	data, err := json.Marshal(example)
	if err != nil {
		return fmt.Errorf("marshaling correction example: %w", err)
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(examplesBucket))
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("allocating sequence: %w", err)
		}
		if err := bucket.Put(sequenceKey(seq), data); err != nil {
			return fmt.Errorf("storing correction example: %w", err)
		}

		n := 0
		if err := bucket.ForEach(func(_, _ []byte) error { n++; return nil }); err != nil {
			return err
		}

		c := bucket.Cursor()
		for over := n - b.limit; over > 0; over-- {
			if k, _ := c.First(); k == nil {
				break
			}
			if err := c.Delete(); err != nil {
				return fmt.Errorf("evicting correction example: %w", err)
			}
		}
		return nil
	})
}

// List returns the stored examples oldest first. Entries that fail to decode are
// skipped so a damaged file degrades to fewer examples rather than an error.
func (b *BoltStore) List() ([]receipt.CorrectionExample, error) {
	examples := make([]receipt.CorrectionExample, 0, b.limit)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(examplesBucket))
		return bucket.ForEach(func(k, v []byte) error {
			var ex receipt.CorrectionExample
			if err := json.Unmarshal(v, &ex); err != nil {
				b.logger.Warn("learning.store.corrupt_entry", "key", fmt.Sprintf("%x", k), "error", err)
				return nil
			}
			examples = append(examples, ex)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return examples, nil
}

// Close closes the database file
func (b *BoltStore) Close() error {
	return b.db.Close()
}

func sequenceKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
