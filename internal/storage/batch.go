package storage

import (
	"database/sql"
	"fmt"
)

// Batch runs a sequence of homogeneous writes inside a single transaction,
// for callers that need an all-or-nothing apply (e.g. replaying a batch of
// undelivered messages as delivered). Grounded on db.go's withTx helper,
// generalized from a single statement to an ordered list of them.
type Batch struct {
	db  *DB
	ops []func(*sql.Tx) error
}

func NewBatch(db *DB) *Batch {
	return &Batch{db: db}
}

// Add queues an operation. Operations run in the order added.
func (b *Batch) Add(op func(*sql.Tx) error) {
	b.ops = append(b.ops, op)
}

// Len reports the number of queued operations.
func (b *Batch) Len() int { return len(b.ops) }

// Commit runs every queued operation inside one transaction. If any
// operation fails, the whole batch rolls back and Commit returns that
// operation's error wrapped with its index.
func (b *Batch) Commit() error {
	if len(b.ops) == 0 {
		return nil
	}
	return b.db.withTx(func(tx *sql.Tx) error {
		for i, op := range b.ops {
			if err := op(tx); err != nil {
				return fmt.Errorf("batch operation %d failed: %w", i, err)
			}
		}
		return nil
	})
}
