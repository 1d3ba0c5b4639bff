// Package history is an append-only ledger of closure-status lookups. It
// records what the lookup service answered and when; it is never consulted
// to answer a lookup.
package history

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("history: not found")
	ErrAlreadyExists = errors.New("history: already exists")
)

// Lookup is one recorded lookup result.
type Lookup struct {
	ID         string
	CorpNum    string
	Type       string
	TypeDate   string
	State      string
	StateDate  string
	CheckDate  string
	RecordedAt time.Time
}

// ListFilter narrows List. Zero values mean "no filter"; Limit <= 0 uses
// DefaultListLimit.
type ListFilter struct {
	CorpNum string
	Limit   int
}

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// Store is the root data access interface implemented by drivers.
type Store interface {
	Lookups() Lookups

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller MUST call Commit() or
	// Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing if fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Lookups interface {
	// Record inserts a lookup; the ID is provided by the caller (ULID).
	Record(ctx context.Context, l Lookup) error

	// Get returns a lookup by ID.
	Get(ctx context.Context, id string) (Lookup, error)

	// List returns lookups newest first.
	List(ctx context.Context, f ListFilter) ([]Lookup, error)

	// Count returns how many lookups were recorded, optionally for one
	// corp number.
	Count(ctx context.Context, corpNum string) (int64, error)

	// Prune deletes lookups recorded before cutoff and reports how many.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}
