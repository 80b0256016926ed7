package remote

import (
	"context"
	"errors"
)

var ErrUnreachable = errors.New("remote table unreachable")

// Table is a remote key-value table addressed by put, scan and delete-by-key.
type Table interface {
	Name() string
	Ping(ctx context.Context) error
	Put(ctx context.Context, item Item) error
	Delete(ctx context.Context, key Item) error
	// Scan returns every item of the table, following pagination to the end.
	Scan(ctx context.Context) ([]Item, error)
}
