package sync

import (
	"context"
	"errors"
	"fmt"

	"catalog-sync-service/internal/catalog"
)

var ErrAlreadyRunning = errors.New("sync is already running")

const (
	StatusIdle    = "idle"
	StatusRunning = "running"

	DirectionBidirectional = "bidirectional"

	TableProducts = "products"
	TableUsers    = "users"
)

type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
)

// ChangeEvent is a row change observed on a local catalog table.
type ChangeEvent struct {
	Type       EventType
	Schema     string
	Table      string
	Rows       int
	Timestamp  uint32
	BinlogFile string
	BinlogPos  uint32
}

func (e ChangeEvent) String() string {
	return fmt.Sprintf("[%s] %s.%s (%d rows)", e.Type, e.Schema, e.Table, e.Rows)
}

// ProductStore is the local product table as seen by the sync routine.
type ProductStore interface {
	List(ctx context.Context) ([]*catalog.Product, error)
	ListDeleted(ctx context.Context) ([]*catalog.Product, error)
	Get(ctx context.Context, code string) (*catalog.Product, error)
	Insert(ctx context.Context, p *catalog.Product) error
	DeletePhysical(ctx context.Context, code string) error
	MarkSynced(ctx context.Context, code string) error
	Count(ctx context.Context) (int, error)
}

// UserStore is the local user table as seen by the sync routine.
type UserStore interface {
	List(ctx context.Context) ([]*catalog.User, error)
	Get(ctx context.Context, id int64) (*catalog.User, error)
	Upsert(ctx context.Context, u *catalog.User) error
	MarkSynced(ctx context.Context, id int64) error
}

// phaseResult counts what one phase of a run did.
type phaseResult struct {
	ok        int
	failed    int
	conflicts int
	err       error
}
