package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MemoryTable is an in-process Table keyed by a single attribute.
type MemoryTable struct {
	name    string
	keyAttr string

	mu    sync.RWMutex
	items map[string]Item
}

func NewMemoryTable(name, keyAttr string) *MemoryTable {
	return &MemoryTable{
		name:    name,
		keyAttr: keyAttr,
		items:   make(map[string]Item),
	}
}

func (t *MemoryTable) Name() string {
	return t.name
}

func (t *MemoryTable) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (t *MemoryTable) keyOf(item Item) (string, error) {
	switch v := item[t.keyAttr].(type) {
	case *types.AttributeValueMemberS:
		return "S#" + v.Value, nil
	case *types.AttributeValueMemberN:
		return "N#" + v.Value, nil
	default:
		return "", fmt.Errorf("%s: missing key attribute %s", t.name, t.keyAttr)
	}
}

func (t *MemoryTable) Put(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := t.keyOf(item)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[k] = copyItem(item)
	return nil
}

func (t *MemoryTable) Delete(ctx context.Context, key Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := t.keyOf(key)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.items, k)
	return nil
}

// Scan returns items ordered by key.
func (t *MemoryTable) Scan(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]Item, 0, len(keys))
	for _, k := range keys {
		items = append(items, copyItem(t.items[k]))
	}
	return items, nil
}

func (t *MemoryTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

func copyItem(item Item) Item {
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
