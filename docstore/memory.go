package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store. Documents are copied on every read and write.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	now         func() time.Time
}

type memCollection struct {
	order []string // insertion order
	docs  map[string]Data
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		collections: map[string]*memCollection{},
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) collection(name string) *memCollection {
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{docs: map[string]Data{}}
		m.collections[name] = c
	}
	return c
}

// Add implements Store.
func (m *Memory) Add(ctx context.Context, collection string, data Data) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, err := normalize(resolve(data, m.now()))
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	c := m.collection(collection)
	c.order = append(c.order, id)
	c.docs[id] = stored
	return id, nil
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return Document{}, ErrNotFound
	}
	data, ok := c.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	cp, err := normalize(data)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Data: cp}, nil
}

// List implements Store.
func (m *Memory) List(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := []Document{}
	c, ok := m.collections[collection]
	if !ok {
		return docs, nil
	}
	for _, id := range c.order {
		cp, err := normalize(c.docs[id])
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: id, Data: cp})
	}
	sortDocuments(docs, q)
	return docs, nil
}

// Update implements Store.
func (m *Memory) Update(ctx context.Context, collection, id string, ops ...FieldOp) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return ErrNotFound
	}
	data, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}
	updated, err := normalize(applyOps(data, ops, m.now()))
	if err != nil {
		return err
	}
	c.docs[id] = updated
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return nil
	}
	if _, ok := c.docs[id]; !ok {
		return nil
	}
	delete(c.docs, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}
