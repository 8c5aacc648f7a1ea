package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryGateway is an in-process Gateway used by tests and local runs
// without a Redis instance. A single mutex serializes every operation, so
// Swap is trivially atomic.
type MemoryGateway struct {
	mu      sync.Mutex
	docs    map[string][]byte
	pushSeq int

	// FailWith, when set, makes every operation return this error. Used
	// by tests to exercise store-failure propagation.
	FailWith error
}

// NewMemoryGateway creates an empty in-memory document store.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{docs: make(map[string][]byte)}
}

func (g *MemoryGateway) Get(ctx context.Context, path string, dest any) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailWith != nil {
		return false, g.FailWith
	}
	raw, ok := g.docs[path]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decoding %s: %w", path, err)
	}
	return true, nil
}

func (g *MemoryGateway) Set(ctx context.Context, path string, value any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.setLocked(path, value)
}

func (g *MemoryGateway) setLocked(path string, value any) error {
	if g.FailWith != nil {
		return g.FailWith
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	g.docs[path] = data
	return nil
}

func (g *MemoryGateway) Update(ctx context.Context, path string, fields map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailWith != nil {
		return g.FailWith
	}
	doc := make(map[string]any)
	if raw, ok := g.docs[path]; ok {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	for k, v := range fields {
		doc[k] = v
	}
	return g.setLocked(path, doc)
}

func (g *MemoryGateway) Push(ctx context.Context, path string, value any) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailWith != nil {
		return "", g.FailWith
	}
	g.pushSeq++
	key := fmt.Sprintf("key%06d", g.pushSeq)
	return key, g.setLocked(Join(path, key), value)
}

func (g *MemoryGateway) Remove(ctx context.Context, path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailWith != nil {
		return g.FailWith
	}
	delete(g.docs, path)
	prefix := path + "/"
	for k := range g.docs {
		if strings.HasPrefix(k, prefix) {
			delete(g.docs, k)
		}
	}
	return nil
}

func (g *MemoryGateway) Children(ctx context.Context, path string) ([]Child, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailWith != nil {
		return nil, g.FailWith
	}
	return g.childrenLocked(path), nil
}

// childrenLocked derives direct children from stored document paths, so
// interior nodes appear even without a document of their own.
func (g *MemoryGateway) childrenLocked(path string) []Child {
	prefix := path + "/"
	seen := make(map[string]bool)
	keys := []string{}
	for k := range g.docs {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		segment := strings.SplitN(k[len(prefix):], "/", 2)[0]
		if !seen[segment] {
			seen[segment] = true
			keys = append(keys, segment)
		}
	}
	sort.Strings(keys)

	children := make([]Child, len(keys))
	for i, k := range keys {
		children[i] = Child{Key: k}
		if raw, ok := g.docs[Join(path, k)]; ok {
			children[i].Value = json.RawMessage(raw)
		}
	}
	return children
}

func (g *MemoryGateway) QueryEqual(ctx context.Context, path, field, value string) ([]Child, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailWith != nil {
		return nil, g.FailWith
	}
	children := g.childrenLocked(path)
	matched := make([]Child, 0, len(children))
	for _, c := range children {
		if matchField(c.Value, field, value) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (g *MemoryGateway) Swap(ctx context.Context, path string, fn SwapFunc) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailWith != nil {
		return g.FailWith
	}
	var current json.RawMessage
	if raw, ok := g.docs[path]; ok {
		current = json.RawMessage(raw)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	return g.setLocked(path, next)
}
