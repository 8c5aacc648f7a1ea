// Package store provides a path-addressed document store in the style of
// a hierarchical realtime database: JSON values keyed by slash-separated
// paths, with ordered child iteration and shallow-merge updates.
package store

import (
	"context"
	"encoding/json"
	"strings"
)

// Child is one (key, value) pair under a parent path. Value is nil for
// interior nodes that carry no document of their own.
type Child struct {
	Key   string
	Value json.RawMessage
}

// SwapFunc computes the next value for a path given its current raw
// document (nil when absent). Returning an error aborts the swap with no
// mutation.
type SwapFunc func(current json.RawMessage) (next any, err error)

// Gateway is the document store contract consumed by every engine.
//
// No operation is transactional across paths. Update is a shallow merge
// atomic only for the single path it targets. Swap is an optimistic
// read-modify-write on one path: implementations retry on contention and
// never commit a partial state.
type Gateway interface {
	// Get unmarshals the document at path into dest. The boolean reports
	// whether a document was present; absence is not an error.
	Get(ctx context.Context, path string, dest any) (bool, error)

	// Set writes value at path, replacing any existing document.
	Set(ctx context.Context, path string, value any) error

	// Update shallow-merges fields into the document at path, creating it
	// if absent.
	Update(ctx context.Context, path string, fields map[string]any) error

	// Push stores value under path with a server-generated key and
	// returns that key.
	Push(ctx context.Context, path string, value any) (string, error)

	// Remove deletes the document at path and everything beneath it.
	Remove(ctx context.Context, path string) error

	// Children returns the direct children of path in ascending key
	// order. An empty slice means the path has no children.
	Children(ctx context.Context, path string) ([]Child, error)

	// QueryEqual returns the children of path whose document has a
	// top-level string field equal to value, in ascending key order.
	QueryEqual(ctx context.Context, path, field, value string) ([]Child, error)

	// Swap atomically replaces the document at path with the value
	// computed by fn.
	Swap(ctx context.Context, path string, fn SwapFunc) error
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// matchField reports whether the raw document has top-level string field
// equal to value.
func matchField(raw json.RawMessage, field, value string) bool {
	if raw == nil {
		return false
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false
	}
	fv, ok := doc[field]
	if !ok {
		return false
	}
	var s string
	if err := json.Unmarshal(fv, &s); err != nil {
		return false
	}
	return s == value
}
