package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryGatewaySetGet(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()

	require.NoError(t, g.Set(ctx, "a/b", doc{Name: "x", Count: 3}))

	var got doc
	found, err := g.Get(ctx, "a/b", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, doc{Name: "x", Count: 3}, got)

	found, err = g.Get(ctx, "a/missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryGatewayChildren(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()

	require.NoError(t, g.Set(ctx, "root/b", doc{Name: "b"}))
	require.NoError(t, g.Set(ctx, "root/a", doc{Name: "a"}))
	// Interior node: a document two levels down with nothing stored at
	// root/c itself.
	require.NoError(t, g.Set(ctx, "root/c/nested", doc{Name: "n"}))

	children, err := g.Children(ctx, "root")
	require.NoError(t, err)
	require.Len(t, children, 3)

	assert.Equal(t, "a", children[0].Key)
	assert.Equal(t, "b", children[1].Key)
	assert.Equal(t, "c", children[2].Key)
	assert.NotNil(t, children[0].Value)
	assert.Nil(t, children[2].Value)
}

func TestMemoryGatewayUpdate(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()

	require.NoError(t, g.Set(ctx, "d/1", doc{Name: "orig", Count: 1}))
	require.NoError(t, g.Update(ctx, "d/1", map[string]any{"name": "changed"}))

	var got doc
	found, err := g.Get(ctx, "d/1", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "changed", got.Name)
	assert.Equal(t, 1, got.Count)
}

func TestMemoryGatewayPush(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()

	k1, err := g.Push(ctx, "list", doc{Name: "first"})
	require.NoError(t, err)
	k2, err := g.Push(ctx, "list", doc{Name: "second"})
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
	assert.Less(t, k1, k2)

	children, err := g.Children(ctx, "list")
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestMemoryGatewayRemoveRecursive(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()

	require.NoError(t, g.Set(ctx, "tree/x", doc{}))
	require.NoError(t, g.Set(ctx, "tree/x/deep", doc{}))
	require.NoError(t, g.Set(ctx, "tree/y", doc{}))

	require.NoError(t, g.Remove(ctx, "tree/x"))

	children, err := g.Children(ctx, "tree")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "y", children[0].Key)
}

func TestMemoryGatewayQueryEqual(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()

	require.NoError(t, g.Set(ctx, "items/1", doc{Name: "red"}))
	require.NoError(t, g.Set(ctx, "items/2", doc{Name: "blue"}))
	require.NoError(t, g.Set(ctx, "items/3", doc{Name: "red"}))

	matched, err := g.QueryEqual(ctx, "items", "name", "red")
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, "1", matched[0].Key)
	assert.Equal(t, "3", matched[1].Key)
}

func TestMemoryGatewaySwap(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()

	// First swap sees no current value.
	err := g.Swap(ctx, "counter", func(current json.RawMessage) (any, error) {
		assert.Nil(t, current)
		return doc{Count: 1}, nil
	})
	require.NoError(t, err)

	// Second swap sees the previous write.
	err = g.Swap(ctx, "counter", func(current json.RawMessage) (any, error) {
		var d doc
		require.NoError(t, json.Unmarshal(current, &d))
		d.Count++
		return d, nil
	})
	require.NoError(t, err)

	var got doc
	found, err := g.Get(ctx, "counter", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, got.Count)
}

func TestMemoryGatewaySwapError(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	require.NoError(t, g.Set(ctx, "k", doc{Count: 5}))

	sentinel := errors.New("rejected")
	err := g.Swap(ctx, "k", func(json.RawMessage) (any, error) {
		return nil, sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	// Value untouched after a rejected swap.
	var got doc
	found, err := g.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 5, got.Count)
}

func TestMemoryGatewayFailWith(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	boom := errors.New("store down")
	g.FailWith = boom

	var got doc
	_, err := g.Get(ctx, "x", &got)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, g.Set(ctx, "x", doc{}), boom)
	_, err = g.Children(ctx, "x")
	assert.ErrorIs(t, err, boom)
}
