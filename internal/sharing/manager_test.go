package sharing

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdeck-backend/internal/domain"
	"github.com/flashdeck-backend/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubResolver struct {
	decks map[string]domain.Deck
}

func (s stubResolver) Get(_ context.Context, deckID string) (domain.Deck, error) {
	deck, ok := s.decks[deckID]
	if !ok {
		return domain.Deck{}, domain.ErrDeckNotFound
	}
	deck.ID = deckID
	return deck, nil
}

func newManager(gw *store.MemoryGateway, decks map[string]domain.Deck) *Manager {
	return New(gw, stubResolver{decks: decks}, testLogger())
}

func TestShareDeck(t *testing.T) {
	gw := store.NewMemoryGateway()
	m := newManager(gw, nil)
	ctx := context.Background()

	require.NoError(t, m.ShareDeck(ctx, "u1", "d1"))
	require.NoError(t, m.ShareDeck(ctx, "u1", "d2"))

	var ids []string
	found, err := gw.Get(ctx, "sharing/u1", &ids)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"d1", "d2"}, ids)
}

func TestShareDeckDuplicate(t *testing.T) {
	gw := store.NewMemoryGateway()
	m := newManager(gw, nil)
	ctx := context.Background()

	require.NoError(t, m.ShareDeck(ctx, "u1", "d1"))
	err := m.ShareDeck(ctx, "u1", "d1")
	assert.ErrorIs(t, err, domain.ErrDeckAlreadyShared)

	// Set untouched after the rejected share.
	var ids []string
	_, err = gw.Get(ctx, "sharing/u1", &ids)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, ids)
}

func TestShareDeckValidation(t *testing.T) {
	m := newManager(store.NewMemoryGateway(), nil)
	ctx := context.Background()

	assert.ErrorIs(t, m.ShareDeck(ctx, "", "d1"), domain.ErrUserIDRequired)
	assert.ErrorIs(t, m.ShareDeck(ctx, "u1", ""), domain.ErrDeckIDRequired)
}

func TestUnshareDeck(t *testing.T) {
	gw := store.NewMemoryGateway()
	m := newManager(gw, nil)
	ctx := context.Background()

	require.NoError(t, m.ShareDeck(ctx, "u1", "d1"))
	require.NoError(t, m.ShareDeck(ctx, "u1", "d2"))
	require.NoError(t, m.UnshareDeck(ctx, "u1", "d1"))

	var ids []string
	_, err := gw.Get(ctx, "sharing/u1", &ids)
	require.NoError(t, err)
	assert.Equal(t, []string{"d2"}, ids)
}

func TestUnshareDeckNotShared(t *testing.T) {
	gw := store.NewMemoryGateway()
	m := newManager(gw, nil)
	ctx := context.Background()

	// No set at all.
	assert.ErrorIs(t, m.UnshareDeck(ctx, "u1", "d1"), domain.ErrDeckNotShared)

	// Set exists but the deck is not in it.
	require.NoError(t, m.ShareDeck(ctx, "u1", "d2"))
	assert.ErrorIs(t, m.UnshareDeck(ctx, "u1", "d1"), domain.ErrDeckNotShared)
}

func TestListSharedDecks(t *testing.T) {
	gw := store.NewMemoryGateway()
	m := newManager(gw, map[string]domain.Deck{
		"d1": {Title: "Spanish Verbs"},
		"d2": {Title: "Kanji N5"},
	})
	ctx := context.Background()

	require.NoError(t, m.ShareDeck(ctx, "u1", "d1"))
	require.NoError(t, m.ShareDeck(ctx, "u1", "d2"))

	decks, err := m.ListSharedDecks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, decks, 2)
	assert.Equal(t, "Spanish Verbs", decks[0].Title)
	assert.Equal(t, "Kanji N5", decks[1].Title)
}

func TestListSharedDecksSkipsDangling(t *testing.T) {
	gw := store.NewMemoryGateway()
	m := newManager(gw, map[string]domain.Deck{
		"d2": {Title: "Kanji N5"},
	})
	ctx := context.Background()

	require.NoError(t, m.ShareDeck(ctx, "u1", "d1"))
	require.NoError(t, m.ShareDeck(ctx, "u1", "d2"))

	// d1's deck record was deleted; the listing drops it silently.
	decks, err := m.ListSharedDecks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "d2", decks[0].ID)
}

func TestListSharedDecksAbsentSet(t *testing.T) {
	m := newManager(store.NewMemoryGateway(), nil)

	decks, err := m.ListSharedDecks(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, decks)
	assert.NotNil(t, decks)
}
