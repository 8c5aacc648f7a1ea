// Package sharing maintains each user's deduplicated set of shared deck
// identifiers.
package sharing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flashdeck-backend/internal/domain"
	"github.com/flashdeck-backend/internal/store"
)

// DeckResolver looks up decks for the title join in ListSharedDecks.
type DeckResolver interface {
	Get(ctx context.Context, deckID string) (domain.Deck, error)
}

// Manager provides shared-deck set operations.
type Manager struct {
	store  store.Gateway
	decks  DeckResolver
	logger *slog.Logger
}

// New creates a sharing manager.
func New(gw store.Gateway, decks DeckResolver, logger *slog.Logger) *Manager {
	return &Manager{store: gw, decks: decks, logger: logger}
}

func sharingPath(userID string) string {
	return store.Join("sharing", userID)
}

// ShareDeck adds deckID to the user's sharing set, creating the set on
// first share. Sharing a deck that is already present fails with
// ErrDeckAlreadyShared and leaves the set untouched. The set mutation
// runs under the store's optimistic swap so concurrent shares for the
// same user cannot lose each other's writes.
func (m *Manager) ShareDeck(ctx context.Context, userID, deckID string) error {
	if userID == "" {
		return domain.ErrUserIDRequired
	}
	if deckID == "" {
		return domain.ErrDeckIDRequired
	}

	err := m.store.Swap(ctx, sharingPath(userID), func(current json.RawMessage) (any, error) {
		if current == nil {
			return []string{deckID}, nil
		}
		var ids []string
		if err := json.Unmarshal(current, &ids); err != nil {
			return nil, fmt.Errorf("decoding sharing set: %w", err)
		}
		for _, id := range ids {
			if id == deckID {
				return nil, domain.ErrDeckAlreadyShared
			}
		}
		return append(ids, deckID), nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrDeckAlreadyShared) {
			return domain.ErrDeckAlreadyShared
		}
		return fmt.Errorf("updating sharing set: %w", err)
	}
	return nil
}

// UnshareDeck removes deckID from the user's sharing set. An absent set
// or a deck not in the set fails with ErrDeckNotShared and mutates
// nothing.
func (m *Manager) UnshareDeck(ctx context.Context, userID, deckID string) error {
	if userID == "" {
		return domain.ErrUserIDRequired
	}
	if deckID == "" {
		return domain.ErrDeckIDRequired
	}

	err := m.store.Swap(ctx, sharingPath(userID), func(current json.RawMessage) (any, error) {
		if current == nil {
			return nil, domain.ErrDeckNotShared
		}
		var ids []string
		if err := json.Unmarshal(current, &ids); err != nil {
			return nil, fmt.Errorf("decoding sharing set: %w", err)
		}
		for i, id := range ids {
			if id == deckID {
				return append(ids[:i], ids[i+1:]...), nil
			}
		}
		return nil, domain.ErrDeckNotShared
	})
	if err != nil {
		if errors.Is(err, domain.ErrDeckNotShared) {
			return domain.ErrDeckNotShared
		}
		return fmt.Errorf("updating sharing set: %w", err)
	}
	return nil
}

// ListSharedDecks returns the decks shared with the user, in set order,
// each resolved against the deck catalog for its display fields. A user
// with no sharing set gets an empty slice. Identifiers whose deck no
// longer exists are silently skipped.
func (m *Manager) ListSharedDecks(ctx context.Context, userID string) ([]domain.Deck, error) {
	var ids []string
	found, err := m.store.Get(ctx, sharingPath(userID), &ids)
	if err != nil {
		return nil, fmt.Errorf("reading sharing set: %w", err)
	}
	if !found {
		return []domain.Deck{}, nil
	}

	decks := make([]domain.Deck, 0, len(ids))
	for _, id := range ids {
		deck, err := m.decks.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrDeckNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolving shared deck %s: %w", id, err)
		}
		decks = append(decks, deck)
	}
	return decks, nil
}
