// Package decks is the minimal deck catalog: the records the sharing
// manager joins against for titles, plus the CRUD the dashboard needs.
package decks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/flashdeck-backend/internal/domain"
	"github.com/flashdeck-backend/internal/store"
)

// Catalog provides deck record operations over the document store.
type Catalog struct {
	store  store.Gateway
	logger *slog.Logger
	clock  func() time.Time
}

// New creates a deck catalog.
func New(gw store.Gateway, logger *slog.Logger) *Catalog {
	return &Catalog{
		store:  gw,
		logger: logger,
		clock:  time.Now,
	}
}

func deckPath(deckID string) string {
	return store.Join("deck", deckID)
}

// Create stores a new deck under a generated id and returns that id.
func (c *Catalog) Create(ctx context.Context, deck domain.Deck) (string, error) {
	if deck.UserID == "" {
		return "", domain.ErrUserIDRequired
	}
	deck.ID = ""
	deck.CardsCount = 0
	deck.LastOpened = ""
	id, err := c.store.Push(ctx, "deck", deck)
	if err != nil {
		return "", fmt.Errorf("creating deck: %w", err)
	}
	return id, nil
}

// Get returns a deck by id, with the id attached to the record.
func (c *Catalog) Get(ctx context.Context, deckID string) (domain.Deck, error) {
	var deck domain.Deck
	found, err := c.store.Get(ctx, deckPath(deckID), &deck)
	if err != nil {
		return domain.Deck{}, fmt.Errorf("reading deck: %w", err)
	}
	if !found {
		return domain.Deck{}, domain.ErrDeckNotFound
	}
	deck.ID = deckID
	return deck, nil
}

// Update shallow-merges the editable deck fields. Counters and timestamps
// owned elsewhere are left alone.
func (c *Catalog) Update(ctx context.Context, deckID string, deck domain.Deck) error {
	if _, err := c.Get(ctx, deckID); err != nil {
		return err
	}
	fields := map[string]any{
		"userId":      deck.UserID,
		"title":       deck.Title,
		"description": deck.Description,
		"visibility":  deck.Visibility,
	}
	if err := c.store.Update(ctx, deckPath(deckID), fields); err != nil {
		return fmt.Errorf("updating deck: %w", err)
	}
	return nil
}

// Delete removes a deck record.
func (c *Catalog) Delete(ctx context.Context, deckID string) error {
	if err := c.store.Remove(ctx, deckPath(deckID)); err != nil {
		return fmt.Errorf("deleting deck: %w", err)
	}
	return nil
}

// TouchLastOpened stamps the deck with the current time.
func (c *Catalog) TouchLastOpened(ctx context.Context, deckID string) error {
	fields := map[string]any{
		"lastOpened": c.clock().UTC().Format(domain.AttemptTimeLayout),
	}
	if err := c.store.Update(ctx, deckPath(deckID), fields); err != nil {
		return fmt.Errorf("updating deck lastOpened: %w", err)
	}
	return nil
}

// ListByOwner returns the decks created by one user.
func (c *Catalog) ListByOwner(ctx context.Context, userID string) ([]domain.Deck, error) {
	return c.query(ctx, "userId", userID)
}

// ListPublic returns every publicly visible deck.
func (c *Catalog) ListPublic(ctx context.Context) ([]domain.Deck, error) {
	return c.query(ctx, "visibility", domain.VisibilityPublic)
}

func (c *Catalog) query(ctx context.Context, field, value string) ([]domain.Deck, error) {
	children, err := c.store.QueryEqual(ctx, "deck", field, value)
	if err != nil {
		return nil, fmt.Errorf("querying decks: %w", err)
	}
	decks := make([]domain.Deck, 0, len(children))
	for _, child := range children {
		var deck domain.Deck
		if err := json.Unmarshal(child.Value, &deck); err != nil {
			return nil, fmt.Errorf("decoding deck %s: %w", child.Key, err)
		}
		deck.ID = child.Key
		decks = append(decks, deck)
	}
	return decks, nil
}
