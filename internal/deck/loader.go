package deck

import (
	"fmt"
	"strings"

	"github.com/conorfennell/flashmem/internal/domain"
)

// Loader turns catalog entries and uploads into validated card lists.
// A failed load has no side effects.
type Loader struct {
	catalog Catalog
}

// NewLoader creates a loader backed by the given catalog.
func NewLoader(catalog Catalog) *Loader {
	return &Loader{catalog: catalog}
}

// ListAvailableDecks returns the catalog's deck ids in ascending order.
func (l *Loader) ListAvailableDecks() ([]string, error) {
	return l.catalog.Enumerate()
}

// LoadNamedDeck reads and validates the catalog deck named id.
func (l *Loader) LoadNamedDeck(id string) ([]domain.Card, error) {
	content, err := l.catalog.ReadTable(id)
	if err != nil {
		return nil, err
	}
	cards, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("deck %s: %w", id, err)
	}
	return cards, nil
}

// LoadUploadedDeck validates user supplied CSV content.
func (l *Loader) LoadUploadedDeck(content []byte) ([]domain.Card, error) {
	return Parse(content)
}

// FilterByDeck returns the cards whose deck label matches label,
// ignoring case.
func FilterByDeck(cards []domain.Card, label string) []domain.Card {
	var out []domain.Card
	for _, c := range cards {
		if strings.EqualFold(c.Deck, label) {
			out = append(out, c)
		}
	}
	return out
}

// Labels returns the distinct deck labels in first-seen order.
func Labels(cards []domain.Card) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, c := range cards {
		if !seen[c.Deck] {
			seen[c.Deck] = true
			labels = append(labels, c.Deck)
		}
	}
	return labels
}
