package domain

import (
	"time"

	"github.com/google/uuid"
)

// Card represents a single front/back entry belonging to a deck.
type Card struct {
	Front string `json:"front"`
	Back  string `json:"back"`
	Deck  string `json:"deck"`
}

// CardID identifies a card for seen/correct/incorrect bookkeeping.
// Two cards with the same front and back are the same card, whatever deck
// they come from.
type CardID struct {
	Front string
	Back  string
}

// ID returns the identity of the card.
func (c Card) ID() CardID {
	return CardID{Front: c.Front, Back: c.Back}
}

// SessionStats is the snapshot recorded when a study session ends.
type SessionStats struct {
	ID              uuid.UUID `json:"id"`
	DeckName        string    `json:"deck_name"`
	Mode            string    `json:"mode"`
	TotalCards      int       `json:"total_cards"`
	SeenCount       int       `json:"seen_count"`
	CorrectCount    int       `json:"correct_count"`
	IncorrectCount  int       `json:"incorrect_count"`
	AccuracyPercent float64   `json:"accuracy_percent"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds float64   `json:"duration_seconds"`
}
