// Package session implements the in-memory study session state machine.
//
// An Engine is Idle until Start, Active until End, and Idle again after.
// Navigation and grading on an Idle engine are no-ops. "No card" is a
// value (ok == false), never an error.
package session

import (
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/flashmem/internal/domain"
)

// Shuffler is a source of random permutations. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Progress is a point-in-time view of the active session.
type Progress struct {
	Percent   float64 `json:"percent"`
	Seen      int     `json:"seen_count"`
	Total     int     `json:"total_count"`
	Correct   int     `json:"correct_count"`
	Incorrect int     `json:"incorrect_count"`
	Position  int     `json:"current_position"`
}

// Snapshot bundles the read-only state a host needs to render a session.
type Snapshot struct {
	Active   bool     `json:"active"`
	DeckName string   `json:"deck_name"`
	Mode     Mode     `json:"mode"`
	Revealed bool     `json:"revealed"`
	Progress Progress `json:"progress"`
	Accuracy float64  `json:"accuracy_percent"`
}

type idSet map[domain.CardID]struct{}

type studySession struct {
	id        uuid.UUID
	deckName  string
	cards     []domain.Card
	cursor    int
	reveal    bool
	seen      idSet
	correct   idSet
	incorrect idSet
	startedAt time.Time
	active    bool
	mode      Mode
}

func idleSession() studySession {
	return studySession{
		seen:      idSet{},
		correct:   idSet{},
		incorrect: idSet{},
		mode:      Sequential,
	}
}

// Engine owns one study session and the history of completed ones.
// It is safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	s       studySession
	history []domain.SessionStats

	now    func() time.Time
	rng    Shuffler
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithShuffler sets the permutation source used in Random mode.
func WithShuffler(rng Shuffler) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an Idle engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		s:      idleSession(),
		now:    time.Now,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start replaces any existing session with a fresh one over cards.
// The caller's slice is never reordered.
func (e *Engine) Start(deckName string, cards []domain.Card, mode Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ordered := slices.Clone(cards)
	if mode == Random {
		e.rng.Shuffle(len(ordered), func(i, j int) {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		})
	} else {
		mode = Sequential
	}

	e.s = studySession{
		id:        uuid.New(),
		deckName:  deckName,
		cards:     ordered,
		seen:      idSet{},
		correct:   idSet{},
		incorrect: idSet{},
		startedAt: e.now(),
		active:    true,
		mode:      mode,
	}
	e.logger.Info("study session started",
		"session_id", e.s.id,
		"deck", deckName,
		"cards", len(ordered),
		"mode", mode,
	)
}

// CurrentCard returns the card under the cursor and records it as seen.
func (e *Engine) CurrentCard() (domain.Card, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current()
}

func (e *Engine) current() (domain.Card, bool) {
	if !e.s.active || len(e.s.cards) == 0 {
		return domain.Card{}, false
	}
	card := e.s.cards[e.s.cursor]
	e.s.seen[card.ID()] = struct{}{}
	return card, true
}

// Next advances to and returns the following card. At the last card it
// returns false and leaves the cursor where it is.
func (e *Engine) Next() (domain.Card, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.s.active || len(e.s.cards) == 0 || e.s.cursor >= len(e.s.cards)-1 {
		return domain.Card{}, false
	}
	e.s.cursor++
	e.s.reveal = false
	return e.current()
}

// Prev steps back to and returns the preceding card. At the first card it
// returns false and leaves the cursor where it is.
func (e *Engine) Prev() (domain.Card, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.s.active || len(e.s.cards) == 0 || e.s.cursor <= 0 {
		return domain.Card{}, false
	}
	e.s.cursor--
	e.s.reveal = false
	return e.current()
}

// ToggleReveal flips whether the current card's back is shown and returns
// the new value.
func (e *Engine) ToggleReveal() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.s.reveal = !e.s.reveal
	return e.s.reveal
}

// Revealed reports whether the current card's back is shown.
func (e *Engine) Revealed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.reveal
}

// Mark grades the current card. The latest grade replaces any earlier one.
// The cursor does not move.
func (e *Engine) Mark(correct bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	card, ok := e.current()
	if !ok {
		return
	}
	id := card.ID()
	if correct {
		e.s.correct[id] = struct{}{}
		delete(e.s.incorrect, id)
	} else {
		e.s.incorrect[id] = struct{}{}
		delete(e.s.correct, id)
	}
}

// Progress reports how far through the deck the session is.
// An Idle engine reports all zeros.
func (e *Engine) Progress() Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress()
}

func (e *Engine) progress() Progress {
	if !e.s.active {
		return Progress{}
	}
	p := Progress{
		Seen:      len(e.s.seen),
		Total:     len(e.s.cards),
		Correct:   len(e.s.correct),
		Incorrect: len(e.s.incorrect),
	}
	if p.Total > 0 {
		p.Percent = float64(p.Seen) / float64(p.Total) * 100
		p.Position = e.s.cursor + 1
	}
	return p
}

// Accuracy is the percentage of graded cards marked correct, or 0 when
// nothing has been graded. It stays readable after End.
func (e *Engine) Accuracy() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accuracy()
}

func (e *Engine) accuracy() float64 {
	correct := len(e.s.correct)
	graded := correct + len(e.s.incorrect)
	if graded == 0 {
		return 0
	}
	return float64(correct) / float64(graded) * 100
}

// End finishes the active session, appends its stats to the history and
// returns them. On an Idle engine it returns false and records nothing.
// Cards, cursor and grades stay readable until the next Start.
func (e *Engine) End() (domain.SessionStats, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.s.active {
		return domain.SessionStats{}, false
	}
	endedAt := e.now()
	stats := domain.SessionStats{
		ID:              e.s.id,
		DeckName:        e.s.deckName,
		Mode:            string(e.s.mode),
		TotalCards:      len(e.s.cards),
		SeenCount:       len(e.s.seen),
		CorrectCount:    len(e.s.correct),
		IncorrectCount:  len(e.s.incorrect),
		AccuracyPercent: e.accuracy(),
		StartedAt:       e.s.startedAt,
		EndedAt:         endedAt,
		DurationSeconds: endedAt.Sub(e.s.startedAt).Seconds(),
	}
	e.history = append(e.history, stats)
	e.s.active = false

	e.logger.Info("study session ended",
		"session_id", stats.ID,
		"deck", stats.DeckName,
		"seen", stats.SeenCount,
		"accuracy", stats.AccuracyPercent,
		"duration_seconds", stats.DurationSeconds,
	)
	return stats, true
}

// ResetProgress clears the grades and seen cards and rewinds to the first
// card, keeping the deck, the active flag and the history.
func (e *Engine) ResetProgress() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.s.seen = idSet{}
	e.s.correct = idSet{}
	e.s.incorrect = idSet{}
	e.s.cursor = 0
	e.s.reveal = false
	e.logger.Debug("study session progress reset", "session_id", e.s.id)
}

// ClearSessionData returns the engine to its freshly created state,
// history included.
func (e *Engine) ClearSessionData() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.s = idleSession()
	e.history = nil
	e.logger.Debug("session data cleared")
}

// History returns the stats of every completed session, oldest first.
func (e *Engine) History() []domain.SessionStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.history)
}

// Active reports whether a session is in progress.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.active
}

// DeckName returns the name of the current or most recent session's deck.
func (e *Engine) DeckName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.deckName
}

// Mode returns the ordering mode of the current or most recent session.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.mode
}

// Cards returns the session's cards in presentation order.
func (e *Engine) Cards() []domain.Card {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.s.cards)
}

// Snapshot returns the session state without marking anything seen.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Active:   e.s.active,
		DeckName: e.s.deckName,
		Mode:     e.s.mode,
		Revealed: e.s.reveal,
		Progress: e.progress(),
		Accuracy: e.accuracy(),
	}
}
