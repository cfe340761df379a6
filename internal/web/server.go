package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/conorfennell/flashmem/internal/deck"
	"github.com/conorfennell/flashmem/internal/domain"
	"github.com/conorfennell/flashmem/internal/knol"
	"github.com/conorfennell/flashmem/internal/session"
	"github.com/conorfennell/flashmem/internal/storage"
	"github.com/conorfennell/flashmem/internal/sync"
)

// CustomDeckName is the session deck name used for uploaded decks.
const CustomDeckName = "custom_deck"

// maxUploadBytes bounds the size of an uploaded deck.
const maxUploadBytes = 4 << 20

// Server holds the dependencies for the HTTP server.
type Server struct {
	engine      *session.Engine
	loader      *deck.Loader
	db          *storage.DB
	reposDir    string
	defaultMode session.Mode
	router      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithDeckStore enables POST /sync against db, cloning git sources into
// reposDir.
func WithDeckStore(db *storage.DB, reposDir string) Option {
	return func(s *Server) {
		s.db = db
		s.reposDir = reposDir
	}
}

// WithDefaultMode sets the mode used when a start request names none.
func WithDefaultMode(mode session.Mode) Option {
	return func(s *Server) { s.defaultMode = mode }
}

// NewServer creates and configures a new server.
func NewServer(engine *session.Engine, loader *deck.Loader, opts ...Option) *Server {
	s := &Server{
		engine:      engine,
		loader:      loader,
		defaultMode: session.Sequential,
		router:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /decks", s.handleListDecks())
	s.router.HandleFunc("GET /decks/{id}", s.handleDeckSummary())

	s.router.HandleFunc("POST /session", s.handleStart())
	s.router.HandleFunc("POST /session/upload", s.handleUpload())
	s.router.HandleFunc("GET /session", s.handleSnapshot())
	s.router.HandleFunc("DELETE /session", s.handleClear())
	s.router.HandleFunc("GET /session/card", s.handleCurrentCard())
	s.router.HandleFunc("POST /session/next", s.handleMove(s.engine.Next))
	s.router.HandleFunc("POST /session/prev", s.handleMove(s.engine.Prev))
	s.router.HandleFunc("POST /session/reveal", s.handleReveal())
	s.router.HandleFunc("POST /session/mark", s.handleMark())
	s.router.HandleFunc("GET /session/progress", s.handleProgress())
	s.router.HandleFunc("POST /session/end", s.handleEnd())
	s.router.HandleFunc("POST /session/reset", s.handleReset())

	s.router.HandleFunc("GET /history", s.handleHistory())
	s.router.HandleFunc("POST /sync", s.handleSync())
}

// cardView is the wire form of the current card.
type cardView struct {
	ID       string `json:"id"`
	Front    string `json:"front"`
	Back     string `json:"back,omitempty"`
	Deck     string `json:"deck"`
	Revealed bool   `json:"revealed"`
}

func newCardView(card domain.Card, revealed bool) cardView {
	v := cardView{
		ID:       knol.Hash(card),
		Front:    card.Front,
		Deck:     card.Deck,
		Revealed: revealed,
	}
	if revealed {
		v.Back = card.Back
	}
	return v
}

func (s *Server) handleListDecks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := s.loader.ListAvailableDecks()
		if err != nil {
			slog.Error("Error listing decks", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"decks": ids})
	}
}

// labelCount is the number of cards in a deck carrying one deck label.
type labelCount struct {
	Label     string `json:"label"`
	CardCount int    `json:"card_count"`
}

// handleDeckSummary reports a catalog deck's card count and the count per
// deck label. Labels are counted the way a start request filters them,
// ignoring case.
func (s *Server) handleDeckSummary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		cards, err := s.loader.LoadNamedDeck(id)
		if err != nil {
			writeLoadError(w, err)
			return
		}
		labels := []labelCount{}
		for _, label := range deck.Labels(cards) {
			labels = append(labels, labelCount{Label: label, CardCount: len(deck.FilterByDeck(cards, label))})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         id,
			"card_count": len(cards),
			"labels":     labels,
		})
	}
}

// handleStart loads a catalog deck, optionally narrowed to one deck label,
// and starts a session over it.
func (s *Server) handleStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, ok := s.parseMode(w, r)
		if !ok {
			return
		}
		id := r.PostFormValue("deck")
		if id == "" {
			http.Error(w, "Deck cannot be empty", http.StatusBadRequest)
			return
		}

		cards, err := s.loader.LoadNamedDeck(id)
		if err != nil {
			writeLoadError(w, err)
			return
		}
		if label := r.PostFormValue("label"); label != "" {
			cards = deck.FilterByDeck(cards, label)
			if len(cards) == 0 {
				http.Error(w, "No cards with deck label "+strconv.Quote(label), http.StatusBadRequest)
				return
			}
		}

		s.engine.Start(id, cards, mode)
		s.writeCurrentCard(w)
	}
}

// handleUpload starts a session over an uploaded CSV deck.
func (s *Server) handleUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			http.Error(w, "Invalid upload", http.StatusBadRequest)
			return
		}
		mode, ok := s.parseMode(w, r)
		if !ok {
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "Missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "Invalid upload", http.StatusBadRequest)
			return
		}
		cards, err := s.loader.LoadUploadedDeck(content)
		if err != nil {
			writeLoadError(w, err)
			return
		}

		s.engine.Start(CustomDeckName, cards, mode)
		s.writeCurrentCard(w)
	}
}

func (s *Server) handleSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.engine.Snapshot())
	}
}

func (s *Server) handleCurrentCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeCurrentCard(w)
	}
}

// handleMove wraps Next and Prev. Running off either end is 204.
func (s *Server) handleMove(move func() (domain.Card, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, ok := move()
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, newCardView(card, s.engine.Revealed()))
	}
}

func (s *Server) handleReveal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.engine.ToggleReveal()
		s.writeCurrentCard(w)
	}
}

func (s *Server) handleMark() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		correct, err := strconv.ParseBool(r.PostFormValue("correct"))
		if err != nil {
			http.Error(w, "Invalid grade", http.StatusBadRequest)
			return
		}
		s.engine.Mark(correct)
		writeJSON(w, http.StatusOK, s.engine.Snapshot())
	}
}

func (s *Server) handleProgress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"progress":         s.engine.Progress(),
			"accuracy_percent": s.engine.Accuracy(),
		})
	}
}

func (s *Server) handleEnd() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, ok := s.engine.End()
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) handleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.engine.ResetProgress()
		writeJSON(w, http.StatusOK, s.engine.Snapshot())
	}
}

func (s *Server) handleClear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.engine.ClearSessionData()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history := s.engine.History()
		if history == nil {
			history = []domain.SessionStats{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": history})
	}
}

// handleSync imports decks from every source. The request waits for
// the import to finish.
func (s *Server) handleSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.db == nil {
			http.Error(w, "Deck store not configured", http.StatusNotFound)
			return
		}
		report, err := sync.RunSync(r.Context(), s.db, s.reposDir)
		if err != nil {
			slog.Error("Error running sync", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func (s *Server) parseMode(w http.ResponseWriter, r *http.Request) (session.Mode, bool) {
	raw := r.PostFormValue("mode")
	if raw == "" {
		return s.defaultMode, true
	}
	mode, err := session.ParseMode(raw)
	if err != nil {
		http.Error(w, "Invalid mode", http.StatusBadRequest)
		return "", false
	}
	return mode, true
}

func (s *Server) writeCurrentCard(w http.ResponseWriter) {
	card, ok := s.engine.CurrentCard()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, newCardView(card, s.engine.Revealed()))
}

// writeLoadError maps a deck loading failure onto a client error.
func writeLoadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, deck.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, deck.ErrParse), errors.Is(err, deck.ErrSchema), errors.Is(err, deck.ErrEmptyInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("Error loading deck", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Error writing response", "error", err)
	}
}
