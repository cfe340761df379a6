package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/flashmem/internal/deck"
)

// DB represents a wrapper around the SQL database connection.
// It doubles as a deck.Catalog over the imported decks.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Source represents a deck source, either a local path or a Git URL.
type Source struct {
	ID          int64
	Path        string
	Type        string
	LastScanned sql.NullTime
}

// DeckRecord is the metadata of an imported deck.
type DeckRecord struct {
	Name       string
	CardCount  int
	ImportedAt time.Time
	SourceID   sql.NullInt64
}

// InsertSource inserts a new source path into the database and returns its ID.
func (db *DB) InsertSource(path, sourceType string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path, type)
		VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source from the database by its path.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRow(`
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`, path)

	err := row.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Source not found
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources from the database.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, type, last_scanned
		FROM sources ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// DeleteSource removes a source and every deck imported from it.
func (db *DB) DeleteSource(id int64) error {
	if _, err := db.conn.Exec(`DELETE FROM sources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete source ID %d: %w", id, err)
	}
	return nil
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(sourceID int64) error {
	_, err := db.conn.Exec(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, time.Now(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// UpsertDeck stores a deck table under name, replacing any deck of the
// same name. A sourceID of 0 stores the deck without a source.
func (db *DB) UpsertDeck(name string, content []byte, cardCount int, sourceID int64) error {
	source := sql.NullInt64{Int64: sourceID, Valid: sourceID != 0}
	_, err := db.conn.Exec(`
		INSERT INTO decks (name, content, card_count, imported_at, source_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			content = excluded.content,
			card_count = excluded.card_count,
			imported_at = excluded.imported_at,
			source_id = excluded.source_id
	`, name, content, cardCount, time.Now(), source)
	if err != nil {
		return fmt.Errorf("failed to upsert deck %s: %w", name, err)
	}
	return nil
}

// GetDecksBySourceID retrieves the metadata of every deck imported from a source.
func (db *DB) GetDecksBySourceID(sourceID int64) ([]DeckRecord, error) {
	rows, err := db.conn.Query(`
		SELECT name, card_count, imported_at, source_id
		FROM decks WHERE source_id = ?
		ORDER BY name
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get decks for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	var decks []DeckRecord
	for rows.Next() {
		var d DeckRecord
		if err := rows.Scan(&d.Name, &d.CardCount, &d.ImportedAt, &d.SourceID); err != nil {
			return nil, fmt.Errorf("failed to scan deck row for source ID %d: %w", sourceID, err)
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

// DeleteDeck removes a deck from the database by its name.
func (db *DB) DeleteDeck(name string) error {
	if _, err := db.conn.Exec(`DELETE FROM decks WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete deck %s: %w", name, err)
	}
	return nil
}

// Enumerate lists the names of all imported decks in ascending order.
func (db *DB) Enumerate() ([]string, error) {
	rows, err := db.conn.Query(`SELECT name FROM decks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan deck name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ReadTable returns the stored content of the deck named name.
func (db *DB) ReadTable(name string) ([]byte, error) {
	var content []byte
	err := db.conn.QueryRow(`SELECT content FROM decks WHERE name = ?`, name).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", deck.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read deck %s: %w", name, err)
	}
	return content, nil
}

var _ deck.Catalog = (*DB)(nil)
