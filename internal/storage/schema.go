package storage

const schema = `
-- The 'sources' table tracks where imported decks come from, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local', -- 'local' or 'git'
    last_scanned DATETIME
);

-- The 'decks' table stores imported deck tables verbatim, keyed by deck name.
CREATE TABLE IF NOT EXISTS decks (
    name TEXT PRIMARY KEY,
    content BLOB NOT NULL,
    card_count INTEGER NOT NULL,
    imported_at DATETIME NOT NULL,
    source_id INTEGER,

    FOREIGN KEY(source_id) REFERENCES sources(id) ON DELETE CASCADE
);
`
