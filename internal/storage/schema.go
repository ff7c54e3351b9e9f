package storage

const schema = `
-- The 'cards' table stores each flashcard together with its scheduling state.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    prompt TEXT NOT NULL,
    answer TEXT NOT NULL,
    audio_data TEXT NOT NULL DEFAULT '',
    interval INTEGER NOT NULL DEFAULT 0,
    repetitions INTEGER NOT NULL DEFAULT 0,
    ease_factor REAL NOT NULL,
    due_at INTEGER NOT NULL -- unix milliseconds
);

-- The 'sources' table tracks deck origins, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local', -- 'local' or 'git'
    last_scanned DATETIME
);
`
