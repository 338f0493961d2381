// ABOUTME: SQLite database schema for voiceprint storage
// ABOUTME: One row per speaker; the vector is a little-endian float64 blob
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
CREATE TABLE IF NOT EXISTS voiceprints (
    speaker_id TEXT PRIMARY KEY,
    dimension INTEGER NOT NULL CHECK (dimension > 0),
    vector BLOB NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1
