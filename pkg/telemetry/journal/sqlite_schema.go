package journal

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the journal tables. Timestamps are stored as unix
// nanoseconds so both drivers read them back identically.
const Schema = `
CREATE TABLE IF NOT EXISTS rejections (
    id TEXT PRIMARY KEY,
    ts INTEGER NOT NULL,
    message TEXT NOT NULL,
    http_code INTEGER NOT NULL,
    code INTEGER NOT NULL,
    cause TEXT,
    uri TEXT,
    tags TEXT
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rejections_ts ON rejections(ts);
CREATE INDEX IF NOT EXISTS idx_rejections_code ON rejections(code);
`

const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

const getSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
