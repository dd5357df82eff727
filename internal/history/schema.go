package history

const schemaSQL = `
CREATE TABLE IF NOT EXISTS readings (
    key                  TEXT NOT NULL,
    unit                 TEXT NOT NULL,
    amount               TEXT NOT NULL,
    recorded_at          TEXT NOT NULL,
    PRIMARY KEY (key, recorded_at)
);

CREATE TABLE IF NOT EXISTS latest (
    key                  TEXT PRIMARY KEY,
    unit                 TEXT NOT NULL,
    amount               TEXT NOT NULL,
    recorded_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS imports (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    budget_id            TEXT NOT NULL,
    imported             INTEGER NOT NULL,
    recorded_at          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_readings_key ON readings(key, recorded_at);
CREATE INDEX IF NOT EXISTS idx_imports_time ON imports(recorded_at);
`
