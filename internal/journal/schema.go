package journal

// DDL creates the journal tables.
const DDL = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    started_at  TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    dry_run     BOOLEAN NOT NULL,
    mode        TEXT NOT NULL,
    sources     TEXT NOT NULL,
    counts      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS outcomes (
    run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq       INTEGER NOT NULL,
    studio_id TEXT NOT NULL,
    name      TEXT NOT NULL,
    state     TEXT NOT NULL,
    detail    TEXT NOT NULL,
    error     TEXT,
    PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_outcomes_studio ON outcomes(studio_id);

CREATE TABLE IF NOT EXISTS review_queue (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL,
    studio_id   TEXT NOT NULL,
    name        TEXT NOT NULL,
    source      TEXT NOT NULL,
    candidates  TEXT NOT NULL,
    created_at  TIMESTAMP NOT NULL,
    resolved_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_review_pending ON review_queue(studio_id, source) WHERE resolved_at IS NULL;
`
