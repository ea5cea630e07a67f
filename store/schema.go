package store

// schemaSQL is the DDL for all tables.
const schemaSQL = `
-- Ingested presentations, keyed by content fingerprint
CREATE TABLE IF NOT EXISTS decks (
    fingerprint TEXT PRIMARY KEY,
    path TEXT NOT NULL,
    filename TEXT NOT NULL,
    slide_count INTEGER NOT NULL,
    slide_width INTEGER NOT NULL,
    slide_height INTEGER NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per extracted slide unit
CREATE TABLE IF NOT EXISTS units (
    id TEXT PRIMARY KEY,
    deck_fingerprint TEXT NOT NULL REFERENCES decks(fingerprint) ON DELETE CASCADE,
    slide_index INTEGER NOT NULL,
    score INTEGER NOT NULL,
    requires_alternate INTEGER NOT NULL DEFAULT 0,
    unit_path TEXT NOT NULL,
    alternate_path TEXT,
    alternate_mime TEXT,
    title TEXT,
    slide_text TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(deck_fingerprint, slide_index)
);

CREATE INDEX IF NOT EXISTS idx_units_deck ON units(deck_fingerprint, slide_index);

-- Assembly audit trail
CREATE TABLE IF NOT EXISTS assemblies (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    output_mode TEXT NOT NULL,
    state TEXT NOT NULL,
    structural_path TEXT,
    alternate_path TEXT,
    slide_count INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Per-slide diagnostics recorded during assembly
CREATE TABLE IF NOT EXISTS assembly_diagnostics (
    id INTEGER PRIMARY KEY,
    assembly_id TEXT NOT NULL REFERENCES assemblies(id) ON DELETE CASCADE,
    unit_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    detail TEXT
);

CREATE INDEX IF NOT EXISTS idx_diag_assembly ON assembly_diagnostics(assembly_id);
`
