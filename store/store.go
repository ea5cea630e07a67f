// Package store is the SQLite persistence layer: ingested decks, their
// extracted slide units, and the assembly audit trail.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound reports a lookup miss. Callers translate it into their own
// domain errors.
var ErrNotFound = errors.New("store: not found")

// Deck represents a row in the decks table.
type Deck struct {
	Fingerprint string `json:"fingerprint"`
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	SlideCount  int    `json:"slide_count"`
	SlideWidth  int64  `json:"slide_width"`
	SlideHeight int64  `json:"slide_height"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Unit represents a row in the units table.
type Unit struct {
	ID                string `json:"id"`
	DeckFingerprint   string `json:"deck_fingerprint"`
	SlideIndex        int    `json:"slide_index"`
	Score             int    `json:"score"`
	RequiresAlternate bool   `json:"requires_alternate"`
	UnitPath          string `json:"unit_path"`
	AlternatePath     string `json:"alternate_path,omitempty"`
	AlternateMIME     string `json:"alternate_mime,omitempty"`
	Title             string `json:"title,omitempty"`
	SlideText         string `json:"slide_text,omitempty"`
	CreatedAt         string `json:"created_at"`
}

// Assembly represents a row in the assemblies table.
type Assembly struct {
	ID             string `json:"id"`
	Mode           string `json:"mode"`
	OutputMode     string `json:"output_mode"`
	State          string `json:"state"`
	StructuralPath string `json:"structural_path,omitempty"`
	AlternatePath  string `json:"alternate_path,omitempty"`
	SlideCount     int    `json:"slide_count"`
	CreatedAt      string `json:"created_at"`
}

// Diagnostic represents a row in the assembly_diagnostics table.
type Diagnostic struct {
	ID         int64  `json:"id"`
	AssemblyID string `json:"assembly_id"`
	UnitID     string `json:"unit_id"`
	Kind       string `json:"kind"`
	Detail     string `json:"detail,omitempty"`
}

// Store wraps the SQLite database for all deckforge persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Deck operations ---

// UpsertDeck inserts or refreshes a deck record keyed by fingerprint.
func (s *Store) UpsertDeck(ctx context.Context, d Deck) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decks (fingerprint, path, filename, slide_count, slide_width, slide_height)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			path = excluded.path,
			filename = excluded.filename,
			slide_count = excluded.slide_count,
			slide_width = excluded.slide_width,
			slide_height = excluded.slide_height,
			updated_at = CURRENT_TIMESTAMP
	`, d.Fingerprint, d.Path, d.Filename, d.SlideCount, d.SlideWidth, d.SlideHeight)
	return err
}

const deckColumns = "fingerprint, path, filename, slide_count, slide_width, slide_height, created_at, updated_at"

func scanDeck(row interface{ Scan(...any) error }) (*Deck, error) {
	d := &Deck{}
	err := row.Scan(&d.Fingerprint, &d.Path, &d.Filename, &d.SlideCount,
		&d.SlideWidth, &d.SlideHeight, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: deck", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetDeck retrieves a deck by fingerprint.
func (s *Store) GetDeck(ctx context.Context, fingerprint string) (*Deck, error) {
	return scanDeck(s.db.QueryRowContext(ctx,
		"SELECT "+deckColumns+" FROM decks WHERE fingerprint = ?", fingerprint))
}

// GetDeckByPath retrieves the most recently updated deck record for a path.
func (s *Store) GetDeckByPath(ctx context.Context, path string) (*Deck, error) {
	return scanDeck(s.db.QueryRowContext(ctx,
		"SELECT "+deckColumns+" FROM decks WHERE path = ? ORDER BY updated_at DESC LIMIT 1", path))
}

// ListDecks returns all decks ordered by creation time, newest first.
func (s *Store) ListDecks(ctx context.Context) ([]Deck, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+deckColumns+" FROM decks ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decks []Deck
	for rows.Next() {
		var d Deck
		if err := rows.Scan(&d.Fingerprint, &d.Path, &d.Filename, &d.SlideCount,
			&d.SlideWidth, &d.SlideHeight, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

// DeleteDeckUnits removes every unit of a deck. Used when a re-ingested
// deck supersedes its previous extraction.
func (s *Store) DeleteDeckUnits(ctx context.Context, fingerprint string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM units WHERE deck_fingerprint = ?", fingerprint)
	return err
}

// --- Unit operations ---

const unitColumns = `id, deck_fingerprint, slide_index, score, requires_alternate,
	unit_path, COALESCE(alternate_path, ''), COALESCE(alternate_mime, ''),
	COALESCE(title, ''), COALESCE(slide_text, ''), created_at`

func scanUnit(row interface{ Scan(...any) error }) (*Unit, error) {
	u := &Unit{}
	err := row.Scan(&u.ID, &u.DeckFingerprint, &u.SlideIndex, &u.Score, &u.RequiresAlternate,
		&u.UnitPath, &u.AlternatePath, &u.AlternateMIME, &u.Title, &u.SlideText, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: unit", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// InsertUnits inserts a batch of units in one transaction.
func (s *Store) InsertUnits(ctx context.Context, units []Unit) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO units (id, deck_fingerprint, slide_index, score, requires_alternate,
				unit_path, alternate_path, alternate_mime, title, slide_text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, u := range units {
			if _, err := stmt.ExecContext(ctx,
				u.ID, u.DeckFingerprint, u.SlideIndex, u.Score, u.RequiresAlternate,
				u.UnitPath, nullable(u.AlternatePath), nullable(u.AlternateMIME),
				nullable(u.Title), nullable(u.SlideText)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetUnit retrieves a unit by ID.
func (s *Store) GetUnit(ctx context.Context, id string) (*Unit, error) {
	return scanUnit(s.db.QueryRowContext(ctx,
		"SELECT "+unitColumns+" FROM units WHERE id = ?", id))
}

// GetUnitBySlide retrieves the unit for one slide of a deck.
func (s *Store) GetUnitBySlide(ctx context.Context, fingerprint string, slideIndex int) (*Unit, error) {
	return scanUnit(s.db.QueryRowContext(ctx,
		"SELECT "+unitColumns+" FROM units WHERE deck_fingerprint = ? AND slide_index = ?",
		fingerprint, slideIndex))
}

// ListUnits returns all units of a deck in slide order.
func (s *Store) ListUnits(ctx context.Context, fingerprint string) ([]Unit, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+unitColumns+" FROM units WHERE deck_fingerprint = ? ORDER BY slide_index",
		fingerprint)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.DeckFingerprint, &u.SlideIndex, &u.Score, &u.RequiresAlternate,
			&u.UnitPath, &u.AlternatePath, &u.AlternateMIME, &u.Title, &u.SlideText, &u.CreatedAt); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// SetUnitAlternate records the alternate representation produced for a unit.
func (s *Store) SetUnitAlternate(ctx context.Context, id, path, mime string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE units SET alternate_path = ?, alternate_mime = ? WHERE id = ?",
		path, mime, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: unit %s", ErrNotFound, id)
	}
	return nil
}

// --- Assembly audit trail ---

// InsertAssembly records a new assembly run in its initial state.
func (s *Store) InsertAssembly(ctx context.Context, a Assembly) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assemblies (id, mode, output_mode, state, structural_path, alternate_path, slide_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Mode, a.OutputMode, a.State,
		nullable(a.StructuralPath), nullable(a.AlternatePath), a.SlideCount)
	return err
}

// UpdateAssembly records the terminal state and outputs of an assembly run.
func (s *Store) UpdateAssembly(ctx context.Context, a Assembly) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE assemblies SET state = ?, structural_path = ?, alternate_path = ?, slide_count = ?
		WHERE id = ?
	`, a.State, nullable(a.StructuralPath), nullable(a.AlternatePath), a.SlideCount, a.ID)
	return err
}

// GetAssembly retrieves an assembly record by ID.
func (s *Store) GetAssembly(ctx context.Context, id string) (*Assembly, error) {
	a := &Assembly{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, mode, output_mode, state, COALESCE(structural_path, ''),
			COALESCE(alternate_path, ''), slide_count, created_at
		FROM assemblies WHERE id = ?
	`, id).Scan(&a.ID, &a.Mode, &a.OutputMode, &a.State,
		&a.StructuralPath, &a.AlternatePath, &a.SlideCount, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: assembly %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// InsertDiagnostics appends diagnostics for an assembly run.
func (s *Store) InsertDiagnostics(ctx context.Context, assemblyID string, diags []Diagnostic) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO assembly_diagnostics (assembly_id, unit_id, kind, detail) VALUES (?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, d := range diags {
			if _, err := stmt.ExecContext(ctx, assemblyID, d.UnitID, d.Kind, nullable(d.Detail)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListDiagnostics returns the diagnostics of an assembly run in insertion order.
func (s *Store) ListDiagnostics(ctx context.Context, assemblyID string) ([]Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, assembly_id, unit_id, kind, COALESCE(detail, '')
		FROM assembly_diagnostics WHERE assembly_id = ? ORDER BY id
	`, assemblyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var diags []Diagnostic
	for rows.Next() {
		var d Diagnostic
		if err := rows.Scan(&d.ID, &d.AssemblyID, &d.UnitID, &d.Kind, &d.Detail); err != nil {
			return nil, err
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

// DBStats holds counts of key database objects.
type DBStats struct {
	Decks       int `json:"decks"`
	Units       int `json:"units"`
	Assemblies  int `json:"assemblies"`
	Diagnostics int `json:"diagnostics"`
}

// Stats returns row counts across all tables.
func (s *Store) Stats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM decks", &stats.Decks},
		{"SELECT COUNT(*) FROM units", &stats.Units},
		{"SELECT COUNT(*) FROM assemblies", &stats.Assemblies},
		{"SELECT COUNT(*) FROM assembly_diagnostics", &stats.Diagnostics},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
