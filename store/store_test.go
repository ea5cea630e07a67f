//go:build cgo

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDeck(fingerprint string) Deck {
	return Deck{
		Fingerprint: fingerprint,
		Path:        "/decks/quarterly.pptx",
		Filename:    "quarterly.pptx",
		SlideCount:  12,
		SlideWidth:  12192000,
		SlideHeight: 6858000,
	}
}

func sampleUnit(id, fingerprint string, index int) Unit {
	return Unit{
		ID:              id,
		DeckFingerprint: fingerprint,
		SlideIndex:      index,
		Score:           index * 3,
		UnitPath:        "/units/" + id + ".pptx",
		Title:           "Slide title",
		SlideText:       "Slide body text",
	}
}

// ---------------------------------------------------------------------------
// Schema / construction
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	s := newTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "dir")
	dbPath := filepath.Join(dir, "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("third Migrate: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Deck CRUD
// ---------------------------------------------------------------------------

func TestUpsertAndGetDeck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertDeck(ctx, sampleDeck("fp1")); err != nil {
		t.Fatalf("UpsertDeck: %v", err)
	}

	got, err := s.GetDeck(ctx, "fp1")
	if err != nil {
		t.Fatalf("GetDeck: %v", err)
	}
	if got.Filename != "quarterly.pptx" || got.SlideCount != 12 {
		t.Errorf("unexpected deck: %+v", got)
	}
	if got.SlideWidth != 12192000 || got.SlideHeight != 6858000 {
		t.Errorf("dimensions = (%d, %d), want (12192000, 6858000)", got.SlideWidth, got.SlideHeight)
	}
}

func TestUpsertDeckRefreshes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := sampleDeck("fp1")
	if err := s.UpsertDeck(ctx, d); err != nil {
		t.Fatalf("first UpsertDeck: %v", err)
	}
	d.Path = "/decks/moved.pptx"
	d.SlideCount = 20
	if err := s.UpsertDeck(ctx, d); err != nil {
		t.Fatalf("second UpsertDeck: %v", err)
	}

	got, err := s.GetDeck(ctx, "fp1")
	if err != nil {
		t.Fatalf("GetDeck: %v", err)
	}
	if got.Path != "/decks/moved.pptx" || got.SlideCount != 20 {
		t.Errorf("deck not refreshed: %+v", got)
	}

	decks, err := s.ListDecks(ctx)
	if err != nil {
		t.Fatalf("ListDecks: %v", err)
	}
	if len(decks) != 1 {
		t.Errorf("decks = %d, want 1 (upsert must not duplicate)", len(decks))
	}
}

func TestGetDeckNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetDeck(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetDeck error = %v, want ErrNotFound", err)
	}
}

func TestGetDeckByPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertDeck(ctx, sampleDeck("fp1")); err != nil {
		t.Fatalf("UpsertDeck: %v", err)
	}
	got, err := s.GetDeckByPath(ctx, "/decks/quarterly.pptx")
	if err != nil {
		t.Fatalf("GetDeckByPath: %v", err)
	}
	if got.Fingerprint != "fp1" {
		t.Errorf("Fingerprint = %q, want fp1", got.Fingerprint)
	}
}

// ---------------------------------------------------------------------------
// Unit CRUD
// ---------------------------------------------------------------------------

func TestInsertAndListUnits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertDeck(ctx, sampleDeck("fp1")); err != nil {
		t.Fatalf("UpsertDeck: %v", err)
	}

	// Insert out of slide order; listing must come back sorted.
	units := []Unit{
		sampleUnit("u3", "fp1", 2),
		sampleUnit("u1", "fp1", 0),
		sampleUnit("u2", "fp1", 1),
	}
	if err := s.InsertUnits(ctx, units); err != nil {
		t.Fatalf("InsertUnits: %v", err)
	}

	got, err := s.ListUnits(ctx, "fp1")
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("units = %d, want 3", len(got))
	}
	for i, u := range got {
		if u.SlideIndex != i {
			t.Errorf("units[%d].SlideIndex = %d, want %d", i, u.SlideIndex, i)
		}
	}
}

func TestGetUnitBySlide(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertDeck(ctx, sampleDeck("fp1")); err != nil {
		t.Fatalf("UpsertDeck: %v", err)
	}
	if err := s.InsertUnits(ctx, []Unit{sampleUnit("u1", "fp1", 4)}); err != nil {
		t.Fatalf("InsertUnits: %v", err)
	}

	got, err := s.GetUnitBySlide(ctx, "fp1", 4)
	if err != nil {
		t.Fatalf("GetUnitBySlide: %v", err)
	}
	if got.ID != "u1" {
		t.Errorf("ID = %q, want u1", got.ID)
	}

	if _, err := s.GetUnitBySlide(ctx, "fp1", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing slide error = %v, want ErrNotFound", err)
	}
}

func TestSetUnitAlternate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertDeck(ctx, sampleDeck("fp1")); err != nil {
		t.Fatalf("UpsertDeck: %v", err)
	}
	if err := s.InsertUnits(ctx, []Unit{sampleUnit("u1", "fp1", 0)}); err != nil {
		t.Fatalf("InsertUnits: %v", err)
	}

	if err := s.SetUnitAlternate(ctx, "u1", "/alt/u1.pdf", "application/pdf"); err != nil {
		t.Fatalf("SetUnitAlternate: %v", err)
	}
	got, err := s.GetUnit(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUnit: %v", err)
	}
	if got.AlternatePath != "/alt/u1.pdf" || got.AlternateMIME != "application/pdf" {
		t.Errorf("alternate = (%q, %q), want recorded values", got.AlternatePath, got.AlternateMIME)
	}

	if err := s.SetUnitAlternate(ctx, "ghost", "/alt/x.pdf", "application/pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetUnitAlternate on missing unit = %v, want ErrNotFound", err)
	}
}

func TestDeleteDeckUnitsSupersedes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertDeck(ctx, sampleDeck("fp1")); err != nil {
		t.Fatalf("UpsertDeck: %v", err)
	}
	if err := s.InsertUnits(ctx, []Unit{
		sampleUnit("u1", "fp1", 0),
		sampleUnit("u2", "fp1", 1),
	}); err != nil {
		t.Fatalf("InsertUnits: %v", err)
	}

	if err := s.DeleteDeckUnits(ctx, "fp1"); err != nil {
		t.Fatalf("DeleteDeckUnits: %v", err)
	}
	got, err := s.ListUnits(ctx, "fp1")
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("units after supersede = %d, want 0", len(got))
	}

	// Re-insert under the same deck must not trip the unique constraint.
	if err := s.InsertUnits(ctx, []Unit{sampleUnit("u3", "fp1", 0)}); err != nil {
		t.Fatalf("InsertUnits after supersede: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Assembly audit trail
// ---------------------------------------------------------------------------

func TestAssemblyLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := Assembly{ID: "asm1", Mode: "automatic", OutputMode: "split", State: "pending"}
	if err := s.InsertAssembly(ctx, a); err != nil {
		t.Fatalf("InsertAssembly: %v", err)
	}

	a.State = "complete"
	a.StructuralPath = "/out/asm1.pptx"
	a.AlternatePath = "/out/asm1.pdf"
	a.SlideCount = 2
	if err := s.UpdateAssembly(ctx, a); err != nil {
		t.Fatalf("UpdateAssembly: %v", err)
	}

	got, err := s.GetAssembly(ctx, "asm1")
	if err != nil {
		t.Fatalf("GetAssembly: %v", err)
	}
	if got.State != "complete" || got.StructuralPath != "/out/asm1.pptx" || got.SlideCount != 2 {
		t.Errorf("unexpected assembly: %+v", got)
	}

	if _, err := s.GetAssembly(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAssembly on missing id = %v, want ErrNotFound", err)
	}
}

func TestDiagnostics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertAssembly(ctx, Assembly{ID: "asm1", Mode: "automatic", OutputMode: "split", State: "pending"}); err != nil {
		t.Fatalf("InsertAssembly: %v", err)
	}

	diags := []Diagnostic{
		{UnitID: "u1", Kind: "omitted", Detail: "unit not in store"},
		{UnitID: "u2", Kind: "degraded", Detail: "alternate unavailable"},
	}
	if err := s.InsertDiagnostics(ctx, "asm1", diags); err != nil {
		t.Fatalf("InsertDiagnostics: %v", err)
	}

	got, err := s.ListDiagnostics(ctx, "asm1")
	if err != nil {
		t.Fatalf("ListDiagnostics: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("diagnostics = %d, want 2", len(got))
	}
	if got[0].Kind != "omitted" || got[1].Kind != "degraded" {
		t.Errorf("diagnostics out of order: %+v", got)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertDeck(ctx, sampleDeck("fp1")); err != nil {
		t.Fatalf("UpsertDeck: %v", err)
	}
	if err := s.InsertUnits(ctx, []Unit{sampleUnit("u1", "fp1", 0)}); err != nil {
		t.Fatalf("InsertUnits: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Decks != 1 || stats.Units != 1 {
		t.Errorf("stats = %+v, want 1 deck and 1 unit", stats)
	}
}
