// Package deckforge decomposes PowerPoint presentations into independently
// addressable slide units and recomposes selections of units into new
// presentations. Each unit is a self-contained single-slide package; slides
// too complex to survive structural extraction are flagged and, when a
// renderer is available, paired with a pre-rendered alternate page.
package deckforge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mbaranov/deckforge/assemble"
	"github.com/mbaranov/deckforge/classify"
	"github.com/mbaranov/deckforge/extract"
	"github.com/mbaranov/deckforge/policy"
	"github.com/mbaranov/deckforge/pptx"
	"github.com/mbaranov/deckforge/render"
	"github.com/mbaranov/deckforge/store"
)

// Engine is the main entry point for the slide extraction and
// recomposition engine.
type Engine interface {
	// IngestDeck extracts every slide of a presentation into the unit
	// store. Skips work if the deck fingerprint is already ingested.
	IngestDeck(ctx context.Context, path string, opts ...IngestOption) (*Deck, error)

	// Classify reports per-slide complexity for a presentation without
	// extracting or persisting anything.
	Classify(ctx context.Context, path string) ([]SlideReport, error)

	// Assemble recomposes slide units into a new presentation and records
	// the run in the audit trail.
	Assemble(ctx context.Context, req assemble.Request) (*assemble.Result, error)

	// GetDeck returns an ingested deck by fingerprint.
	GetDeck(ctx context.Context, fingerprint string) (*Deck, error)

	// ListDecks returns all ingested decks.
	ListDecks(ctx context.Context) ([]Deck, error)

	// ListUnits returns the slide units of a deck in slide order.
	ListUnits(ctx context.Context, fingerprint string) ([]Unit, error)

	// Store returns the underlying store for diagnostic access.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// Deck describes an ingested presentation.
type Deck struct {
	Fingerprint string `json:"fingerprint"`
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	SlideCount  int    `json:"slide_count"`
	SlideWidth  int64  `json:"slide_width"`
	SlideHeight int64  `json:"slide_height"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// Unit describes one extracted slide unit.
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
	Text              string `json:"text,omitempty"`
}

// SlideReport is the outcome of classifying one slide.
type SlideReport struct {
	Index             int    `json:"index"`
	Score             int    `json:"score"`
	RequiresAlternate bool   `json:"requires_alternate"`
	Title             string `json:"title,omitempty"`
}

// IngestOption configures ingestion behavior.
type IngestOption func(*ingestOptions)

type ingestOptions struct {
	force      bool
	skipRender bool
}

// WithForceReingest re-extracts even when the fingerprint is already known,
// superseding the deck's previous units.
func WithForceReingest() IngestOption {
	return func(o *ingestOptions) { o.force = true }
}

// WithSkipRender skips alternate-page rendering for this ingestion.
func WithSkipRender() IngestOption {
	return func(o *ingestOptions) { o.skipRender = true }
}

// Option configures engine construction. The unit store and renderer are
// injectable so tests can substitute fakes.
type Option func(*engine)

// WithRenderer overrides the alternate-representation provider.
func WithRenderer(p render.Provider) Option {
	return func(e *engine) { e.renderer = p }
}

// WithUnitStore overrides the assembler's unit resolution.
func WithUnitStore(us assemble.UnitStore) Option {
	return func(e *engine) { e.units = us }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg        Config
	store      *store.Store
	classifier classify.Classifier
	extractor  *extract.Extractor
	renderer   render.Provider
	units      assemble.UnitStore
	dataDir    string
}

// New creates a deckforge engine with the given configuration.
func New(cfg Config, opts ...Option) (Engine, error) {
	if cfg.ComplexityThreshold < 0 {
		return nil, fmt.Errorf("%w: complexity threshold must not be negative", ErrInvalidConfig)
	}
	if cfg.ExtractConcurrency == 0 {
		cfg.ExtractConcurrency = 8
	}
	if cfg.ExtractConcurrency < 0 {
		return nil, fmt.Errorf("%w: extract concurrency must be positive", ErrInvalidConfig)
	}
	if cfg.RenderTimeoutSecs <= 0 {
		cfg.RenderTimeoutSecs = 60
	}

	dataDir := cfg.resolveDataDir()
	for _, sub := range []string{"units", "pages", "exports"} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	s, err := store.New(cfg.resolveDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	classifier := classify.New(cfg.ComplexityThreshold)

	e := &engine{
		cfg:        cfg,
		store:      s,
		classifier: classifier,
		extractor:  extract.New(classifier),
		dataDir:    dataDir,
	}
	e.units = sqlUnits{s: s}

	for _, opt := range opts {
		opt(e)
	}

	if e.renderer == nil && cfg.RenderEnabled {
		r, err := render.NewSoffice(cfg.SofficePath, filepath.Join(dataDir, "pages"))
		if err != nil {
			// No LibreOffice means no alternates, not a broken engine.
			slog.Warn("alternate rendering disabled", "error", err)
		} else {
			e.renderer = r
		}
	}

	return e, nil
}

// IngestDeck extracts all slides of a presentation into units.
func (e *engine) IngestDeck(ctx context.Context, path string, opts ...IngestOption) (*Deck, error) {
	options := &ingestOptions{}
	for _, o := range opts {
		o(options)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	src, err := pptx.OpenSource(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSource, err)
	}
	if src.SlideCount() == 0 {
		return nil, fmt.Errorf("%w: %s has no slides", ErrNoSlides, absPath)
	}

	fingerprint := src.Fingerprint()
	if !options.force {
		if deck, err := e.store.GetDeck(ctx, fingerprint); err == nil {
			units, err := e.store.ListUnits(ctx, fingerprint)
			if err == nil && len(units) == deck.SlideCount {
				slog.Info("ingest: fingerprint already known, skipping", "file", deck.Filename, "fingerprint", fingerprint[:12])
				return deckFromStore(deck), nil
			}
		}
	}

	w, h := src.SlideDimensions()
	deck := store.Deck{
		Fingerprint: fingerprint,
		Path:        absPath,
		Filename:    filepath.Base(absPath),
		SlideCount:  src.SlideCount(),
		SlideWidth:  w,
		SlideHeight: h,
	}
	if err := e.store.UpsertDeck(ctx, deck); err != nil {
		return nil, fmt.Errorf("recording deck: %w", err)
	}
	// Re-ingest supersedes: old units of this deck are gone for good.
	if err := e.store.DeleteDeckUnits(ctx, fingerprint); err != nil {
		return nil, fmt.Errorf("superseding old units: %w", err)
	}

	slog.Info("ingest: extracting slides",
		"file", deck.Filename, "slides", deck.SlideCount, "concurrency", e.cfg.ExtractConcurrency)
	start := time.Now()

	units, err := e.extractAll(ctx, src)
	if err != nil {
		return nil, err
	}

	if e.renderer != nil && !options.skipRender {
		e.renderAlternates(ctx, absPath, units)
	}

	rows := make([]store.Unit, len(units))
	for i, u := range units {
		rows[i] = store.Unit{
			ID:                u.ID,
			DeckFingerprint:   fingerprint,
			SlideIndex:        u.SlideIndex,
			Score:             u.Score,
			RequiresAlternate: u.RequiresAlternate,
			UnitPath:          u.UnitPath,
			AlternatePath:     u.AlternatePath,
			AlternateMIME:     u.AlternateMIME,
			Title:             u.Title,
			SlideText:         u.Text,
		}
	}
	if err := e.store.InsertUnits(ctx, rows); err != nil {
		return nil, fmt.Errorf("recording units: %w", err)
	}

	slog.Info("ingest: deck ready",
		"file", deck.Filename, "units", len(units),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return deckFromStore(&deck), nil
}

// extractAll runs per-slide extraction through a bounded worker pool and
// writes each unit container to disk. Results come back in slide order.
func (e *engine) extractAll(ctx context.Context, src *pptx.SourcePackage) ([]Unit, error) {
	units := make([]Unit, src.SlideCount())
	errs := make([]error, src.SlideCount())

	sem := make(chan struct{}, e.cfg.ExtractConcurrency)
	var wg sync.WaitGroup

	for i := 0; i < src.SlideCount(); i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(index int) {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				errs[index] = ctx.Err()
				return
			}

			su, err := e.extractor.Extract(src, index)
			if err != nil {
				errs[index] = err
				return
			}

			id := uuid.NewString()
			unitPath := filepath.Join(e.dataDir, "units",
				fmt.Sprintf("%s_%03d.pptx", su.SourceFingerprint[:16], index))
			if err := su.Package.WriteFile(unitPath); err != nil {
				errs[index] = fmt.Errorf("writing unit for slide %d: %w", index, err)
				return
			}

			if e.cfg.ProbeChartWorkbooks && su.RequiresAlternate {
				e.probeCharts(src, index)
			}

			units[index] = Unit{
				ID:                id,
				DeckFingerprint:   su.SourceFingerprint,
				SlideIndex:        index,
				Score:             su.Score,
				RequiresAlternate: su.RequiresAlternate,
				UnitPath:          unitPath,
				Title:             su.Title,
				Text:              su.Text,
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("extraction failed: %w", err)
		}
	}
	return units, nil
}

// probeCharts inspects embedded chart workbooks of a flagged slide for the
// ingestion log. Probe failures never fail ingestion.
func (e *engine) probeCharts(src *pptx.SourcePackage, index int) {
	name, ok := src.SlidePartName(index)
	if !ok {
		return
	}
	for _, probe := range classify.ProbeCharts(src.Package(), name, src.Package().Rels(name)) {
		slog.Info("ingest: chart workbook probed", "slide", index, "chart", probe.String())
	}
}

// renderAlternates produces alternate pages for flagged units. Rendering is
// best effort: an unavailable provider degrades the unit, never the ingest.
func (e *engine) renderAlternates(ctx context.Context, deckPath string, units []Unit) {
	timeout := time.Duration(e.cfg.RenderTimeoutSecs) * time.Second

	for i := range units {
		if !units[i].RequiresAlternate {
			continue
		}

		rctx, cancel := context.WithTimeout(ctx, timeout)
		page, err := e.renderer.RenderPage(rctx, deckPath, units[i].SlideIndex)
		cancel()

		if err != nil {
			if errors.Is(err, render.ErrUnavailable) {
				slog.Warn("ingest: alternate unavailable, unit will degrade",
					"slide", units[i].SlideIndex, "error", err)
				continue
			}
			slog.Warn("ingest: render failed", "slide", units[i].SlideIndex, "error", err)
			continue
		}
		units[i].AlternatePath = page.Path
		units[i].AlternateMIME = page.MIME
	}
}

// Classify reports per-slide complexity without persisting anything.
func (e *engine) Classify(_ context.Context, path string) ([]SlideReport, error) {
	src, err := pptx.OpenSource(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSource, err)
	}

	reports := make([]SlideReport, 0, src.SlideCount())
	for i := 0; i < src.SlideCount(); i++ {
		name, _ := src.SlidePartName(i)
		slideXML, ok := src.Package().Part(name)
		if !ok {
			return nil, fmt.Errorf("%w: slide part %s missing", ErrCorruptSource, name)
		}
		inv := classify.InventoryOf(slideXML, src.Package().Rels(name))
		result := e.classifier.Classify(inv)
		title, _ := pptx.SlideText(slideXML)
		reports = append(reports, SlideReport{
			Index:             i,
			Score:             result.Score,
			RequiresAlternate: result.RequiresAlternate,
			Title:             title,
		})
	}
	return reports, nil
}

// Assemble recomposes units and persists the audit trail.
func (e *engine) Assemble(ctx context.Context, req assemble.Request) (*assemble.Result, error) {
	if req.OutputDir == "" {
		req.OutputDir = filepath.Join(e.dataDir, "exports")
	}
	if req.Mode == "" {
		req.Mode = policy.Automatic
	}
	if req.Output == "" {
		req.Output = assemble.OutputSplit
	}

	asm := assemble.New(e.units, assemble.WithRecovery(e.recoverUnit))
	res, err := asm.Assemble(ctx, req)
	if res != nil {
		e.recordAssembly(ctx, req, res)
	}
	return res, err
}

// recordAssembly persists the audit trail for one run. Audit failures are
// logged, never promoted: the output file is already published.
func (e *engine) recordAssembly(ctx context.Context, req assemble.Request, res *assemble.Result) {
	rec := store.Assembly{
		ID:             res.ID,
		Mode:           string(req.Mode),
		OutputMode:     string(req.Output),
		State:          string(res.State),
		StructuralPath: res.StructuralPath,
		AlternatePath:  res.AlternatePath,
		SlideCount:     len(res.Order),
	}
	if err := e.store.InsertAssembly(ctx, rec); err != nil {
		slog.Warn("assembly audit record failed", "id", res.ID, "error", err)
		return
	}
	if len(res.Diagnostics) == 0 {
		return
	}
	diags := make([]store.Diagnostic, len(res.Diagnostics))
	for i, d := range res.Diagnostics {
		diags[i] = store.Diagnostic{UnitID: d.UnitID, Kind: d.Kind, Detail: d.Detail}
	}
	if err := e.store.InsertDiagnostics(ctx, res.ID, diags); err != nil {
		slog.Warn("assembly diagnostics record failed", "id", res.ID, "error", err)
	}
}

// recoverUnit re-extracts a slide from its original package after a unit
// store miss.
func (e *engine) recoverUnit(_ context.Context, sourcePath string, sourceIndex int) (*assemble.Unit, error) {
	src, err := pptx.OpenSource(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: recovery source %s: %v", ErrUnitNotFound, sourcePath, err)
	}
	su, err := e.extractor.Extract(src, sourceIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: re-extracting %s slide %d: %v", ErrUnitNotFound, sourcePath, sourceIndex, err)
	}
	return &assemble.Unit{
		ID:                fmt.Sprintf("recovered-%s-%d", su.SourceFingerprint[:12], sourceIndex),
		Fingerprint:       su.SourceFingerprint,
		SourceIndex:       sourceIndex,
		Package:           su.Package,
		RequiresAlternate: su.RequiresAlternate,
	}, nil
}

// GetDeck returns an ingested deck by fingerprint.
func (e *engine) GetDeck(ctx context.Context, fingerprint string) (*Deck, error) {
	d, err := e.store.GetDeck(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDeckNotFound, fingerprint)
		}
		return nil, err
	}
	return deckFromStore(d), nil
}

// ListDecks returns all ingested decks, newest first.
func (e *engine) ListDecks(ctx context.Context) ([]Deck, error) {
	rows, err := e.store.ListDecks(ctx)
	if err != nil {
		return nil, err
	}
	decks := make([]Deck, len(rows))
	for i := range rows {
		decks[i] = *deckFromStore(&rows[i])
	}
	return decks, nil
}

// ListUnits returns the slide units of a deck in slide order.
func (e *engine) ListUnits(ctx context.Context, fingerprint string) ([]Unit, error) {
	if _, err := e.store.GetDeck(ctx, fingerprint); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDeckNotFound, fingerprint)
		}
		return nil, err
	}

	rows, err := e.store.ListUnits(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	units := make([]Unit, len(rows))
	for i, r := range rows {
		units[i] = Unit{
			ID:                r.ID,
			DeckFingerprint:   r.DeckFingerprint,
			SlideIndex:        r.SlideIndex,
			Score:             r.Score,
			RequiresAlternate: r.RequiresAlternate,
			UnitPath:          r.UnitPath,
			AlternatePath:     r.AlternatePath,
			AlternateMIME:     r.AlternateMIME,
			Title:             r.Title,
			Text:              r.SlideText,
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].SlideIndex < units[j].SlideIndex })
	return units, nil
}

// Store returns the underlying store for diagnostic access.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close shuts down the engine.
func (e *engine) Close() error {
	return e.store.Close()
}

func deckFromStore(d *store.Deck) *Deck {
	return &Deck{
		Fingerprint: d.Fingerprint,
		Path:        d.Path,
		Filename:    d.Filename,
		SlideCount:  d.SlideCount,
		SlideWidth:  d.SlideWidth,
		SlideHeight: d.SlideHeight,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// sqlUnits adapts the SQLite store to the assembler's unit resolution.
type sqlUnits struct {
	s *store.Store
}

func (q sqlUnits) UnitByID(ctx context.Context, id string) (*assemble.Unit, error) {
	u, err := q.s.GetUnit(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", assemble.ErrUnitNotFound, id)
		}
		return nil, err
	}
	return &assemble.Unit{
		ID:                u.ID,
		Fingerprint:       u.DeckFingerprint,
		SourceIndex:       u.SlideIndex,
		UnitPath:          u.UnitPath,
		RequiresAlternate: u.RequiresAlternate,
		AlternatePath:     u.AlternatePath,
		AlternateMIME:     u.AlternateMIME,
	}, nil
}
