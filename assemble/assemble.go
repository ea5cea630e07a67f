// Package assemble recomposes slide units into new presentations. A request
// names units, an ordering policy, and a representation mode; the assembler
// resolves the units, merges their packages under a fresh relationship
// namespace with shared ancestry deduplicated, and publishes the output
// atomically.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/mbaranov/deckforge/policy"
	"github.com/mbaranov/deckforge/pptx"
	"github.com/mbaranov/deckforge/render"
)

var (
	// ErrUnitNotFound reports a unit-store miss for a requested reference.
	ErrUnitNotFound = errors.New("assemble: unit not found")

	// ErrSlideOmitted is returned (wrapped) when fail-on-omission is set
	// and a requested slide could not be resolved.
	ErrSlideOmitted = errors.New("assemble: slide omitted")

	// ErrNoSlides is returned when no requested unit could be resolved.
	ErrNoSlides = errors.New("assemble: no slides to assemble")

	// ErrAssemblyCorrupt is returned when the merged package fails its
	// self-check. Nothing is published in that case.
	ErrAssemblyCorrupt = errors.New("assemble: output failed validation")
)

// OutputMode selects the shape of the deliverable.
type OutputMode string

const (
	// OutputSplit emits a structural .pptx plus, when any slide resolved
	// to its alternate representation, a merged .pdf alternate track.
	OutputSplit OutputMode = "split"

	// OutputEmbed emits a single .pptx; alternate pages are embedded as
	// full-bleed picture slides when they are raster images.
	OutputEmbed OutputMode = "embed"
)

// SlideRef names one requested slide. UnitID addresses the unit store;
// SourcePath/SourceIndex optionally identify the original deck so a store
// miss can be recovered by re-extraction.
type SlideRef struct {
	UnitID      string `json:"unit_id"`
	SourcePath  string `json:"source_path,omitempty"`
	SourceIndex int    `json:"source_index,omitempty"`
}

// Request describes one assembly run.
type Request struct {
	Refs           []SlideRef  `json:"refs"`
	PreserveOrder  bool        `json:"preserve_order"`
	Mode           policy.Mode `json:"mode"`
	Output         OutputMode  `json:"output"`
	FailOnOmission bool        `json:"fail_on_omission"`
	OutputDir      string      `json:"output_dir"`
	BaseName       string      `json:"base_name"`
}

// Unit is the assembler's view of a slide unit. Package takes precedence;
// when nil the unit container is loaded from UnitPath.
type Unit struct {
	ID                string
	Fingerprint       string
	SourceIndex       int
	UnitPath          string
	Package           *pptx.Package
	RequiresAlternate bool
	AlternatePath     string
	AlternateMIME     string

	recovered bool
}

func (u *Unit) load() (*pptx.Package, error) {
	if u.Package != nil {
		return u.Package, nil
	}
	pkg, err := pptx.Open(u.UnitPath)
	if err != nil {
		return nil, fmt.Errorf("loading unit %s from %s: %w", u.ID, u.UnitPath, err)
	}
	return pkg, nil
}

// UnitStore resolves unit identifiers. A miss is reported as an error
// wrapping ErrUnitNotFound.
type UnitStore interface {
	UnitByID(ctx context.Context, id string) (*Unit, error)
}

// RecoverFunc re-extracts a slide from its original package after a unit
// store miss. The returned unit is used for this assembly only.
type RecoverFunc func(ctx context.Context, sourcePath string, sourceIndex int) (*Unit, error)

// State tracks an assembly run through its lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateResolving  State = "resolving"
	StateMerging    State = "merging"
	StateValidating State = "validating"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// Diagnostic records a per-slide anomaly that did not abort the run.
type Diagnostic struct {
	UnitID string `json:"unit_id"`
	Kind   string `json:"kind"` // "omitted" or "degraded"
	Detail string `json:"detail"`
}

// PlacedSlide records what ended up at one position of the output.
type PlacedSlide struct {
	UnitID      string        `json:"unit_id"`
	Fingerprint string        `json:"fingerprint"`
	SourceIndex int           `json:"source_index"`
	Choice      policy.Choice `json:"choice"`
	Degraded    bool          `json:"degraded,omitempty"`
}

// Result is the outcome of one assembly run.
type Result struct {
	ID             string        `json:"id"`
	State          State         `json:"state"`
	StructuralPath string        `json:"structural_path,omitempty"`
	AlternatePath  string        `json:"alternate_path,omitempty"`
	Order          []PlacedSlide `json:"order"`
	Diagnostics    []Diagnostic  `json:"diagnostics,omitempty"`
}

// Assembler recomposes units into presentations.
type Assembler struct {
	units   UnitStore
	recover RecoverFunc
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithRecovery installs a re-extraction fallback for unit-store misses.
func WithRecovery(fn RecoverFunc) Option {
	return func(a *Assembler) { a.recover = fn }
}

// New returns an Assembler resolving units from the given store.
func New(units UnitStore, opts ...Option) *Assembler {
	a := &Assembler{units: units}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// resolved pairs a unit with how it will be placed.
type resolved struct {
	unit   *Unit
	pkg    *pptx.Package
	choice policy.Choice
}

// Assemble runs one recomposition. The returned Result is non-nil even on
// failure so callers can persist the audit trail.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Result, error) {
	res := &Result{ID: uuid.NewString(), State: StatePending}

	mode, err := policy.ParseMode(string(req.Mode))
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	output := req.Output
	if output == "" {
		output = OutputSplit
	}
	if output != OutputSplit && output != OutputEmbed {
		res.State = StateFailed
		return res, fmt.Errorf("assemble: unknown output mode %q", output)
	}

	res.State = StateResolving
	units, err := a.resolveRefs(ctx, req, res)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	if len(units) == 0 {
		res.State = StateFailed
		return res, ErrNoSlides
	}

	if !req.PreserveOrder {
		sort.SliceStable(units, func(i, j int) bool {
			if units[i].Fingerprint != units[j].Fingerprint {
				return units[i].Fingerprint < units[j].Fingerprint
			}
			return units[i].SourceIndex < units[j].SourceIndex
		})
	}

	res.State = StateMerging
	placements, err := a.place(units, mode, output, res)
	if err != nil {
		res.State = StateFailed
		return res, err
	}

	out, altPages, err := mergePlacements(placements, output)
	if err != nil {
		res.State = StateFailed
		return res, err
	}

	res.State = StateValidating
	if err := out.Validate(); err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("%w: %v", ErrAssemblyCorrupt, err)
	}

	base := req.BaseName
	if base == "" {
		base = "assembly_" + res.ID
	}
	structuralPath := filepath.Join(req.OutputDir, base+".pptx")
	if err := out.WriteFile(structuralPath); err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("assemble: writing output: %w", err)
	}
	res.StructuralPath = structuralPath

	if output == OutputSplit && len(altPages) > 0 {
		altPath := filepath.Join(req.OutputDir, base+".pdf")
		if err := render.MergePages(altPages, altPath); err != nil {
			res.State = StateFailed
			return res, err
		}
		res.AlternatePath = altPath
	}

	res.State = StateComplete
	slog.Info("assembly complete",
		"id", res.ID,
		"slides", len(res.Order),
		"diagnostics", len(res.Diagnostics),
		"output", res.StructuralPath)
	return res, nil
}

// resolveRefs looks up every requested unit, applying recovery on store
// misses and recording omissions.
func (a *Assembler) resolveRefs(ctx context.Context, req Request, res *Result) ([]*Unit, error) {
	var units []*Unit
	for _, ref := range req.Refs {
		unit, err := a.units.UnitByID(ctx, ref.UnitID)
		if err != nil && !errors.Is(err, ErrUnitNotFound) {
			return nil, fmt.Errorf("resolving unit %s: %w", ref.UnitID, err)
		}
		if err != nil && a.recover != nil && ref.SourcePath != "" {
			slog.Info("unit store miss, re-extracting from original",
				"unit", ref.UnitID, "source", ref.SourcePath, "slide", ref.SourceIndex)
			unit, err = a.recover(ctx, ref.SourcePath, ref.SourceIndex)
			if err == nil {
				unit.recovered = true
			}
		}
		if err != nil {
			if req.FailOnOmission {
				return nil, fmt.Errorf("%w: unit %s: %v", ErrSlideOmitted, ref.UnitID, err)
			}
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				UnitID: ref.UnitID,
				Kind:   "omitted",
				Detail: err.Error(),
			})
			continue
		}
		units = append(units, unit)
	}
	return units, nil
}

// place decides each slide's representation and loads unit packages.
func (a *Assembler) place(units []*Unit, mode policy.Mode, output OutputMode, res *Result) ([]resolved, error) {
	var placements []resolved
	for _, u := range units {
		pkg, err := u.load()
		if err != nil {
			return nil, err
		}

		available := u.AlternatePath != ""
		if output == OutputEmbed && available {
			// Embedding needs a raster page; anything else falls back.
			available = (render.Page{MIME: u.AlternateMIME}).Image()
		}

		d := policy.Select(mode, u.RequiresAlternate, available)
		choice := d.Choice
		if u.recovered && choice == policy.Structural {
			choice = policy.OriginalExtraction
		}
		if d.Degraded {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				UnitID: u.ID,
				Kind:   "degraded",
				Detail: "alternate representation unavailable, structural package placed",
			})
		}

		placements = append(placements, resolved{unit: u, pkg: pkg, choice: choice})
		res.Order = append(res.Order, PlacedSlide{
			UnitID:      u.ID,
			Fingerprint: u.Fingerprint,
			SourceIndex: u.SourceIndex,
			Choice:      choice,
			Degraded:    d.Degraded,
		})
	}
	return placements, nil
}
