package deckforge

import (
	"errors"

	"github.com/mbaranov/deckforge/assemble"
	"github.com/mbaranov/deckforge/extract"
	"github.com/mbaranov/deckforge/render"
)

// Sentinel errors. The domain errors are aliases of the subpackage
// sentinels so errors.Is works the same through the facade and through
// direct subpackage use.
var (
	// ErrSlideNotFound is returned when a slide index is out of range for its deck.
	ErrSlideNotFound = extract.ErrSlideNotFound

	// ErrCorruptSource is returned when a source package's relationship table
	// references a part that is absent from the container.
	ErrCorruptSource = extract.ErrCorruptSource

	// ErrUnitNotFound is returned when a slide unit ID does not exist in the store.
	ErrUnitNotFound = assemble.ErrUnitNotFound

	// ErrNoSlides is returned when an assembly request resolves zero slides.
	ErrNoSlides = assemble.ErrNoSlides

	// ErrSlideOmitted is returned (wrapped) when omissions are promoted to
	// fatal via the fail-on-omission setting.
	ErrSlideOmitted = assemble.ErrSlideOmitted

	// ErrAssemblyCorrupt is returned when the assembled output fails its
	// internal reference self-check. It is always fatal and never accompanied
	// by a published output file.
	ErrAssemblyCorrupt = assemble.ErrAssemblyCorrupt

	// ErrAlternateUnavailable signals that no alternate-representation page
	// could be produced for a slide. It is a policy input, not a failure.
	ErrAlternateUnavailable = render.ErrUnavailable

	// ErrDeckNotFound is returned when a deck fingerprint does not exist in the store.
	ErrDeckNotFound = errors.New("deckforge: deck not found")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("deckforge: invalid configuration")
)
