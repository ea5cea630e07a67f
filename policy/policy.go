// Package policy decides which representation of a slide unit goes into an
// assembled presentation: the structural single-slide package or the
// pre-rendered alternate page.
package policy

import "fmt"

// Mode is the caller-selected preference for representation choice.
type Mode string

const (
	// StructuralPreferred always places the structural package.
	StructuralPreferred Mode = "structural-preferred"

	// AlternatePreferred places the alternate whenever one exists.
	AlternatePreferred Mode = "alternate-preferred"

	// Automatic follows the complexity classification: simple slides go
	// structural, flagged slides go alternate when one is available.
	Automatic Mode = "automatic"
)

// ParseMode validates a mode string. The empty string means Automatic.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return Automatic, nil
	case StructuralPreferred, AlternatePreferred, Automatic:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("policy: unknown mode %q", s)
	}
}

// Choice names the representation placed for one slide.
type Choice string

const (
	Structural Choice = "structural"
	Alternate  Choice = "alternate"

	// OriginalExtraction marks a slide re-extracted on demand from the
	// caller-supplied original package after a unit-store miss. Select
	// never returns it; the assembler records it when recovery runs.
	OriginalExtraction Choice = "original-extraction"
)

// Decision is the outcome for one slide: which representation to place and
// whether the placement is a degradation. Degraded means the slide was
// flagged as needing an alternate but none was available, so the structural
// package stands in with possible fidelity loss.
type Decision struct {
	Choice   Choice
	Degraded bool
}

// Select applies the decision table. A missing alternate is never fatal:
// the structural package always exists, so there is always something to
// place. requiresAlternate comes from the unit's classification;
// alternateAvailable reflects whether a usable alternate page exists right
// now (a render timeout counts as unavailable).
func Select(mode Mode, requiresAlternate, alternateAvailable bool) Decision {
	switch mode {
	case StructuralPreferred:
		return Decision{Choice: Structural}

	case AlternatePreferred:
		if alternateAvailable {
			return Decision{Choice: Alternate}
		}
		// Fidelity is only lost when the slide actually needed the
		// alternate; a simple slide falls back without degradation.
		return Decision{Choice: Structural, Degraded: requiresAlternate}

	default: // Automatic
		if !requiresAlternate {
			return Decision{Choice: Structural}
		}
		if alternateAvailable {
			return Decision{Choice: Alternate}
		}
		return Decision{Choice: Structural, Degraded: true}
	}
}
