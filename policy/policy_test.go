package policy

import "testing"

func TestSelectDecisionTable(t *testing.T) {
	cases := []struct {
		name              string
		mode              Mode
		requiresAlternate bool
		alternate         bool
		want              Decision
	}{
		{"structural-preferred ignores flag", StructuralPreferred, true, true, Decision{Choice: Structural}},
		{"structural-preferred simple", StructuralPreferred, false, false, Decision{Choice: Structural}},
		{"alternate-preferred with alternate", AlternatePreferred, false, true, Decision{Choice: Alternate}},
		{"alternate-preferred without alternate", AlternatePreferred, true, false, Decision{Choice: Structural, Degraded: true}},
		{"alternate-preferred simple slide", AlternatePreferred, false, false, Decision{Choice: Structural}},
		{"automatic simple", Automatic, false, true, Decision{Choice: Structural}},
		{"automatic flagged with alternate", Automatic, true, true, Decision{Choice: Alternate}},
		{"automatic flagged without alternate", Automatic, true, false, Decision{Choice: Structural, Degraded: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Select(tc.mode, tc.requiresAlternate, tc.alternate)
			if got != tc.want {
				t.Errorf("Select(%s, %v, %v) = %+v, want %+v", tc.mode, tc.requiresAlternate, tc.alternate, got, tc.want)
			}
		})
	}
}

func TestSelectTimeoutFallsBackToStructural(t *testing.T) {
	// A provider timeout surfaces as alternate unavailable; the slide is
	// placed structurally and flagged, never dropped.
	got := Select(AlternatePreferred, true, false)
	if got.Choice != Structural {
		t.Errorf("Choice = %s, want %s", got.Choice, Structural)
	}
	if !got.Degraded {
		t.Error("fallback placement should be flagged as degraded")
	}
}

func TestParseMode(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Mode
	}{
		{"", Automatic},
		{"automatic", Automatic},
		{"structural-preferred", StructuralPreferred},
		{"alternate-preferred", AlternatePreferred},
	} {
		got, err := ParseMode(tc.in)
		if err != nil {
			t.Errorf("ParseMode(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMode(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}

	if _, err := ParseMode("fancy"); err == nil {
		t.Error("ParseMode should reject unknown modes")
	}
}
