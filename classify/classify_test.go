package classify

import (
	"math/rand"
	"testing"

	"github.com/mbaranov/deckforge/pptx"
	"github.com/mbaranov/deckforge/pptx/pptxtest"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// inventoryOf builds a one-slide deck around the given slide and runs the
// census on the packaged slide part and its relationship table.
func inventoryOf(t *testing.T, slide *pptxtest.Slide) Inventory {
	t.Helper()

	src := pptxtest.NewDeck().Add(slide).BuildSource(t)
	name, ok := src.SlidePartName(0)
	if !ok {
		t.Fatal("built deck has no slide")
	}
	slideXML, ok := src.Package().Part(name)
	if !ok {
		t.Fatalf("slide part %s missing", name)
	}
	return InventoryOf(slideXML, src.Package().Rels(name))
}

func classifySlide(t *testing.T, slide *pptxtest.Slide) Result {
	t.Helper()
	return New(DefaultThreshold).Classify(inventoryOf(t, slide))
}

// ---------------------------------------------------------------------------
// Inventory census
// ---------------------------------------------------------------------------

func TestInventoryCountsCategories(t *testing.T) {
	inv := inventoryOf(t, pptxtest.NewSlide().
		WithTitle("Busy").
		WithTable().
		WithTable().
		WithConnector().
		WithGroup(0).
		WithChart(1, nil).
		WithOLE(1).
		WithDiagram(1))

	if !inv.HasDiagram {
		t.Error("diagram not detected")
	}
	if inv.Charts != 1 {
		t.Errorf("Charts = %d, want 1", inv.Charts)
	}
	if inv.Tables != 2 {
		t.Errorf("Tables = %d, want 2", inv.Tables)
	}
	if inv.Groups != 1 {
		t.Errorf("Groups = %d, want 1", inv.Groups)
	}
	if inv.Connectors != 1 {
		t.Errorf("Connectors = %d, want 1", inv.Connectors)
	}
	if inv.OLEObjects != 1 {
		t.Errorf("OLEObjects = %d, want 1", inv.OLEObjects)
	}
}

func TestInventoryPlainSlideIsEmpty(t *testing.T) {
	inv := inventoryOf(t, pptxtest.NewSlide().WithTitle("Plain").WithText("Nothing fancy"))
	if inv != (Inventory{}) {
		t.Fatalf("plain slide inventory = %+v, want zero", inv)
	}
}

func TestInventoryUnknownFrameIgnored(t *testing.T) {
	inv := inventoryOf(t, pptxtest.NewSlide().WithUnknownFrame())
	if inv != (Inventory{}) {
		t.Fatalf("unknown graphic frame moved the inventory: %+v", inv)
	}
}

func TestInventoryCountsGroupContentsOneLevelDeep(t *testing.T) {
	inv := inventoryOf(t, pptxtest.NewSlide().WithGroup(2))
	if inv.Groups != 1 {
		t.Errorf("Groups = %d, want 1", inv.Groups)
	}
	if inv.Connectors != 2 {
		t.Errorf("Connectors = %d, want 2 (direct group contents count)", inv.Connectors)
	}
}

func TestInventoryDoesNotDescendNestedGroups(t *testing.T) {
	// Connector buried two groups deep must not count; the nested group
	// itself still does.
	slideXML := []byte(`<p:sld xmlns:p="p"><p:cSld><p:spTree>` +
		`<p:grpSp><p:grpSp><p:cxnSp/></p:grpSp></p:grpSp>` +
		`</p:spTree></p:cSld></p:sld>`)

	inv := InventoryOf(slideXML, nil)
	if inv.Groups != 2 {
		t.Errorf("Groups = %d, want 2", inv.Groups)
	}
	if inv.Connectors != 0 {
		t.Errorf("Connectors = %d, want 0 (two levels deep)", inv.Connectors)
	}
}

func TestInventoryIgnoresShapesOutsideSpTree(t *testing.T) {
	slideXML := []byte(`<p:sld xmlns:p="p"><p:cxnSp/><p:cSld><p:spTree><p:cxnSp/></p:spTree></p:cSld></p:sld>`)
	inv := InventoryOf(slideXML, nil)
	if inv.Connectors != 1 {
		t.Errorf("Connectors = %d, want 1 (only spTree children count)", inv.Connectors)
	}
}

func TestInventoryOLEFromRelsOnly(t *testing.T) {
	rels := []pptx.Relationship{
		{ID: "rId2", Type: pptx.RelTypeOLEObject, Target: "../embeddings/oleObject1.bin"},
		{ID: "rId3", Type: pptx.RelTypeOLEObject, Target: "../embeddings/oleObject2.bin"},
	}
	inv := InventoryOf([]byte(`<p:sld xmlns:p="p"/>`), rels)
	if inv.OLEObjects != 2 {
		t.Errorf("OLEObjects = %d, want 2", inv.OLEObjects)
	}
}

// ---------------------------------------------------------------------------
// Scoring
// ---------------------------------------------------------------------------

func TestClassifyTableAndGroupStayStructural(t *testing.T) {
	res := classifySlide(t, pptxtest.NewSlide().WithTable().WithGroup(0))
	if res.Score != 5 {
		t.Errorf("Score = %d, want 5", res.Score)
	}
	if res.RequiresAlternate {
		t.Error("score 5 must not be flagged at threshold 15")
	}
}

func TestClassifyDiagramWithChartsFlagged(t *testing.T) {
	res := classifySlide(t, pptxtest.NewSlide().
		WithDiagram(1).
		WithChart(1, nil).
		WithChart(2, nil))
	if res.Score != 20 {
		t.Errorf("Score = %d, want 20", res.Score)
	}
	if !res.RequiresAlternate {
		t.Error("score 20 must be flagged at threshold 15")
	}
}

func TestClassifyDiagramWeightAppliedOnce(t *testing.T) {
	res := classifySlide(t, pptxtest.NewSlide().WithDiagram(1).WithDiagram(2))
	if res.Score != 10 {
		t.Errorf("Score = %d, want 10 (diagram weight counts once)", res.Score)
	}
}

func TestClassifyFlagsAtExactThreshold(t *testing.T) {
	res := New(15).Classify(Inventory{Charts: 3})
	if res.Score != 15 || !res.RequiresAlternate {
		t.Fatalf("Result = %+v, score equal to threshold must flag", res)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	inv := Inventory{HasDiagram: true, Charts: 2, Tables: 1, Groups: 3, Connectors: 4, OLEObjects: 1}
	c := New(DefaultThreshold)

	first := c.Classify(inv)
	for i := 0; i < 10; i++ {
		if got := c.Classify(inv); got != first {
			t.Fatalf("classification changed across runs: %+v vs %+v", got, first)
		}
	}
}

func TestClassifyScoreMonotonic(t *testing.T) {
	c := New(DefaultThreshold)
	rng := rand.New(rand.NewSource(1))

	bumps := []struct {
		name string
		add  func(*Inventory)
	}{
		{"diagram", func(inv *Inventory) { inv.HasDiagram = true }},
		{"chart", func(inv *Inventory) { inv.Charts++ }},
		{"table", func(inv *Inventory) { inv.Tables++ }},
		{"group", func(inv *Inventory) { inv.Groups++ }},
		{"connector", func(inv *Inventory) { inv.Connectors++ }},
		{"ole", func(inv *Inventory) { inv.OLEObjects++ }},
	}

	for i := 0; i < 500; i++ {
		inv := Inventory{
			HasDiagram: rng.Intn(2) == 1,
			Charts:     rng.Intn(6),
			Tables:     rng.Intn(6),
			Groups:     rng.Intn(6),
			Connectors: rng.Intn(6),
			OLEObjects: rng.Intn(6),
		}
		base := c.Classify(inv).Score
		for _, b := range bumps {
			grown := inv
			b.add(&grown)
			if got := c.Classify(grown).Score; got < base {
				t.Fatalf("adding a %s decreased the score from %d to %d (inventory %+v)",
					b.name, base, got, inv)
			}
		}
	}
}

func TestNewFallsBackToDefaultThreshold(t *testing.T) {
	if got := New(0).Threshold(); got != DefaultThreshold {
		t.Errorf("Threshold() = %d, want %d", got, DefaultThreshold)
	}
	if got := New(7).Threshold(); got != 7 {
		t.Errorf("Threshold() = %d, want 7", got)
	}
}

func TestNewWithWeights(t *testing.T) {
	c := NewWithWeights(Weights{Table: 100}, 50)
	res := c.Classify(Inventory{Tables: 1})
	if res.Score != 100 || !res.RequiresAlternate {
		t.Fatalf("Result = %+v, want score 100 flagged", res)
	}
}
