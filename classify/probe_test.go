package classify

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/mbaranov/deckforge/pptx/pptxtest"
)

// buildWorkbook produces a real xlsx payload with the given rows on Sheet1.
func buildWorkbook(t *testing.T, rows int) []byte {
	t.Helper()

	wb := excelize.NewFile()
	for r := 1; r <= rows; r++ {
		cell, err := excelize.CoordinatesToCellName(1, r)
		if err != nil {
			t.Fatal(err)
		}
		if err := wb.SetCellValue("Sheet1", cell, r*10); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if _, err := wb.WriteTo(&buf); err != nil {
		t.Fatalf("writing workbook: %v", err)
	}
	return buf.Bytes()
}

func TestProbeChartsReadsEmbeddedWorkbook(t *testing.T) {
	src := pptxtest.NewDeck().
		Add(pptxtest.NewSlide().WithChart(1, buildWorkbook(t, 4))).
		BuildSource(t)
	name, _ := src.SlidePartName(0)

	probes := ProbeCharts(src.Package(), name, src.Package().Rels(name))
	if len(probes) != 1 {
		t.Fatalf("got %d probes, want 1", len(probes))
	}

	p := probes[0]
	if p.ChartPart != "ppt/charts/chart1.xml" {
		t.Errorf("ChartPart = %q", p.ChartPart)
	}
	if p.WorkbookPart != "ppt/embeddings/workbook1.xlsx" {
		t.Errorf("WorkbookPart = %q", p.WorkbookPart)
	}
	if p.Sheets != 1 {
		t.Errorf("Sheets = %d, want 1", p.Sheets)
	}
	if p.Rows != 4 {
		t.Errorf("Rows = %d, want 4", p.Rows)
	}
}

func TestProbeChartsWithoutWorkbook(t *testing.T) {
	src := pptxtest.NewDeck().
		Add(pptxtest.NewSlide().WithChart(1, nil)).
		BuildSource(t)
	name, _ := src.SlidePartName(0)

	probes := ProbeCharts(src.Package(), name, src.Package().Rels(name))
	if len(probes) != 1 {
		t.Fatalf("got %d probes, want 1", len(probes))
	}
	if probes[0].WorkbookPart != "" {
		t.Errorf("WorkbookPart = %q, want empty", probes[0].WorkbookPart)
	}
}

func TestProbeChartsToleratesCorruptWorkbook(t *testing.T) {
	src := pptxtest.NewDeck().
		Add(pptxtest.NewSlide().WithChart(1, []byte("not an xlsx"))).
		BuildSource(t)
	name, _ := src.SlidePartName(0)

	probes := ProbeCharts(src.Package(), name, src.Package().Rels(name))
	if len(probes) != 1 {
		t.Fatalf("got %d probes, want 1", len(probes))
	}
	if probes[0].Sheets != 0 || probes[0].Rows != 0 {
		t.Errorf("corrupt workbook yielded counts: %+v", probes[0])
	}
}

func TestProbeChartsSkipsNonChartRels(t *testing.T) {
	src := pptxtest.NewDeck().
		Add(pptxtest.NewSlide().WithImage("photo.png", pptxtest.TinyPNG())).
		BuildSource(t)
	name, _ := src.SlidePartName(0)

	if probes := ProbeCharts(src.Package(), name, src.Package().Rels(name)); len(probes) != 0 {
		t.Fatalf("got %d probes for a chartless slide, want 0", len(probes))
	}
}
