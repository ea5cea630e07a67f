package classify

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/mbaranov/deckforge/pptx"
)

// ChartProbe summarizes one embedded chart workbook found behind a chart
// relationship. Chart data is outside the structural extraction boundary, so
// the probe quantifies what a structural unit leaves behind for the audit
// trail.
type ChartProbe struct {
	ChartPart    string `json:"chart_part"`
	WorkbookPart string `json:"workbook_part,omitempty"`
	Sheets       int    `json:"sheets"`
	Rows         int    `json:"rows"`
}

// ProbeCharts inspects every chart reachable from the slide's relationship
// table and opens its embedded workbook. Probe failures are reported per
// chart, never fatal — a slide with an unreadable workbook still ingests.
func ProbeCharts(pkg *pptx.Package, slidePart string, rels []pptx.Relationship) []ChartProbe {
	var probes []ChartProbe

	for _, rel := range rels {
		if rel.Type != pptx.RelTypeChart {
			continue
		}
		chartName := pptx.ResolveTarget(slidePart, rel.Target)
		probe := ChartProbe{ChartPart: chartName}

		wbName, wbData, ok := findChartWorkbook(pkg, chartName)
		if !ok {
			slog.Debug("classify: chart has no embedded workbook", "chart", chartName)
			probes = append(probes, probe)
			continue
		}
		probe.WorkbookPart = wbName

		wb, err := excelize.OpenReader(bytes.NewReader(wbData))
		if err != nil {
			slog.Warn("classify: opening chart workbook", "chart", chartName, "error", err)
			probes = append(probes, probe)
			continue
		}

		sheets := wb.GetSheetList()
		probe.Sheets = len(sheets)
		for _, sheet := range sheets {
			rows, err := wb.GetRows(sheet)
			if err != nil {
				continue
			}
			probe.Rows += len(rows)
		}
		wb.Close()

		probes = append(probes, probe)
	}

	return probes
}

// String renders a probe for diagnostics.
func (p ChartProbe) String() string {
	if p.WorkbookPart == "" {
		return fmt.Sprintf("%s: no embedded workbook", p.ChartPart)
	}
	return fmt.Sprintf("%s: workbook %s, %d sheet(s), %d row(s)", p.ChartPart, p.WorkbookPart, p.Sheets, p.Rows)
}

// findChartWorkbook follows the chart part's package relationship to its
// embedded xlsx.
func findChartWorkbook(pkg *pptx.Package, chartName string) (name string, data []byte, ok bool) {
	for _, rel := range pkg.Rels(chartName) {
		if rel.Type != pptx.RelTypePackage || rel.External() {
			continue
		}
		wbName := pptx.ResolveTarget(chartName, rel.Target)
		if body, found := pkg.Part(wbName); found {
			return wbName, body, true
		}
	}
	return "", nil, false
}
