// Package pptxtest builds small synthetic presentations for tests. The decks
// it produces are structurally complete: content types, package rels,
// presentation part, shared layout/master/theme ancestry, and per-slide
// relationship tables.
package pptxtest

import (
	"fmt"
	"path"
	"strings"
	"testing"

	"github.com/mbaranov/deckforge/pptx"
)

const slideSkeleton = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>%s</p:spTree></p:cSld></p:sld>`

const layoutXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldLayout xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" type="blank"><p:cSld name="%s"><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`

const masterXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldMaster xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld><p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/><p:sldLayoutIdLst>%s</p:sldLayoutIdLst></p:sldMaster>`

const themeXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="%s"><a:themeElements><a:clrScheme name="Office"><a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1><a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1><a:dk2><a:srgbClr val="44546A"/></a:dk2><a:lt2><a:srgbClr val="E7E6E6"/></a:lt2><a:accent1><a:srgbClr val="4472C4"/></a:accent1><a:accent2><a:srgbClr val="ED7D31"/></a:accent2><a:accent3><a:srgbClr val="A5A5A5"/></a:accent3><a:accent4><a:srgbClr val="FFC000"/></a:accent4><a:accent5><a:srgbClr val="5B9BD5"/></a:accent5><a:accent6><a:srgbClr val="70AD47"/></a:accent6><a:hlink><a:srgbClr val="0563C1"/></a:hlink><a:folHlink><a:srgbClr val="954F72"/></a:folHlink></a:clrScheme><a:fontScheme name="Office"><a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont><a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont></a:fontScheme><a:fmtScheme name="Office"><a:fillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:fillStyleLst><a:lnStyleLst><a:ln/><a:ln/><a:ln/></a:lnStyleLst><a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst><a:bgFillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:bgFillStyleLst></a:fmtScheme></a:themeElements></a:theme>`

// tinyPNG is a 1x1 transparent PNG.
var tinyPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89, 0x00, 0x00, 0x00,
	0x0D, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82,
}

// TinyPNG returns a copy of a minimal valid PNG payload.
func TinyPNG() []byte {
	out := make([]byte, len(tinyPNG))
	copy(out, tinyPNG)
	return out
}

// Slide describes one synthetic slide.
type Slide struct {
	shapes  []string
	rels    []pptx.Relationship
	parts   map[string][]byte // extra parts keyed by part name
	chartWb map[string]string // chart part -> embedded workbook part
	nextID  int
}

// NewSlide returns an empty slide.
func NewSlide() *Slide {
	return &Slide{parts: make(map[string][]byte), chartWb: make(map[string]string), nextID: 2}
}

func (s *Slide) nextRelID() string {
	// rId1 is reserved for the layout relationship added by the deck builder.
	return fmt.Sprintf("rId%d", len(s.rels)+2)
}

func (s *Slide) shapeID() int {
	id := s.nextID
	s.nextID++
	return id
}

// WithTitle adds a title placeholder shape.
func (s *Slide) WithTitle(text string) *Slide {
	s.shapes = append(s.shapes, fmt.Sprintf(
		`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Title"/><p:cNvSpPr/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`,
		s.shapeID(), text))
	return s
}

// WithText adds a plain text box.
func (s *Slide) WithText(text string) *Slide {
	s.shapes = append(s.shapes, fmt.Sprintf(
		`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="TextBox"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`,
		s.shapeID(), text))
	return s
}

// WithImage adds a picture shape backed by a media part.
func (s *Slide) WithImage(mediaName string, data []byte) *Slide {
	rid := s.nextRelID()
	s.rels = append(s.rels, pptx.Relationship{ID: rid, Type: pptx.RelTypeImage, Target: "../media/" + mediaName})
	s.parts["ppt/media/"+mediaName] = data
	s.shapes = append(s.shapes, fmt.Sprintf(
		`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Picture"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr><p:blipFill><a:blip r:embed="%s"/></p:blipFill><p:spPr/></p:pic>`,
		s.shapeID(), rid))
	return s
}

// WithVideo adds a movie shape backed by a media part.
func (s *Slide) WithVideo(mediaName string, data []byte) *Slide {
	rid := s.nextRelID()
	s.rels = append(s.rels, pptx.Relationship{ID: rid, Type: pptx.RelTypeVideo, Target: "../media/" + mediaName})
	s.parts["ppt/media/"+mediaName] = data
	s.shapes = append(s.shapes, fmt.Sprintf(
		`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Movie"/><p:cNvPicPr/><p:nvPr><a:videoFile r:link="%s"/></p:nvPr></p:nvPicPr><p:blipFill/><p:spPr/></p:pic>`,
		s.shapeID(), rid))
	return s
}

// WithDanglingImage adds a picture whose relationship target is not packaged.
func (s *Slide) WithDanglingImage() *Slide {
	rid := s.nextRelID()
	s.rels = append(s.rels, pptx.Relationship{ID: rid, Type: pptx.RelTypeImage, Target: "../media/ghost.png"})
	s.shapes = append(s.shapes, fmt.Sprintf(
		`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Ghost"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr><p:blipFill><a:blip r:embed="%s"/></p:blipFill><p:spPr/></p:pic>`,
		s.shapeID(), rid))
	return s
}

// WithChart adds a chart graphic frame; the chart part and an embedded
// workbook are packaged when workbook is non-nil.
func (s *Slide) WithChart(n int, workbook []byte) *Slide {
	rid := s.nextRelID()
	chartPart := fmt.Sprintf("ppt/charts/chart%d.xml", n)
	s.rels = append(s.rels, pptx.Relationship{ID: rid, Type: pptx.RelTypeChart, Target: fmt.Sprintf("../charts/chart%d.xml", n)})
	s.parts[chartPart] = []byte(`<?xml version="1.0"?><c:chartSpace xmlns:c="http://schemas.openxmlformats.org/drawingml/2006/chart"/>`)
	if workbook != nil {
		wbPart := fmt.Sprintf("ppt/embeddings/workbook%d.xlsx", n)
		s.parts[wbPart] = workbook
		s.chartWb[chartPart] = wbPart
	}
	s.shapes = append(s.shapes, fmt.Sprintf(
		`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="Chart"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr><p:xfrm/><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/chart"><c:chart xmlns:c="http://schemas.openxmlformats.org/drawingml/2006/chart" r:id="%s"/></a:graphicData></a:graphic></p:graphicFrame>`,
		s.shapeID(), rid))
	return s
}

// WithTable adds a table graphic frame; tables carry their data inline.
func (s *Slide) WithTable() *Slide {
	s.shapes = append(s.shapes, fmt.Sprintf(
		`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="Table"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr><p:xfrm/><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl/></a:graphicData></a:graphic></p:graphicFrame>`,
		s.shapeID()))
	return s
}

// WithUnknownFrame adds a graphic frame with an unrecognized payload URI.
func (s *Slide) WithUnknownFrame() *Slide {
	s.shapes = append(s.shapes, fmt.Sprintf(
		`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="Mystery"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr><p:xfrm/><a:graphic><a:graphicData uri="urn:example:unknown"/></a:graphic></p:graphicFrame>`,
		s.shapeID()))
	return s
}

// WithGroup adds a group shape wrapping the given number of inner connectors.
func (s *Slide) WithGroup(innerConnectors int) *Slide {
	inner := ""
	for i := 0; i < innerConnectors; i++ {
		inner += fmt.Sprintf(
			`<p:cxnSp><p:nvCxnSpPr><p:cNvPr id="%d" name="Connector"/><p:cNvCxnSpPr/><p:nvPr/></p:nvCxnSpPr><p:spPr/></p:cxnSp>`,
			s.shapeID())
	}
	s.shapes = append(s.shapes, fmt.Sprintf(
		`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="%d" name="Group"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>%s</p:grpSp>`,
		s.shapeID(), inner))
	return s
}

// WithConnector adds a connector shape.
func (s *Slide) WithConnector() *Slide {
	s.shapes = append(s.shapes, fmt.Sprintf(
		`<p:cxnSp><p:nvCxnSpPr><p:cNvPr id="%d" name="Connector"/><p:cNvCxnSpPr/><p:nvPr/></p:nvCxnSpPr><p:spPr/></p:cxnSp>`,
		s.shapeID()))
	return s
}

// WithDiagram adds a SmartArt graphic frame with the four diagram parts.
func (s *Slide) WithDiagram(n int) *Slide {
	kinds := []struct {
		suffix, relType string
		attr            string
	}{
		{"data", pptx.RelTypeDiagramData, "r:dm"},
		{"layout", pptx.RelTypeDiagramLayout, "r:lo"},
		{"quickStyle", pptx.RelTypeDiagramStyle, "r:qs"},
		{"colors", pptx.RelTypeDiagramColors, "r:cs"},
	}
	attrs := ""
	for _, k := range kinds {
		rid := s.nextRelID()
		part := fmt.Sprintf("ppt/diagrams/%s%d.xml", k.suffix, n)
		s.rels = append(s.rels, pptx.Relationship{ID: rid, Type: k.relType, Target: fmt.Sprintf("../diagrams/%s%d.xml", k.suffix, n)})
		s.parts[part] = []byte(`<?xml version="1.0"?><dgm:part xmlns:dgm="http://schemas.openxmlformats.org/drawingml/2006/diagram"/>`)
		attrs += fmt.Sprintf(` %s="%s"`, k.attr, rid)
	}
	s.shapes = append(s.shapes, fmt.Sprintf(
		`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="Diagram"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr><p:xfrm/><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/diagram"><dgm:relIds xmlns:dgm="http://schemas.openxmlformats.org/drawingml/2006/diagram" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"%s/></a:graphicData></a:graphic></p:graphicFrame>`,
		s.shapeID(), attrs))
	return s
}

// WithOLE adds an embedded-object frame backed by a binary part.
func (s *Slide) WithOLE(n int) *Slide {
	rid := s.nextRelID()
	part := fmt.Sprintf("ppt/embeddings/oleObject%d.bin", n)
	s.rels = append(s.rels, pptx.Relationship{ID: rid, Type: pptx.RelTypeOLEObject, Target: fmt.Sprintf("../embeddings/oleObject%d.bin", n)})
	s.parts[part] = []byte{0xD0, 0xCF, 0x11, 0xE0}
	s.shapes = append(s.shapes, fmt.Sprintf(
		`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="Object"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr><p:xfrm/><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/presentationml/2006/ole"><p:oleObj r:id="%s"/></a:graphicData></a:graphic></p:graphicFrame>`,
		s.shapeID(), rid))
	return s
}

// Deck builds a complete synthetic presentation.
type Deck struct {
	slides []*Slide
	width  int64
	height int64
	theme  string
}

// NewDeck returns a deck with the default 16:9 canvas.
func NewDeck() *Deck {
	return &Deck{width: pptx.DefaultSlideWidth, height: pptx.DefaultSlideHeight, theme: "Office"}
}

// WithDimensions overrides the slide canvas size.
func (d *Deck) WithDimensions(w, h int64) *Deck {
	d.width, d.height = w, h
	return d
}

// WithThemeName changes the theme name, producing distinct ancestry bytes.
func (d *Deck) WithThemeName(name string) *Deck {
	d.theme = name
	return d
}

// Add appends a slide.
func (d *Deck) Add(s *Slide) *Deck {
	d.slides = append(d.slides, s)
	return d
}

// Build assembles the deck into a package.
func (d *Deck) Build() *pptx.Package {
	pkg := pptx.NewPackage()
	pkg.SetDefault("png", "image/png")
	pkg.SetDefault("xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	pkg.SetDefault("bin", "application/vnd.openxmlformats-officedocument.oleObject")

	// Shared ancestry: one layout, one master, one theme.
	pkg.SetPart("ppt/theme/theme1.xml", []byte(fmt.Sprintf(themeXML, d.theme)))
	pkg.SetOverride("ppt/theme/theme1.xml", pptx.ContentTypeTheme)

	pkg.SetPart("ppt/slideMasters/slideMaster1.xml",
		[]byte(fmt.Sprintf(masterXML, `<p:sldLayoutId id="2147483649" r:id="rId1"/>`)))
	pkg.SetOverride("ppt/slideMasters/slideMaster1.xml", pptx.ContentTypeSlideMaster)
	pkg.SetRels("ppt/slideMasters/slideMaster1.xml", []pptx.Relationship{
		{ID: "rId1", Type: pptx.RelTypeSlideLayout, Target: "../slideLayouts/slideLayout1.xml"},
		{ID: "rId2", Type: pptx.RelTypeTheme, Target: "../theme/theme1.xml"},
	})

	pkg.SetPart("ppt/slideLayouts/slideLayout1.xml", []byte(fmt.Sprintf(layoutXML, d.theme+" Blank")))
	pkg.SetOverride("ppt/slideLayouts/slideLayout1.xml", pptx.ContentTypeSlideLayout)
	pkg.SetRels("ppt/slideLayouts/slideLayout1.xml", []pptx.Relationship{
		{ID: "rId1", Type: pptx.RelTypeSlideMaster, Target: "../slideMasters/slideMaster1.xml"},
	})

	presRels := []pptx.Relationship{
		{ID: "rId1", Type: pptx.RelTypeSlideMaster, Target: "slideMasters/slideMaster1.xml"},
	}
	var slideRIDs []string

	for i, s := range d.slides {
		slideName := fmt.Sprintf("ppt/slides/slide%d.xml", i+1)
		body := ""
		for _, shape := range s.shapes {
			body += shape
		}
		pkg.SetPart(slideName, []byte(fmt.Sprintf(slideSkeleton, body)))
		pkg.SetOverride(slideName, pptx.ContentTypeSlide)

		rels := []pptx.Relationship{
			{ID: "rId1", Type: pptx.RelTypeSlideLayout, Target: "../slideLayouts/slideLayout1.xml"},
		}
		rels = append(rels, s.rels...)
		pkg.SetRels(slideName, rels)

		for name, data := range s.parts {
			if !pkg.HasPart(name) {
				pkg.SetPart(name, data)
			}
			if strings.HasPrefix(name, "ppt/media/") {
				ext := strings.TrimPrefix(path.Ext(name), ".")
				pkg.SetDefault(ext, pptx.MediaContentType(ext))
			}
			if strings.HasPrefix(name, "ppt/charts/") {
				pkg.SetOverride(name, "application/vnd.openxmlformats-officedocument.drawingml.chart+xml")
			}
			if strings.HasPrefix(name, "ppt/diagrams/") {
				pkg.SetOverride(name, "application/vnd.openxmlformats-officedocument.drawingml.diagramData+xml")
			}
		}
		for chartPart, wbPart := range s.chartWb {
			pkg.SetRels(chartPart, []pptx.Relationship{
				{ID: "rId1", Type: pptx.RelTypePackage, Target: pptx.RelativeTarget(chartPart, wbPart)},
			})
		}

		rid := fmt.Sprintf("rId%d", i+2)
		presRels = append(presRels, pptx.Relationship{
			ID: rid, Type: pptx.RelTypeSlide, Target: fmt.Sprintf("slides/slide%d.xml", i+1),
		})
		slideRIDs = append(slideRIDs, rid)
	}

	pkg.SetPart("ppt/presentation.xml", pptx.PresentationXML([]string{"rId1"}, slideRIDs, d.width, d.height))
	pkg.SetOverride("ppt/presentation.xml", pptx.ContentTypePresentation)
	pkg.SetRels("ppt/presentation.xml", presRels)

	pkg.SetRels("", []pptx.Relationship{
		{ID: "rId1", Type: pptx.RelTypeOfficeDocument, Target: "ppt/presentation.xml"},
	})

	return pkg
}

// BuildBytes assembles the deck and serializes it.
func (d *Deck) BuildBytes(t *testing.T) []byte {
	t.Helper()
	data, err := d.Build().Bytes()
	if err != nil {
		t.Fatalf("building test deck: %v", err)
	}
	return data
}

// BuildSource assembles the deck into an immutable source package.
func (d *Deck) BuildSource(t *testing.T) *pptx.SourcePackage {
	t.Helper()
	src, err := pptx.ReadSource(d.BuildBytes(t))
	if err != nil {
		t.Fatalf("reading test deck: %v", err)
	}
	return src
}
