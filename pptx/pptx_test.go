package pptx

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// minimalPackage builds a tiny but internally closed container: one slide,
// one media part, the rels joining them.
func minimalPackage() *Package {
	p := NewPackage()
	p.SetDefault("png", "image/png")

	p.SetPart("ppt/presentation.xml", []byte(`<p:presentation xmlns:p="p" xmlns:r="r"/>`))
	p.SetOverride("ppt/presentation.xml", ContentTypePresentation)
	p.SetRels("ppt/presentation.xml", []Relationship{
		{ID: "rId1", Type: RelTypeSlide, Target: "slides/slide1.xml"},
	})

	p.SetPart("ppt/slides/slide1.xml", []byte(`<p:sld xmlns:p="p" xmlns:r="r"><a:blip r:embed="rId2"/></p:sld>`))
	p.SetOverride("ppt/slides/slide1.xml", ContentTypeSlide)
	p.SetRels("ppt/slides/slide1.xml", []Relationship{
		{ID: "rId1", Type: RelTypeHyperlink, Target: "https://example.com", TargetMode: "External"},
		{ID: "rId2", Type: RelTypeImage, Target: "../media/image1.png"},
	})

	p.SetPart("ppt/media/image1.png", []byte{0x89, 'P', 'N', 'G'})

	p.SetRels("", []Relationship{
		{ID: "rId1", Type: RelTypeOfficeDocument, Target: "ppt/presentation.xml"},
	})
	return p
}

// ---------------------------------------------------------------------------
// Read / write round trip
// ---------------------------------------------------------------------------

func TestReadWriteRoundTrip(t *testing.T) {
	original := minimalPackage()
	data, err := original.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	reread, err := Read(data)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	for _, name := range original.Parts() {
		want, _ := original.Part(name)
		got, ok := reread.Part(name)
		if !ok {
			t.Errorf("part %s lost in round trip", name)
			continue
		}
		if !bytes.Equal(got, want) {
			t.Errorf("part %s bytes changed in round trip", name)
		}
	}

	rels := reread.Rels("ppt/slides/slide1.xml")
	if len(rels) != 2 {
		t.Fatalf("slide rels = %d, want 2", len(rels))
	}
	link, ok := RelByID(rels, "rId1")
	if !ok || !link.External() {
		t.Errorf("external hyperlink rel not preserved: %+v", link)
	}

	if ct := reread.ContentType("ppt/slides/slide1.xml"); ct != ContentTypeSlide {
		t.Errorf("slide content type = %q", ct)
	}
	if ct := reread.ContentType("ppt/media/image1.png"); ct != "image/png" {
		t.Errorf("media content type = %q", ct)
	}
}

func TestBytesIsDeterministic(t *testing.T) {
	p := minimalPackage()

	first, err := p.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("serializing the same package twice produced different bytes")
	}
}

func TestWriteFilePublishesAtomically(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "deck.pptx")

	if err := minimalPackage().WriteFile(out); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Open(out); err != nil {
		t.Fatalf("written file unreadable: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}

func TestRemovePart(t *testing.T) {
	p := minimalPackage()
	p.RemovePart("ppt/slides/slide1.xml")

	if p.HasPart("ppt/slides/slide1.xml") {
		t.Error("part still present after removal")
	}
	if len(p.Rels("ppt/slides/slide1.xml")) != 0 {
		t.Error("rels table survived part removal")
	}
	if ct := p.ContentType("ppt/slides/slide1.xml"); ct != "" {
		t.Errorf("override survived part removal: %q", ct)
	}
	for _, name := range p.Parts() {
		if name == "ppt/slides/slide1.xml" {
			t.Error("removed part still listed")
		}
	}
}

// ---------------------------------------------------------------------------
// Target resolution
// ---------------------------------------------------------------------------

func TestResolveTarget(t *testing.T) {
	cases := []struct {
		owner, target, want string
	}{
		{"ppt/slides/slide1.xml", "../media/image1.png", "ppt/media/image1.png"},
		{"ppt/slides/slide1.xml", "../slideLayouts/slideLayout1.xml", "ppt/slideLayouts/slideLayout1.xml"},
		{"ppt/presentation.xml", "slides/slide1.xml", "ppt/slides/slide1.xml"},
		{"", "ppt/presentation.xml", "ppt/presentation.xml"},
		{"ppt/slides/slide1.xml", "/ppt/media/image1.png", "ppt/media/image1.png"},
		{"ppt/slides/slide1.xml", "..\\media\\image1.png", "ppt/media/image1.png"},
	}
	for _, c := range cases {
		if got := ResolveTarget(c.owner, c.target); got != c.want {
			t.Errorf("ResolveTarget(%q, %q) = %q, want %q", c.owner, c.target, got, c.want)
		}
	}
}

func TestRelativeTarget(t *testing.T) {
	cases := []struct {
		owner, part, want string
	}{
		{"ppt/slides/slide1.xml", "ppt/media/image1.png", "../media/image1.png"},
		{"ppt/presentation.xml", "ppt/slides/slide1.xml", "slides/slide1.xml"},
		{"ppt/slides/slide1.xml", "ppt/slides/slide2.xml", "slide2.xml"},
		{"", "ppt/presentation.xml", "ppt/presentation.xml"},
		{"ppt/charts/chart1.xml", "ppt/embeddings/workbook1.xlsx", "../embeddings/workbook1.xlsx"},
	}
	for _, c := range cases {
		if got := RelativeTarget(c.owner, c.part); got != c.want {
			t.Errorf("RelativeTarget(%q, %q) = %q, want %q", c.owner, c.part, got, c.want)
		}
	}
}

func TestResolveAndRelativeAreInverse(t *testing.T) {
	owner := "ppt/slides/slide3.xml"
	part := "ppt/media/image7.png"

	target := RelativeTarget(owner, part)
	if got := ResolveTarget(owner, target); got != part {
		t.Fatalf("round trip %q -> %q -> %q", part, target, got)
	}
}

// ---------------------------------------------------------------------------
// Relationship tables
// ---------------------------------------------------------------------------

func TestRelsOwnerMapping(t *testing.T) {
	cases := map[string]string{
		"ppt/slides/_rels/slide1.xml.rels": "ppt/slides/slide1.xml",
		"_rels/.rels":                      "",
		"ppt/_rels/presentation.xml.rels":  "ppt/presentation.xml",
	}
	for relsPath, owner := range cases {
		if got := relsOwner(relsPath); got != owner {
			t.Errorf("relsOwner(%q) = %q, want %q", relsPath, got, owner)
		}
		if got := relsPathFor(owner); got != relsPath {
			t.Errorf("relsPathFor(%q) = %q, want %q", owner, got, relsPath)
		}
	}
}

func TestMarshalRelsSortsByNumericID(t *testing.T) {
	body, err := marshalRels([]Relationship{
		{ID: "rId10", Type: RelTypeImage, Target: "../media/image10.png"},
		{ID: "rId2", Type: RelTypeImage, Target: "../media/image2.png"},
		{ID: "custom", Type: RelTypeImage, Target: "../media/odd.png"},
	})
	if err != nil {
		t.Fatalf("marshalRels() error = %v", err)
	}

	s := string(body)
	i2, i10, odd := strings.Index(s, `"rId2"`), strings.Index(s, `"rId10"`), strings.Index(s, `"custom"`)
	if !(i2 < i10 && i10 < odd) {
		t.Fatalf("rels not sorted numerically with non-conforming ids last: %s", s)
	}
}

func TestRewriteRelIDsIsSimultaneous(t *testing.T) {
	src := []byte(`<a:blip r:embed="rId1"/><c:chart r:id="rId2"/><dgm:relIds r:dm="rId3"/>`)
	out := RewriteRelIDs(src, map[string]string{
		"rId1": "rId2",
		"rId2": "rId1",
	})

	s := string(out)
	if !strings.Contains(s, `r:embed="rId2"`) || !strings.Contains(s, `r:id="rId1"`) {
		t.Errorf("swap not applied simultaneously: %s", s)
	}
	if !strings.Contains(s, `r:dm="rId3"`) {
		t.Errorf("unmapped reference changed: %s", s)
	}
}

func TestRelIDRefsDistinctInOrder(t *testing.T) {
	src := []byte(`<a r:id="rId3"/><b r:embed="rId1"/><c r:id="rId3"/><d r:lo="rId2"/>`)
	got := RelIDRefs(src)
	want := []string{"rId3", "rId1", "rId2"}

	if len(got) != len(want) {
		t.Fatalf("RelIDRefs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("RelIDRefs() = %v, want %v", got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestValidateClosedPackage(t *testing.T) {
	if err := minimalPackage().Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidateDanglingRelTarget(t *testing.T) {
	p := minimalPackage()
	p.SetRels("ppt/slides/slide1.xml", append(p.Rels("ppt/slides/slide1.xml"),
		Relationship{ID: "rId3", Type: RelTypeImage, Target: "../media/missing.png"}))

	err := p.Validate()
	if err == nil || !strings.Contains(err.Error(), "ppt/media/missing.png") {
		t.Fatalf("Validate() error = %v, want dangling target report", err)
	}
}

func TestValidateDanglingRelIDReference(t *testing.T) {
	p := minimalPackage()
	p.SetPart("ppt/slides/slide1.xml", []byte(`<p:sld><a:blip r:embed="rId9"/></p:sld>`))

	err := p.Validate()
	if err == nil || !strings.Contains(err.Error(), "rId9") {
		t.Fatalf("Validate() error = %v, want dangling rId report", err)
	}
}

func TestValidateMissingContentType(t *testing.T) {
	p := minimalPackage()
	p.SetPart("ppt/extra.dat", []byte("x"))

	err := p.Validate()
	if err == nil || !strings.Contains(err.Error(), "ppt/extra.dat") {
		t.Fatalf("Validate() error = %v, want content type report", err)
	}
}

func TestValidateIgnoresExternalTargets(t *testing.T) {
	p := minimalPackage()
	p.SetRels("", append(p.Rels(""),
		Relationship{ID: "rId2", Type: RelTypeHyperlink, Target: "https://example.com", TargetMode: "External"}))

	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, external targets must not count", err)
	}
}

// ---------------------------------------------------------------------------
// Presentation part
// ---------------------------------------------------------------------------

func TestPresentationXMLRoundTrip(t *testing.T) {
	data := PresentationXML([]string{"rId1", "rId2"}, []string{"rId3", "rId4", "rId5"}, 9144000, 6858000)

	w, h, err := PresentationSize(data)
	if err != nil {
		t.Fatalf("PresentationSize() error = %v", err)
	}
	if w != 9144000 || h != 6858000 {
		t.Errorf("size = %dx%d, want 9144000x6858000", w, h)
	}

	s := string(data)
	if !strings.Contains(s, `<p:sldMasterId id="2147483648" r:id="rId1"/>`) {
		t.Error("first master id not 2147483648")
	}
	if !strings.Contains(s, `<p:sldId id="256" r:id="rId3"/>`) {
		t.Error("first slide id not 256")
	}
	if !strings.Contains(s, `<p:sldId id="258" r:id="rId5"/>`) {
		t.Error("slide ids not sequential")
	}
}

func TestReadSourceRequiresOfficeDocumentRel(t *testing.T) {
	p := NewPackage()
	p.SetPart("ppt/presentation.xml", PresentationXML(nil, nil, DefaultSlideWidth, DefaultSlideHeight))
	data, err := p.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ReadSource(data); err == nil {
		t.Fatal("ReadSource() accepted a package without an office document relationship")
	}
}

// ---------------------------------------------------------------------------
// Text extraction
// ---------------------------------------------------------------------------

const titledSlide = `<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree>
<p:sp><p:nvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:txBody><a:p><a:r><a:t>Quarterly Review</a:t></a:r></a:p></p:txBody></p:sp>
<p:sp><p:nvSpPr><p:nvPr/></p:nvSpPr><p:txBody><a:p><a:r><a:t>Revenue up</a:t></a:r></a:p><a:p><a:r><a:t>Costs down</a:t></a:r></a:p></p:txBody></p:sp>
</p:spTree></p:cSld></p:sld>`

func TestSlideTextWithTitlePlaceholder(t *testing.T) {
	title, text := SlideText([]byte(titledSlide))
	if title != "Quarterly Review" {
		t.Errorf("title = %q", title)
	}
	for _, want := range []string{"Quarterly Review", "Revenue up", "Costs down"} {
		if !strings.Contains(text, want) {
			t.Errorf("text %q missing %q", text, want)
		}
	}
}

func TestSlideTextFallsBackToFirstLine(t *testing.T) {
	slide := `<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree>
<p:sp><p:nvSpPr><p:nvPr/></p:nvSpPr><p:txBody><a:p><a:r><a:t>Just a text box</a:t></a:r></a:p></p:txBody></p:sp>
</p:spTree></p:cSld></p:sld>`

	title, _ := SlideText([]byte(slide))
	if title != "Just a text box" {
		t.Errorf("title = %q, want first line fallback", title)
	}
}

func TestSlideTextEmptySlide(t *testing.T) {
	title, text := SlideText([]byte(`<p:sld xmlns:p="p"><p:cSld><p:spTree/></p:cSld></p:sld>`))
	if title != "" || text != "" {
		t.Errorf("empty slide yielded title=%q text=%q", title, text)
	}
}

// ---------------------------------------------------------------------------
// Content types
// ---------------------------------------------------------------------------

func TestContentTypeOverrideBeatsDefault(t *testing.T) {
	p := NewPackage()
	p.SetDefault("xml", "application/xml")
	p.SetPart("ppt/presentation.xml", []byte("<x/>"))
	p.SetOverride("ppt/presentation.xml", ContentTypePresentation)

	if ct := p.ContentType("ppt/presentation.xml"); ct != ContentTypePresentation {
		t.Errorf("ContentType = %q, override must win", ct)
	}
	if ct := p.ContentType("ppt/other.xml"); ct != "application/xml" {
		t.Errorf("ContentType = %q, want extension default", ct)
	}
}

func TestMediaContentTypeFallback(t *testing.T) {
	if ct := MediaContentType("png"); ct != "image/png" {
		t.Errorf("png = %q", ct)
	}
	if ct := MediaContentType("xyz"); ct != "application/octet-stream" {
		t.Errorf("unknown extension = %q, want octet-stream", ct)
	}
}
