package pptx

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Relationship is one row of a part's relationship table.
type Relationship struct {
	ID         string
	Type       string
	Target     string
	TargetMode string // "External" for hyperlinks etc., empty for internal
}

// External reports whether the relationship points outside the package.
func (r Relationship) External() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

// Relationship type URIs this engine routes on. Diagram drawing uses the
// Microsoft extension namespace; everything else is the transitional
// officeDocument namespace.
const (
	relNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	RelTypeOfficeDocument = relNS + "/officeDocument"
	RelTypeSlide          = relNS + "/slide"
	RelTypeSlideLayout    = relNS + "/slideLayout"
	RelTypeSlideMaster    = relNS + "/slideMaster"
	RelTypeTheme          = relNS + "/theme"
	RelTypeImage          = relNS + "/image"
	RelTypeAudio          = relNS + "/audio"
	RelTypeVideo          = relNS + "/video"
	RelTypeMedia          = relNS + "/media"
	RelTypeHyperlink      = relNS + "/hyperlink"
	RelTypeNotesSlide     = relNS + "/notesSlide"
	RelTypeChart          = relNS + "/chart"
	RelTypeDiagramData    = relNS + "/diagramData"
	RelTypeDiagramLayout  = relNS + "/diagramLayout"
	RelTypeDiagramColors  = relNS + "/diagramColors"
	RelTypeDiagramStyle   = relNS + "/diagramQuickStyle"
	RelTypeCustomXML      = relNS + "/customXml"
	RelTypeFont           = relNS + "/font"
	RelTypeOLEObject      = relNS + "/oleObject"
	RelTypePackage        = relNS + "/package"

	RelTypeDiagramDrawing = "http://schemas.microsoft.com/office/2007/relationships/diagramDrawing"
)

// relationshipsXML mirrors the .rels file structure.
type relationshipsXML struct {
	XMLName xml.Name          `xml:"Relationships"`
	Xmlns   string            `xml:"xmlns,attr"`
	Rels    []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// parseRels reads a .rels file into Relationship rows.
func parseRels(data []byte) ([]Relationship, error) {
	var doc relationshipsXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	rels := make([]Relationship, 0, len(doc.Rels))
	for _, r := range doc.Rels {
		rels = append(rels, Relationship{
			ID:         r.ID,
			Type:       r.Type,
			Target:     r.Target,
			TargetMode: r.TargetMode,
		})
	}
	return rels, nil
}

// marshalRels renders a relationship table back to .rels XML.
// Rows are sorted by numeric rId for stable output.
func marshalRels(rels []Relationship) ([]byte, error) {
	sorted := make([]Relationship, len(rels))
	copy(sorted, rels)
	sort.SliceStable(sorted, func(i, j int) bool {
		return relIDNum(sorted[i].ID) < relIDNum(sorted[j].ID)
	})

	doc := relationshipsXML{
		Xmlns: "http://schemas.openxmlformats.org/package/2006/relationships",
	}
	for _, r := range sorted {
		doc.Rels = append(doc.Rels, relationshipXML{
			ID:         r.ID,
			Type:       r.Type,
			Target:     r.Target,
			TargetMode: r.TargetMode,
		})
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// relIDNum extracts the numeric suffix of an "rIdN" identifier; non-conforming
// ids sort last.
func relIDNum(id string) int {
	n := 0
	rest := strings.TrimPrefix(id, "rId")
	if rest == id {
		return 1 << 30
	}
	for _, ch := range rest {
		if ch < '0' || ch > '9' {
			return 1 << 30
		}
		n = n*10 + int(ch-'0')
	}
	return n
}

// relRefPattern matches relationship-id attributes embedded in part XML.
// It covers the r: attributes PresentationML uses to reference its rels
// table: r:id, r:embed, r:link plus the diagram quadruple r:dm/r:lo/r:qs/r:cs.
var relRefPattern = regexp.MustCompile(`\b(r:(?:id|embed|link|pict|dm|lo|qs|cs))="(rId[0-9]+)"`)

// RewriteRelIDs rewrites every relationship-id reference in part XML
// according to mapping, in a single simultaneous pass so overlapping
// old/new namespaces cannot chain (rId1->rId2 and rId2->rId3 never
// turns rId1 into rId3).
func RewriteRelIDs(partXML []byte, mapping map[string]string) []byte {
	if len(mapping) == 0 {
		return partXML
	}
	return relRefPattern.ReplaceAllFunc(partXML, func(m []byte) []byte {
		sub := relRefPattern.FindSubmatch(m)
		attr, old := string(sub[1]), string(sub[2])
		repl, ok := mapping[old]
		if !ok {
			return m
		}
		return []byte(fmt.Sprintf(`%s="%s"`, attr, repl))
	})
}

// RelIDRefs returns the distinct relationship ids referenced by part XML,
// in order of first appearance.
func RelIDRefs(partXML []byte) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, m := range relRefPattern.FindAllSubmatch(partXML, -1) {
		id := string(m[2])
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// FindRel returns the first relationship of the given type.
func FindRel(rels []Relationship, relType string) (Relationship, bool) {
	for _, r := range rels {
		if r.Type == relType {
			return r, true
		}
	}
	return Relationship{}, false
}

// RelByID returns the relationship with the given id.
func RelByID(rels []Relationship, id string) (Relationship, bool) {
	for _, r := range rels {
		if r.ID == id {
			return r, true
		}
	}
	return Relationship{}, false
}
