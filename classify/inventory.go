package classify

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/mbaranov/deckforge/pptx"
)

// Inventory is the raw shape/relationship census of one slide. It is derived
// in a single walk over the slide XML and its relationship table.
type Inventory struct {
	HasDiagram bool `json:"has_diagram"`
	Charts     int  `json:"charts"`
	Tables     int  `json:"tables"`
	Groups     int  `json:"groups"`
	Connectors int  `json:"connectors"`
	OLEObjects int  `json:"ole_objects"`
}

// graphicData URIs that identify what a graphic frame carries.
const (
	chartGraphicURI = "http://schemas.openxmlformats.org/drawingml/2006/chart"
	tableGraphicURI = "http://schemas.openxmlformats.org/drawingml/2006/table"
)

// InventoryOf walks the slide's direct shape tree and its relationship table
// exactly once. Group contents one level deep are counted; deeper nesting is
// not descended into. A graphic frame that is neither chart nor table
// contributes nothing — unknown content never moves the score.
func InventoryOf(slideXML []byte, rels []pptx.Relationship) Inventory {
	var inv Inventory

	for _, rel := range rels {
		switch rel.Type {
		case pptx.RelTypeDiagramData:
			inv.HasDiagram = true
		case pptx.RelTypeOLEObject:
			inv.OLEObjects++
		}
	}

	decoder := xml.NewDecoder(bytes.NewReader(slideXML))
	groupDepth := 0
	inSpTree := false
	frameDepth := 0

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "spTree":
				inSpTree = true
			case "grpSp":
				if !inSpTree {
					continue
				}
				if groupDepth <= 1 {
					inv.Groups++
				}
				groupDepth++
			case "cxnSp":
				if inSpTree && groupDepth <= 1 {
					inv.Connectors++
				}
			case "graphicFrame":
				if inSpTree && groupDepth <= 1 {
					frameDepth++
				}
			case "graphicData":
				if frameDepth == 0 {
					continue
				}
				for _, attr := range el.Attr {
					if attr.Name.Local != "uri" {
						continue
					}
					switch strings.TrimSpace(attr.Value) {
					case chartGraphicURI:
						inv.Charts++
					case tableGraphicURI:
						inv.Tables++
					}
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "spTree":
				inSpTree = false
			case "grpSp":
				if groupDepth > 0 {
					groupDepth--
				}
			case "graphicFrame":
				if frameDepth > 0 {
					frameDepth--
				}
			}
		}
	}

	return inv
}
