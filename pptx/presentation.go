package pptx

import (
	"fmt"
	"strings"
)

// Slide and master identifiers in sldIdLst/sldMasterIdLst must be unique
// within the document; PowerPoint starts slide ids at 256 and master ids at
// 2147483648, and tooling expects those ranges.
const (
	firstSlideID  = 256
	firstMasterID = 2147483648
)

const presentationNS = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

// PresentationXML synthesizes a presentation part that lists the given
// masters and slides by relationship id, in order, with the given canvas
// size in EMU.
func PresentationXML(masterRIDs, slideRIDs []string, w, h int64) []byte {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString("\n<p:presentation ")
	sb.WriteString(presentationNS)
	sb.WriteString(">")

	if len(masterRIDs) > 0 {
		sb.WriteString("<p:sldMasterIdLst>")
		for i, rid := range masterRIDs {
			fmt.Fprintf(&sb, `<p:sldMasterId id="%d" r:id="%s"/>`, firstMasterID+i, rid)
		}
		sb.WriteString("</p:sldMasterIdLst>")
	}

	if len(slideRIDs) > 0 {
		sb.WriteString("<p:sldIdLst>")
		for i, rid := range slideRIDs {
			fmt.Fprintf(&sb, `<p:sldId id="%d" r:id="%s"/>`, firstSlideID+i, rid)
		}
		sb.WriteString("</p:sldIdLst>")
	}

	fmt.Fprintf(&sb, `<p:sldSz cx="%d" cy="%d"/><p:notesSz cx="%d" cy="%d"/>`, w, h, h, w)
	sb.WriteString("</p:presentation>")
	return []byte(sb.String())
}

// PresentationSize reads the slide canvas size out of a presentation part.
// Zero values mean the part declares no sldSz.
func PresentationSize(data []byte) (w, h int64, err error) {
	_, w, h, err = parsePresentation(data)
	return
}
