package pptx

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// SlideText pulls the title and plain text out of a slide part. The title is
// the text of the first placeholder typed "title"/"ctrTitle"; when no title
// placeholder exists, the first non-empty text line is used, capped at 100
// characters. Table cell text is included because graphic frames carry their
// text inline in the slide XML.
func SlideText(slideXML []byte) (title, text string) {
	decoder := xml.NewDecoder(bytes.NewReader(slideXML))

	var parts []string
	var current strings.Builder
	inTitle := false
	spDepth := 0

	flush := func() {
		if t := strings.TrimSpace(current.String()); t != "" {
			parts = append(parts, t)
			if inTitle && title == "" {
				title = t
			}
		}
		current.Reset()
		inTitle = false
	}

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "sp", "graphicFrame":
				if spDepth == 0 {
					flush()
				}
				spDepth++
			case "ph":
				for _, attr := range el.Attr {
					if attr.Name.Local == "type" && (attr.Value == "title" || attr.Value == "ctrTitle") {
						inTitle = true
					}
				}
			case "t":
				var runText string
				if err := decoder.DecodeElement(&runText, &el); err == nil {
					current.WriteString(runText)
				}
			case "p":
				if current.Len() > 0 {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if el.Name.Local == "sp" || el.Name.Local == "graphicFrame" {
				spDepth--
				if spDepth == 0 {
					flush()
				}
			}
		}
	}
	flush()

	text = strings.Join(parts, "\n")
	if title == "" && len(parts) > 0 {
		title = parts[0]
		if len(title) > 100 {
			title = title[:100]
		}
	}
	return title, text
}
