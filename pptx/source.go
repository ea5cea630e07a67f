package pptx

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
)

// Default slide size: 16:9 widescreen in EMU.
const (
	DefaultSlideWidth  = 12192000
	DefaultSlideHeight = 6858000
)

// SourcePackage is an immutable, read-only view of an opened presentation:
// the ordered slide part names, the slide canvas size, and a content
// fingerprint over the raw container bytes. It is never mutated; extraction
// only reads from it.
type SourcePackage struct {
	pkg         *Package
	path        string
	fingerprint string
	slides      []string
	slideW      int64
	slideH      int64
}

// OpenSource loads a presentation from disk and resolves its slide order.
func OpenSource(pathname string) (*SourcePackage, error) {
	data, err := os.ReadFile(pathname)
	if err != nil {
		return nil, fmt.Errorf("opening source package: %w", err)
	}
	src, err := ReadSource(data)
	if err != nil {
		return nil, err
	}
	src.path = pathname
	return src, nil
}

// ReadSource loads a presentation from raw bytes.
func ReadSource(data []byte) (*SourcePackage, error) {
	pkg, err := Read(data)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	src := &SourcePackage{
		pkg:         pkg,
		fingerprint: hex.EncodeToString(sum[:]),
		slideW:      DefaultSlideWidth,
		slideH:      DefaultSlideHeight,
	}

	docRel, ok := FindRel(pkg.Rels(""), RelTypeOfficeDocument)
	if !ok {
		return nil, fmt.Errorf("package has no office document relationship")
	}
	presName := ResolveTarget("", docRel.Target)
	presXML, ok := pkg.Part(presName)
	if !ok {
		return nil, fmt.Errorf("presentation part %s missing", presName)
	}

	slideRIDs, w, h, err := parsePresentation(presXML)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", presName, err)
	}
	if w > 0 && h > 0 {
		src.slideW, src.slideH = w, h
	}

	presRels := pkg.Rels(presName)
	for _, rid := range slideRIDs {
		rel, ok := RelByID(presRels, rid)
		if !ok {
			return nil, fmt.Errorf("slide list references %s which is not in presentation rels", rid)
		}
		src.slides = append(src.slides, ResolveTarget(presName, rel.Target))
	}

	return src, nil
}

// Fingerprint returns the SHA-256 content hash of the container bytes.
func (s *SourcePackage) Fingerprint() string { return s.fingerprint }

// Path returns the on-disk location the package was opened from, if any.
func (s *SourcePackage) Path() string { return s.path }

// SlideCount returns the number of slides in presentation order.
func (s *SourcePackage) SlideCount() int { return len(s.slides) }

// SlideDimensions returns the slide canvas size in EMU.
func (s *SourcePackage) SlideDimensions() (w, h int64) { return s.slideW, s.slideH }

// SlidePartName returns the part name of the slide at index (0-based).
func (s *SourcePackage) SlidePartName(index int) (string, bool) {
	if index < 0 || index >= len(s.slides) {
		return "", false
	}
	return s.slides[index], true
}

// Package exposes the underlying container for read-only traversal.
func (s *SourcePackage) Package() *Package { return s.pkg }

// parsePresentation walks presentation.xml for the ordered slide r:ids and
// the slide size. Token walking keeps namespaced attribute handling explicit
// (sldId carries both a plain id and an r:id).
func parsePresentation(data []byte) (slideRIDs []string, w, h int64, err error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	inSlideList := false
	for {
		tok, terr := decoder.Token()
		if terr != nil {
			break
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "sldIdLst":
				inSlideList = true
			case "sldId":
				if !inSlideList {
					continue
				}
				for _, attr := range el.Attr {
					if attr.Name.Local == "id" && attr.Name.Space == relNS {
						slideRIDs = append(slideRIDs, attr.Value)
					}
				}
			case "sldSz":
				for _, attr := range el.Attr {
					switch attr.Name.Local {
					case "cx":
						w, _ = strconv.ParseInt(attr.Value, 10, 64)
					case "cy":
						h, _ = strconv.ParseInt(attr.Value, 10, 64)
					}
				}
			}
		case xml.EndElement:
			if el.Name.Local == "sldIdLst" {
				inSlideList = false
			}
		}
	}
	return slideRIDs, w, h, nil
}
