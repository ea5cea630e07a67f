package pptx

import (
	"encoding/xml"
	"fmt"
	"sort"
)

// Content types this engine registers when building packages.
const (
	ContentTypePresentation = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	ContentTypeSlide        = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	ContentTypeSlideLayout  = "application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"
	ContentTypeSlideMaster  = "application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"
	ContentTypeTheme        = "application/vnd.openxmlformats-officedocument.theme+xml"
)

// mediaContentTypes maps media file extensions to their default content type.
var mediaContentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"emf":  "image/x-emf",
	"wmf":  "image/x-wmf",
	"svg":  "image/svg+xml",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"m4a":  "audio/mp4",
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/avi",
	"wmv":  "video/x-ms-wmv",
}

// MediaContentType returns the default content type for a media extension,
// falling back to application/octet-stream for unknown extensions.
func MediaContentType(ext string) string {
	if ct, ok := mediaContentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ctTypesXML mirrors [Content_Types].xml.
type ctTypesXML struct {
	XMLName   xml.Name        `xml:"Types"`
	Xmlns     string          `xml:"xmlns,attr"`
	Defaults  []ctDefaultXML  `xml:"Default"`
	Overrides []ctOverrideXML `xml:"Override"`
}

type ctDefaultXML struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type ctOverrideXML struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// parseContentTypes loads [Content_Types].xml into the package manifest.
func (p *Package) parseContentTypes(data []byte) error {
	var doc ctTypesXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing content types: %w", err)
	}
	for _, d := range doc.Defaults {
		p.SetDefault(d.Extension, d.ContentType)
	}
	for _, o := range doc.Overrides {
		name := o.PartName
		if len(name) > 0 && name[0] == '/' {
			name = name[1:]
		}
		p.SetOverride(name, o.ContentType)
	}
	return nil
}

// marshalContentTypes renders the manifest. Defaults and overrides are
// sorted so identical packages serialize identically.
func (p *Package) marshalContentTypes() ([]byte, error) {
	doc := ctTypesXML{
		Xmlns: "http://schemas.openxmlformats.org/package/2006/content-types",
	}

	exts := make([]string, 0, len(p.defaults))
	for ext := range p.defaults {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		doc.Defaults = append(doc.Defaults, ctDefaultXML{Extension: ext, ContentType: p.defaults[ext]})
	}

	names := make([]string, 0, len(p.overrides))
	for name := range p.overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		doc.Overrides = append(doc.Overrides, ctOverrideXML{PartName: "/" + name, ContentType: p.overrides[name]})
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
