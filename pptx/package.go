// Package pptx models OOXML presentation containers: a zip archive of XML
// parts joined by per-part relationship tables. It reads packages with
// archive/zip and encoding/xml, tracks the content-type manifest, and writes
// deterministic output archives.
package pptx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// Package is an in-memory OOXML container. Part names are zip-style,
// without a leading slash ("ppt/slides/slide1.xml"). Relationship tables
// and the content-type manifest are kept structured; the raw
// [Content_Types].xml and *.rels entries are regenerated on write.
type Package struct {
	parts     map[string][]byte
	order     []string // part insertion order, drives deterministic output
	rels      map[string][]Relationship
	defaults  map[string]string // extension -> content type
	overrides map[string]string // part name -> content type
}

// NewPackage returns an empty container with the universal defaults
// (rels, xml) preregistered.
func NewPackage() *Package {
	p := &Package{
		parts:     make(map[string][]byte),
		rels:      make(map[string][]Relationship),
		defaults:  make(map[string]string),
		overrides: make(map[string]string),
	}
	p.SetDefault("rels", "application/vnd.openxmlformats-package.relationships+xml")
	p.SetDefault("xml", "application/xml")
	return p
}

// Open reads a package from a file on disk.
func Open(pathname string) (*Package, error) {
	data, err := os.ReadFile(pathname)
	if err != nil {
		return nil, fmt.Errorf("opening package: %w", err)
	}
	return Read(data)
}

// Read parses a package from raw zip bytes.
func Read(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("reading package zip: %w", err)
	}

	p := NewPackage()
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening part %s: %w", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading part %s: %w", f.Name, err)
		}

		name := strings.TrimPrefix(f.Name, "/")
		switch {
		case name == "[Content_Types].xml":
			if err := p.parseContentTypes(body); err != nil {
				return nil, err
			}
		case isRelsPath(name):
			owner := relsOwner(name)
			rels, err := parseRels(body)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %w", name, err)
			}
			p.rels[owner] = rels
		default:
			p.SetPart(name, body)
		}
	}
	return p, nil
}

// Part returns a part's bytes.
func (p *Package) Part(name string) ([]byte, bool) {
	b, ok := p.parts[name]
	return b, ok
}

// HasPart reports whether a part exists.
func (p *Package) HasPart(name string) bool {
	_, ok := p.parts[name]
	return ok
}

// SetPart stores a part, preserving first-insertion order for output.
func (p *Package) SetPart(name string, data []byte) {
	if _, exists := p.parts[name]; !exists {
		p.order = append(p.order, name)
	}
	p.parts[name] = data
}

// RemovePart deletes a part, its relationships, and its content-type override.
func (p *Package) RemovePart(name string) {
	if _, exists := p.parts[name]; !exists {
		return
	}
	delete(p.parts, name)
	delete(p.rels, name)
	delete(p.overrides, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Parts returns part names in insertion order.
func (p *Package) Parts() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Rels returns the relationship table of a part. The package-level table
// (_rels/.rels) is keyed by the empty string.
func (p *Package) Rels(owner string) []Relationship {
	return p.rels[owner]
}

// SetRels replaces the relationship table of a part.
func (p *Package) SetRels(owner string, rels []Relationship) {
	if len(rels) == 0 {
		delete(p.rels, owner)
		return
	}
	p.rels[owner] = rels
}

// SetDefault registers an extension-level content type.
func (p *Package) SetDefault(ext, contentType string) {
	p.defaults[strings.ToLower(ext)] = contentType
}

// SetOverride registers a part-level content type.
func (p *Package) SetOverride(name, contentType string) {
	p.overrides[name] = contentType
}

// ContentType resolves the content type of a part: override first, then
// extension default. Empty when unregistered.
func (p *Package) ContentType(name string) string {
	if ct, ok := p.overrides[name]; ok {
		return ct
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	return p.defaults[ext]
}

// relsPathFor returns the conventional location of a part's .rels table.
// The package-level table lives at _rels/.rels.
func relsPathFor(owner string) string {
	if owner == "" {
		return "_rels/.rels"
	}
	dir, base := path.Split(owner)
	return dir + "_rels/" + base + ".rels"
}

// isRelsPath reports whether a zip entry holds a relationship table.
func isRelsPath(name string) bool {
	return strings.HasSuffix(name, ".rels") && strings.Contains(name, "_rels/")
}

// relsOwner maps a .rels entry back to the part that owns it.
// "ppt/slides/_rels/slide1.xml.rels" -> "ppt/slides/slide1.xml";
// "_rels/.rels" -> "".
func relsOwner(relsPath string) string {
	dir, base := path.Split(relsPath)
	base = strings.TrimSuffix(base, ".rels")
	dir = strings.TrimSuffix(dir, "_rels/")
	if base == "" {
		return ""
	}
	return dir + base
}

// ResolveTarget resolves a relationship target relative to its owner part.
// Targets use forward slashes and may climb with "..".
func ResolveTarget(owner, target string) string {
	target = strings.ReplaceAll(target, "\\", "/")
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	dir := path.Dir(owner)
	if owner == "" {
		dir = "."
	}
	return strings.TrimPrefix(path.Clean(path.Join(dir, target)), "/")
}

// RelativeTarget computes the relationship target string that points from
// the owner part to the given part name ("ppt/slides/slide1.xml" ->
// "../media/image1.png").
func RelativeTarget(owner, partName string) string {
	ownerDir := path.Dir(owner)
	if owner == "" {
		ownerDir = "."
	}

	ownerSegs := splitSegs(ownerDir)
	partSegs := splitSegs(path.Dir(partName))

	common := 0
	for common < len(ownerSegs) && common < len(partSegs) && ownerSegs[common] == partSegs[common] {
		common++
	}

	var sb strings.Builder
	for i := common; i < len(ownerSegs); i++ {
		sb.WriteString("../")
	}
	for i := common; i < len(partSegs); i++ {
		sb.WriteString(partSegs[i])
		sb.WriteString("/")
	}
	sb.WriteString(path.Base(partName))
	return sb.String()
}

func splitSegs(dir string) []string {
	if dir == "." || dir == "" {
		return nil
	}
	return strings.Split(dir, "/")
}
