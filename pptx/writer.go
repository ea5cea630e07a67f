package pptx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// zipEpoch is the fixed modification time stamped on every archive entry.
// Assembling the same request twice must yield byte-identical output, so
// wall-clock time never reaches the archive.
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// WriteTo serializes the package as a zip archive. Entry order is fixed:
// the content-type manifest, the package rels, then parts in insertion
// order, each followed by its rels table.
func (p *Package) WriteTo(w io.Writer) error {
	zw := zip.NewWriter(w)

	ct, err := p.marshalContentTypes()
	if err != nil {
		return fmt.Errorf("marshaling content types: %w", err)
	}
	if err := writeEntry(zw, "[Content_Types].xml", ct); err != nil {
		return err
	}

	if rels := p.rels[""]; len(rels) > 0 {
		body, err := marshalRels(rels)
		if err != nil {
			return fmt.Errorf("marshaling package rels: %w", err)
		}
		if err := writeEntry(zw, "_rels/.rels", body); err != nil {
			return err
		}
	}

	for _, name := range p.order {
		if err := writeEntry(zw, name, p.parts[name]); err != nil {
			return err
		}
		if rels := p.rels[name]; len(rels) > 0 {
			body, err := marshalRels(rels)
			if err != nil {
				return fmt.Errorf("marshaling rels for %s: %w", name, err)
			}
			if err := writeEntry(zw, relsPathFor(name), body); err != nil {
				return err
			}
		}
	}

	return zw.Close()
}

// Bytes serializes the package to memory.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the package atomically: a temp file in the target
// directory, renamed into place only after a complete write. A cancelled
// or failed write leaves nothing visible at pathname.
func (p *Package) WriteFile(pathname string) error {
	dir := filepath.Dir(pathname)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".deckforge-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp output: %w", err)
	}
	tmpName := tmp.Name()

	if err := p.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, pathname); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publishing output: %w", err)
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: zipEpoch,
	}
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("creating zip entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing zip entry %s: %w", name, err)
	}
	return nil
}
