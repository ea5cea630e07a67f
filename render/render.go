// Package render produces alternate representations of slides: visually
// faithful single-page exports used when a slide is too complex to survive
// structural extraction.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrUnavailable reports that no alternate page could be produced. Callers
// treat it as a policy signal (fall back to structural), never as fatal.
var ErrUnavailable = errors.New("render: alternate representation unavailable")

// MIMEPDF is the media type of pages produced by the soffice provider.
const MIMEPDF = "application/pdf"

// Page is one rendered slide.
type Page struct {
	Path string
	MIME string
}

// Image reports whether the page is a raster image, which is what the
// embed output mode needs for full-bleed picture slides.
func (p Page) Image() bool {
	return strings.HasPrefix(p.MIME, "image/")
}

// Provider renders single slides of a source presentation.
type Provider interface {
	RenderPage(ctx context.Context, deckPath string, slideIndex int) (Page, error)
}

// SofficeRenderer shells out to LibreOffice to convert the whole deck to
// PDF once, then splits single pages out of the cached conversion.
type SofficeRenderer struct {
	binary string
	outDir string

	mu    sync.Mutex
	cache map[string]cachedPDF // deck path -> conversion result
}

type cachedPDF struct {
	path  string
	pages int
	err   error
}

// NewSoffice returns a renderer using the given soffice binary (empty means
// look it up on PATH) writing into outDir.
func NewSoffice(binary, outDir string) (*SofficeRenderer, error) {
	if binary == "" {
		binary = "soffice"
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %v", ErrUnavailable, binary, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("render: creating output dir: %w", err)
	}
	return &SofficeRenderer{
		binary: resolved,
		outDir: outDir,
		cache:  make(map[string]cachedPDF),
	}, nil
}

// RenderPage renders slide slideIndex (0-based) of the deck at deckPath to
// a single-page PDF. The whole-deck conversion is cached, so rendering
// every slide of a deck costs one soffice invocation.
func (r *SofficeRenderer) RenderPage(ctx context.Context, deckPath string, slideIndex int) (Page, error) {
	conv := r.convert(ctx, deckPath)
	if conv.err != nil {
		return Page{}, conv.err
	}
	if slideIndex < 0 || slideIndex >= conv.pages {
		return Page{}, fmt.Errorf("%w: deck renders %d pages, want page %d", ErrUnavailable, conv.pages, slideIndex+1)
	}

	pagePath := filepath.Join(r.outDir, fmt.Sprintf("%s_p%d.pdf", stem(deckPath), slideIndex+1))
	sel := []string{fmt.Sprintf("%d", slideIndex+1)}
	if err := api.TrimFile(conv.path, pagePath, sel, nil); err != nil {
		return Page{}, fmt.Errorf("%w: splitting page %d: %v", ErrUnavailable, slideIndex+1, err)
	}
	return Page{Path: pagePath, MIME: MIMEPDF}, nil
}

// convert runs (or reuses) the deck-to-PDF conversion. Failures are cached
// too: one broken deck should not trigger a soffice run per slide.
func (r *SofficeRenderer) convert(ctx context.Context, deckPath string) cachedPDF {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conv, ok := r.cache[deckPath]; ok {
		return conv
	}

	cmd := exec.CommandContext(ctx, r.binary,
		"--headless", "--norestore", "--convert-to", "pdf", "--outdir", r.outDir, deckPath)
	out, err := cmd.CombinedOutput()

	conv := cachedPDF{path: filepath.Join(r.outDir, stem(deckPath)+".pdf")}
	switch {
	case ctx.Err() != nil:
		conv.err = fmt.Errorf("%w: conversion timed out: %v", ErrUnavailable, ctx.Err())
	case err != nil:
		conv.err = fmt.Errorf("%w: soffice: %v: %s", ErrUnavailable, err, strings.TrimSpace(string(out)))
	default:
		conv.pages, conv.err = pageCount(conv.path)
	}

	r.cache[deckPath] = conv
	return conv
}

// pageCount opens the converted PDF and counts its pages; a conversion that
// produced an unreadable file is as good as no conversion.
func pageCount(path string) (int, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: reading converted pdf: %v", ErrUnavailable, err)
	}
	defer f.Close()
	return reader.NumPage(), nil
}

// MergePages concatenates single-page PDFs into one document at outPath.
// Used by split-mode assembly to build the alternate track.
func MergePages(paths []string, outPath string) error {
	if len(paths) == 0 {
		return fmt.Errorf("render: no pages to merge")
	}
	if err := api.MergeCreateFile(paths, outPath, false, nil); err != nil {
		return fmt.Errorf("render: merging %d pages: %w", len(paths), err)
	}
	return nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
