// Package extract turns one slide of a source presentation into a
// self-contained single-slide package: the slide, its layout/master/theme
// ancestry, and every media part reachable from it, renumbered into a
// private namespace with all cross-references rewritten.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/mbaranov/deckforge/classify"
	"github.com/mbaranov/deckforge/pptx"
)

var (
	// ErrSlideNotFound is returned when the slide index is out of range.
	ErrSlideNotFound = errors.New("extract: slide not found")

	// ErrCorruptSource is returned when the source relationship table
	// references a part absent from the container. The offending
	// relationship id is included in the wrapped message.
	ErrCorruptSource = errors.New("extract: corrupt source package")
)

// SlideUnit is the atomic deliverable of extraction: a standalone package
// holding one slide, tagged with its origin and complexity. Units are
// immutable once built; re-ingesting a changed deck supersedes them.
type SlideUnit struct {
	SourceFingerprint string
	SourceIndex       int
	Package           *pptx.Package
	Score             int
	RequiresAlternate bool
	Title             string
	Text              string
}

// Extractor builds slide units. Safe for concurrent use: each call reads
// only from its immutable source and writes only its own result.
type Extractor struct {
	classifier classify.Classifier
}

// New returns an Extractor using the given classifier.
func New(classifier classify.Classifier) *Extractor {
	return &Extractor{classifier: classifier}
}

// Relationship kinds the structural path copies alongside the slide.
var copiedRelTypes = map[string]string{
	pptx.RelTypeImage: "image",
	pptx.RelTypeAudio: "media",
	pptx.RelTypeVideo: "media",
	pptx.RelTypeMedia: "media",
}

// Relationship kinds deliberately outside the structural fidelity boundary.
// These are exactly the categories the classifier scores; dropping them is
// intentional, not an oversight.
var excludedRelTypes = map[string]bool{
	pptx.RelTypeDiagramData:    true,
	pptx.RelTypeDiagramLayout:  true,
	pptx.RelTypeDiagramColors:  true,
	pptx.RelTypeDiagramStyle:   true,
	pptx.RelTypeDiagramDrawing: true,
	pptx.RelTypeChart:          true,
	pptx.RelTypeCustomXML:      true,
	pptx.RelTypeFont:           true,
	pptx.RelTypeOLEObject:      true,
	pptx.RelTypePackage:        true,
	pptx.RelTypeNotesSlide:     true,
}

// Extract produces a SlideUnit for the slide at slideIndex (0-based).
// The source package is never mutated.
func (e *Extractor) Extract(src *pptx.SourcePackage, slideIndex int) (*SlideUnit, error) {
	slideName, ok := src.SlidePartName(slideIndex)
	if !ok {
		return nil, fmt.Errorf("%w: index %d of %d slides", ErrSlideNotFound, slideIndex, src.SlideCount())
	}

	pkg := src.Package()
	slideXML, ok := pkg.Part(slideName)
	if !ok {
		return nil, fmt.Errorf("%w: slide part %s listed but missing", ErrCorruptSource, slideName)
	}
	slideRels := pkg.Rels(slideName)

	// Classify before any copying: the score is a pure function of the
	// source inventory.
	inv := classify.InventoryOf(slideXML, slideRels)
	result := e.classifier.Classify(inv)

	// Resolve ancestry: layout, its master, the master's theme.
	layoutRel, ok := pptx.FindRel(slideRels, pptx.RelTypeSlideLayout)
	if !ok {
		return nil, fmt.Errorf("%w: slide %s has no layout relationship", ErrCorruptSource, slideName)
	}
	layoutName := pptx.ResolveTarget(slideName, layoutRel.Target)
	layoutXML, ok := pkg.Part(layoutName)
	if !ok {
		return nil, fmt.Errorf("%w: relationship %s of %s targets missing layout %s", ErrCorruptSource, layoutRel.ID, slideName, layoutName)
	}

	masterRel, ok := pptx.FindRel(pkg.Rels(layoutName), pptx.RelTypeSlideMaster)
	if !ok {
		return nil, fmt.Errorf("%w: layout %s has no master relationship", ErrCorruptSource, layoutName)
	}
	masterName := pptx.ResolveTarget(layoutName, masterRel.Target)
	masterXML, ok := pkg.Part(masterName)
	if !ok {
		return nil, fmt.Errorf("%w: relationship %s of %s targets missing master %s", ErrCorruptSource, masterRel.ID, layoutName, masterName)
	}

	themeRel, ok := pptx.FindRel(pkg.Rels(masterName), pptx.RelTypeTheme)
	if !ok {
		return nil, fmt.Errorf("%w: master %s has no theme relationship", ErrCorruptSource, masterName)
	}
	themeName := pptx.ResolveTarget(masterName, themeRel.Target)
	themeXML, ok := pkg.Part(themeName)
	if !ok {
		return nil, fmt.Errorf("%w: relationship %s of %s targets missing theme %s", ErrCorruptSource, themeRel.ID, masterName, themeName)
	}

	const (
		newSlide  = "ppt/slides/slide1.xml"
		newLayout = "ppt/slideLayouts/slideLayout1.xml"
		newMaster = "ppt/slideMasters/slideMaster1.xml"
		newTheme  = "ppt/theme/theme1.xml"
	)

	c := newCopier(pkg)

	// Slide: layout rel retargeted, media copied, excluded kinds dropped.
	if err := c.copyPart(slideName, slideXML, newSlide, map[string]string{layoutName: newLayout}); err != nil {
		return nil, err
	}

	// Layout: master rel retargeted, media copied.
	if err := c.copyPart(layoutName, layoutXML, newLayout, map[string]string{masterName: newMaster}); err != nil {
		return nil, err
	}

	// Master: theme rel and the single surviving layout rel retargeted;
	// master XML loses the layout-list entries whose rels were dropped.
	if err := c.copyPart(masterName, masterXML, newMaster, map[string]string{
		themeName:  newTheme,
		layoutName: newLayout,
	}); err != nil {
		return nil, err
	}

	// Theme: media only (picture fills in themes are rare but legal).
	if err := c.copyPart(themeName, themeXML, newTheme, nil); err != nil {
		return nil, err
	}

	unit := c.unit
	unit.SetOverride(newSlide, pptx.ContentTypeSlide)
	unit.SetOverride(newLayout, pptx.ContentTypeSlideLayout)
	unit.SetOverride(newMaster, pptx.ContentTypeSlideMaster)
	unit.SetOverride(newTheme, pptx.ContentTypeTheme)

	// Manifest: presentation part, package rels, content types.
	w, h := src.SlideDimensions()
	unit.SetPart("ppt/presentation.xml", pptx.PresentationXML([]string{"rId1"}, []string{"rId2"}, w, h))
	unit.SetOverride("ppt/presentation.xml", pptx.ContentTypePresentation)
	unit.SetRels("ppt/presentation.xml", []pptx.Relationship{
		{ID: "rId1", Type: pptx.RelTypeSlideMaster, Target: "slideMasters/slideMaster1.xml"},
		{ID: "rId2", Type: pptx.RelTypeSlide, Target: "slides/slide1.xml"},
	})
	unit.SetRels("", []pptx.Relationship{
		{ID: "rId1", Type: pptx.RelTypeOfficeDocument, Target: "ppt/presentation.xml"},
	})

	if err := unit.Validate(); err != nil {
		return nil, fmt.Errorf("%w: extracted unit failed self-check: %v", ErrCorruptSource, err)
	}

	title, text := pptx.SlideText(slideXML)

	return &SlideUnit{
		SourceFingerprint: src.Fingerprint(),
		SourceIndex:       slideIndex,
		Package:           unit,
		Score:             result.Score,
		RequiresAlternate: result.RequiresAlternate,
		Title:             title,
		Text:              text,
	}, nil
}

// copier tracks the unit being built and the media parts already copied so
// a part referenced twice lands in the unit exactly once.
type copier struct {
	src        *pptx.Package
	unit       *pptx.Package
	mediaNames map[string]string // source part name -> unit part name
	imageSeq   int
	mediaSeq   int
}

func newCopier(src *pptx.Package) *copier {
	return &copier{
		src:        src,
		unit:       pptx.NewPackage(),
		mediaNames: make(map[string]string),
	}
}

// copyPart copies one XML part into the unit under newName. Relationships
// of copied kinds are carried over (media parts pulled in), retarget maps
// structural rels to their new part names, and everything else is dropped.
// Relationship ids are renumbered rId1..rIdN in kept order and every
// reference in the part XML is rewritten simultaneously; references to
// dropped relationships are scrubbed so the unit holds no dangling ids.
func (c *copier) copyPart(oldName string, partXML []byte, newName string, retarget map[string]string) error {
	var kept []pptx.Relationship
	idMap := make(map[string]string)
	dropped := make(map[string]bool)

	nextID := func() string { return fmt.Sprintf("rId%d", len(kept)+1) }

	for _, rel := range c.src.Rels(oldName) {
		if rel.External() {
			id := nextID()
			idMap[rel.ID] = id
			kept = append(kept, pptx.Relationship{ID: id, Type: rel.Type, Target: rel.Target, TargetMode: rel.TargetMode})
			continue
		}

		target := pptx.ResolveTarget(oldName, rel.Target)

		if newTarget, ok := retarget[target]; ok {
			id := nextID()
			idMap[rel.ID] = id
			kept = append(kept, pptx.Relationship{ID: id, Type: rel.Type, Target: pptx.RelativeTarget(newName, newTarget)})
			continue
		}

		if family, ok := copiedRelTypes[rel.Type]; ok {
			unitTarget, err := c.copyMedia(oldName, rel, family)
			if err != nil {
				return err
			}
			id := nextID()
			idMap[rel.ID] = id
			kept = append(kept, pptx.Relationship{ID: id, Type: rel.Type, Target: pptx.RelativeTarget(newName, unitTarget)})
			continue
		}

		if !excludedRelTypes[rel.Type] {
			slog.Debug("extract: dropping unrecognized relationship",
				"part", oldName, "rel", rel.ID, "type", rel.Type)
		}
		dropped[rel.ID] = true
	}

	rewritten := dropDeadFrames(partXML, dropped)
	if strings.HasSuffix(newName, "slideMaster1.xml") {
		rewritten = pruneLayoutList(rewritten, dropped)
	}
	rewritten = scrubRelAttrs(rewritten, dropped)
	rewritten = pptx.RewriteRelIDs(rewritten, idMap)

	c.unit.SetPart(newName, rewritten)
	c.unit.SetRels(newName, kept)
	return nil
}

// copyMedia pulls a media part into the unit, assigning a deterministic
// family-sequenced name and registering its content-type default.
func (c *copier) copyMedia(owner string, rel pptx.Relationship, family string) (string, error) {
	srcName := pptx.ResolveTarget(owner, rel.Target)
	if unitName, ok := c.mediaNames[srcName]; ok {
		return unitName, nil
	}

	data, ok := c.src.Part(srcName)
	if !ok {
		return "", fmt.Errorf("%w: relationship %s of %s targets missing part %s", ErrCorruptSource, rel.ID, owner, srcName)
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(srcName), "."))
	if ext == "" {
		ext = "bin"
	}

	var unitName string
	if family == "image" {
		c.imageSeq++
		unitName = fmt.Sprintf("ppt/media/image%d.%s", c.imageSeq, ext)
	} else {
		c.mediaSeq++
		unitName = fmt.Sprintf("ppt/media/media%d.%s", c.mediaSeq, ext)
	}

	c.unit.SetPart(unitName, data)
	c.unit.SetDefault(ext, pptx.MediaContentType(ext))
	c.mediaNames[srcName] = unitName
	return unitName, nil
}

// graphicFramePattern matches whole graphic frames; frames never nest
// inside each other, so non-greedy matching is safe.
var graphicFramePattern = regexp.MustCompile(`(?s)<p:graphicFrame[\s>].*?</p:graphicFrame>`)

// dropDeadFrames removes graphic frames whose relationship ids were dropped
// (charts, diagrams, embedded objects). Leaving the frame in place would be
// a dangling reference into a relationship table that no longer has the row.
func dropDeadFrames(partXML []byte, dropped map[string]bool) []byte {
	if len(dropped) == 0 {
		return partXML
	}
	return graphicFramePattern.ReplaceAllFunc(partXML, func(frame []byte) []byte {
		for _, id := range pptx.RelIDRefs(frame) {
			if dropped[id] {
				return nil
			}
		}
		return frame
	})
}

// scrubAttrPattern matches a single r: attribute for surgical removal.
var scrubAttrPattern = regexp.MustCompile(`\s+r:(?:id|embed|link|pict|dm|lo|qs|cs)="(rId[0-9]+)"`)

// scrubRelAttrs removes leftover attributes that still point at dropped
// relationships (hyperlinks to sibling slides, notes references). The
// elements stay; only the dead pointer goes.
func scrubRelAttrs(partXML []byte, dropped map[string]bool) []byte {
	if len(dropped) == 0 {
		return partXML
	}
	return scrubAttrPattern.ReplaceAllFunc(partXML, func(m []byte) []byte {
		sub := scrubAttrPattern.FindSubmatch(m)
		if dropped[string(sub[1])] {
			return nil
		}
		return m
	})
}

// layoutIDPattern matches sldLayoutId entries in a master part.
var layoutIDPattern = regexp.MustCompile(`<p:sldLayoutId[^>]*/>`)

// pruneLayoutList removes sldLayoutId entries for layouts that were not
// carried into the unit; the master keeps exactly one layout child.
func pruneLayoutList(masterXML []byte, dropped map[string]bool) []byte {
	return layoutIDPattern.ReplaceAllFunc(masterXML, func(entry []byte) []byte {
		for _, id := range pptx.RelIDRefs(entry) {
			if dropped[id] {
				return nil
			}
		}
		return entry
	})
}
