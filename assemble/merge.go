package assemble

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/mbaranov/deckforge/policy"
	"github.com/mbaranov/deckforge/pptx"
)

// Part names inside a slide unit are fixed by extraction.
const (
	unitSlide  = "ppt/slides/slide1.xml"
	unitLayout = "ppt/slideLayouts/slideLayout1.xml"
	unitMaster = "ppt/slideMasters/slideMaster1.xml"
	unitTheme  = "ppt/theme/theme1.xml"
)

// mergePlacements builds the output container. Structural placements are
// copied in with deduplicated ancestry; alternate placements either collect
// into the returned PDF page list (split output) or become full-bleed
// picture slides (embed output).
func mergePlacements(placements []resolved, output OutputMode) (*pptx.Package, []string, error) {
	w, h := normalizeDimensions(placements)

	m := newMerger()
	var altPages []string

	for _, p := range placements {
		if p.choice == policy.Alternate {
			if output == OutputSplit {
				altPages = append(altPages, p.unit.AlternatePath)
				continue
			}
			if err := m.addPictureSlide(p.pkg, p.unit, w, h); err != nil {
				return nil, nil, err
			}
			continue
		}
		if err := m.addStructuralSlide(p.pkg, p.unit.ID); err != nil {
			return nil, nil, err
		}
	}

	return m.finalize(w, h), altPages, nil
}

// normalizeDimensions picks the most common canvas size among the units,
// falling back to the PowerPoint 16:9 default. Ties break toward the
// smaller size for a stable result.
func normalizeDimensions(placements []resolved) (int64, int64) {
	type dim struct{ w, h int64 }
	counts := make(map[dim]int)
	for _, p := range placements {
		pres, ok := p.pkg.Part("ppt/presentation.xml")
		if !ok {
			continue
		}
		w, h, err := pptx.PresentationSize(pres)
		if err != nil || w <= 0 || h <= 0 {
			continue
		}
		counts[dim{w, h}]++
	}

	best := dim{pptx.DefaultSlideWidth, pptx.DefaultSlideHeight}
	bestCount := 0
	dims := make([]dim, 0, len(counts))
	for d := range counts {
		dims = append(dims, d)
	}
	sort.Slice(dims, func(i, j int) bool {
		if dims[i].w != dims[j].w {
			return dims[i].w < dims[j].w
		}
		return dims[i].h < dims[j].h
	})
	for _, d := range dims {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best.w, best.h
}

// ancestryRef locates one deduplicated ancestry copy in the output.
type ancestryRef struct {
	layoutName string
	masterName string
}

// merger accumulates parts into the output package. Relationship ids are
// scoped per part, so merging never rewrites ids, only targets.
type merger struct {
	out      *pptx.Package
	ancestry map[string]ancestryRef // ancestry content key -> placed copy
	media    map[string]string      // content hash + ext -> output part name

	slideSeq  int
	layoutSeq int
	masterSeq int
	themeSeq  int
	imageSeq  int
	mediaSeq  int

	masterNames []string
	slideNames  []string
}

func newMerger() *merger {
	return &merger{
		out:      pptx.NewPackage(),
		ancestry: make(map[string]ancestryRef),
		media:    make(map[string]string),
	}
}

// addStructuralSlide places one unit's slide, reusing ancestry already in
// the output when the unit's ancestry bytes match.
func (m *merger) addStructuralSlide(unitPkg *pptx.Package, unitID string) error {
	slideXML, ok := unitPkg.Part(unitSlide)
	if !ok {
		return fmt.Errorf("assemble: unit %s has no slide part", unitID)
	}

	ref, err := m.ensureAncestry(unitPkg, unitID)
	if err != nil {
		return err
	}

	m.slideSeq++
	slideName := fmt.Sprintf("ppt/slides/slide%d.xml", m.slideSeq)

	rels, err := m.rewriteRels(unitPkg, unitSlide, slideName, map[string]string{
		unitLayout: ref.layoutName,
	})
	if err != nil {
		return fmt.Errorf("assemble: unit %s: %w", unitID, err)
	}

	m.out.SetPart(slideName, slideXML)
	m.out.SetOverride(slideName, pptx.ContentTypeSlide)
	m.out.SetRels(slideName, rels)
	m.slideNames = append(m.slideNames, slideName)
	return nil
}

// addPictureSlide places a full-bleed picture slide showing the unit's
// alternate page, attached to the unit's own (deduplicated) ancestry.
func (m *merger) addPictureSlide(unitPkg *pptx.Package, u *Unit, w, h int64) error {
	ref, err := m.ensureAncestry(unitPkg, u.ID)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(u.AlternatePath)
	if err != nil {
		return fmt.Errorf("assemble: reading alternate page for unit %s: %w", u.ID, err)
	}
	ext := mimeExt(u.AlternateMIME)
	imgName := m.placeMediaBytes(data, ext, "image")

	m.slideSeq++
	slideName := fmt.Sprintf("ppt/slides/slide%d.xml", m.slideSeq)

	m.out.SetPart(slideName, pictureSlideXML(w, h))
	m.out.SetOverride(slideName, pptx.ContentTypeSlide)
	m.out.SetRels(slideName, []pptx.Relationship{
		{ID: "rId1", Type: pptx.RelTypeSlideLayout, Target: pptx.RelativeTarget(slideName, ref.layoutName)},
		{ID: "rId2", Type: pptx.RelTypeImage, Target: pptx.RelativeTarget(slideName, imgName)},
	})
	m.slideNames = append(m.slideNames, slideName)
	return nil
}

// ensureAncestry copies the unit's layout/master/theme into the output
// exactly once per distinct ancestry content.
func (m *merger) ensureAncestry(unitPkg *pptx.Package, unitID string) (ancestryRef, error) {
	key, err := ancestryKey(unitPkg)
	if err != nil {
		return ancestryRef{}, fmt.Errorf("assemble: unit %s: %w", unitID, err)
	}
	if ref, ok := m.ancestry[key]; ok {
		return ref, nil
	}

	m.layoutSeq++
	m.masterSeq++
	m.themeSeq++
	ref := ancestryRef{
		layoutName: fmt.Sprintf("ppt/slideLayouts/slideLayout%d.xml", m.layoutSeq),
		masterName: fmt.Sprintf("ppt/slideMasters/slideMaster%d.xml", m.masterSeq),
	}
	themeName := fmt.Sprintf("ppt/theme/theme%d.xml", m.themeSeq)

	copies := []struct {
		src, dst, contentType string
		retarget              map[string]string
	}{
		{unitTheme, themeName, pptx.ContentTypeTheme, nil},
		{unitMaster, ref.masterName, pptx.ContentTypeSlideMaster, map[string]string{
			unitTheme:  themeName,
			unitLayout: ref.layoutName,
		}},
		{unitLayout, ref.layoutName, pptx.ContentTypeSlideLayout, map[string]string{
			unitMaster: ref.masterName,
		}},
	}
	for _, c := range copies {
		data, ok := unitPkg.Part(c.src)
		if !ok {
			return ancestryRef{}, fmt.Errorf("assemble: unit %s has no %s", unitID, c.src)
		}
		rels, err := m.rewriteRels(unitPkg, c.src, c.dst, c.retarget)
		if err != nil {
			return ancestryRef{}, fmt.Errorf("assemble: unit %s: %w", unitID, err)
		}
		m.out.SetPart(c.dst, data)
		m.out.SetOverride(c.dst, c.contentType)
		m.out.SetRels(c.dst, rels)
	}

	m.masterNames = append(m.masterNames, ref.masterName)
	m.ancestry[key] = ref
	return ref, nil
}

// rewriteRels maps one part's relationships into the output namespace:
// retargeted structural rels point at their new names, media rels at the
// deduplicated media copies, external rels pass through.
func (m *merger) rewriteRels(unitPkg *pptx.Package, oldName, newName string, retarget map[string]string) ([]pptx.Relationship, error) {
	var out []pptx.Relationship
	for _, rel := range unitPkg.Rels(oldName) {
		if rel.External() {
			out = append(out, rel)
			continue
		}
		target := pptx.ResolveTarget(oldName, rel.Target)
		if mapped, ok := retarget[target]; ok {
			rel.Target = pptx.RelativeTarget(newName, mapped)
			out = append(out, rel)
			continue
		}
		placed, err := m.placeMedia(unitPkg, target, rel.Type)
		if err != nil {
			return nil, err
		}
		rel.Target = pptx.RelativeTarget(newName, placed)
		out = append(out, rel)
	}
	return out, nil
}

// placeMedia copies a unit media part into the output, deduplicating by
// content across all units in the request.
func (m *merger) placeMedia(unitPkg *pptx.Package, srcName, relType string) (string, error) {
	data, ok := unitPkg.Part(srcName)
	if !ok {
		return "", fmt.Errorf("media part %s missing from unit", srcName)
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(srcName), "."))
	if ext == "" {
		ext = "bin"
	}
	return m.placeMediaBytes(data, ext, mediaFamily(relType)), nil
}

// mediaFamily separates pictures from audio/video for output part naming,
// mirroring the family scheme used during extraction.
func mediaFamily(relType string) string {
	if relType == pptx.RelTypeImage {
		return "image"
	}
	return "media"
}

func (m *merger) placeMediaBytes(data []byte, ext, family string) string {
	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:]) + "." + ext
	if name, ok := m.media[key]; ok {
		return name
	}

	var name string
	if family == "image" {
		m.imageSeq++
		name = fmt.Sprintf("ppt/media/image%d.%s", m.imageSeq, ext)
	} else {
		m.mediaSeq++
		name = fmt.Sprintf("ppt/media/media%d.%s", m.mediaSeq, ext)
	}
	m.out.SetPart(name, data)
	m.out.SetDefault(ext, pptx.MediaContentType(ext))
	m.media[key] = name
	return name
}

// finalize synthesizes the presentation part, its rels, and the package
// rels around the accumulated slides and masters.
func (m *merger) finalize(w, h int64) *pptx.Package {
	var rels []pptx.Relationship
	var masterRIDs, slideRIDs []string

	rid := 0
	nextRID := func() string {
		rid++
		return fmt.Sprintf("rId%d", rid)
	}

	for _, name := range m.masterNames {
		id := nextRID()
		masterRIDs = append(masterRIDs, id)
		rels = append(rels, pptx.Relationship{
			ID: id, Type: pptx.RelTypeSlideMaster,
			Target: pptx.RelativeTarget("ppt/presentation.xml", name),
		})
	}
	for _, name := range m.slideNames {
		id := nextRID()
		slideRIDs = append(slideRIDs, id)
		rels = append(rels, pptx.Relationship{
			ID: id, Type: pptx.RelTypeSlide,
			Target: pptx.RelativeTarget("ppt/presentation.xml", name),
		})
	}

	m.out.SetPart("ppt/presentation.xml", pptx.PresentationXML(masterRIDs, slideRIDs, w, h))
	m.out.SetOverride("ppt/presentation.xml", pptx.ContentTypePresentation)
	m.out.SetRels("ppt/presentation.xml", rels)
	m.out.SetRels("", []pptx.Relationship{
		{ID: "rId1", Type: pptx.RelTypeOfficeDocument, Target: "ppt/presentation.xml"},
	})
	return m.out
}

// ancestryKey hashes the unit's layout/master/theme bytes and the media
// those parts reference. Byte-identical ancestry collapses to one copy;
// anything that differs, even by one byte, stays separate.
func ancestryKey(unitPkg *pptx.Package) (string, error) {
	hash := sha256.New()
	for _, name := range []string{unitLayout, unitMaster, unitTheme} {
		data, ok := unitPkg.Part(name)
		if !ok {
			return "", fmt.Errorf("ancestry part %s missing", name)
		}
		hash.Write([]byte(name))
		hash.Write(data)

		var mediaNames []string
		for _, rel := range unitPkg.Rels(name) {
			if rel.External() || rel.Type == pptx.RelTypeSlideLayout ||
				rel.Type == pptx.RelTypeSlideMaster || rel.Type == pptx.RelTypeTheme {
				continue
			}
			mediaNames = append(mediaNames, pptx.ResolveTarget(name, rel.Target))
		}
		sort.Strings(mediaNames)
		for _, mn := range mediaNames {
			data, ok := unitPkg.Part(mn)
			if !ok {
				return "", fmt.Errorf("ancestry media %s missing", mn)
			}
			hash.Write([]byte(mn))
			hash.Write(data)
		}
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func mimeExt(mime string) string {
	switch mime {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/gif":
		return "gif"
	default:
		return "bin"
	}
}

// pictureSlideXML builds a slide whose single shape is a picture covering
// the whole canvas, referencing the image through rId2.
func pictureSlideXML(w, h int64) []byte {
	const tmpl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/><p:pic><p:nvPicPr><p:cNvPr id="2" name="Slide Image"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr><p:blipFill><a:blip r:embed="rId2"/><a:stretch><a:fillRect/></a:stretch></p:blipFill><p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic></p:spTree></p:cSld></p:sld>`
	return []byte(fmt.Sprintf(tmpl, w, h))
}
