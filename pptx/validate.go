package pptx

import (
	"fmt"
	"strings"
)

// Validate checks that the package is internally closed: every internal
// relationship target resolves to a packaged part, every relationship-id
// reference inside part XML resolves in that part's rels table, and every
// part carries a content type. This is the self-containment invariant for
// extracted units and the final self-check before an assembly is published.
func (p *Package) Validate() error {
	var problems []string

	owners := append([]string{""}, p.order...)
	for _, owner := range owners {
		for _, rel := range p.rels[owner] {
			if rel.External() {
				continue
			}
			target := ResolveTarget(owner, rel.Target)
			if !p.HasPart(target) {
				problems = append(problems, fmt.Sprintf("%s: relationship %s -> %s has no part", ownerLabel(owner), rel.ID, target))
			}
		}
	}

	for _, name := range p.order {
		if !strings.HasSuffix(name, ".xml") {
			continue
		}
		rels := p.rels[name]
		for _, id := range RelIDRefs(p.parts[name]) {
			if _, ok := RelByID(rels, id); !ok {
				problems = append(problems, fmt.Sprintf("%s: references %s which is not in its rels table", name, id))
			}
		}
	}

	for _, name := range p.order {
		if p.ContentType(name) == "" {
			problems = append(problems, fmt.Sprintf("%s: no content type registered", name))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("package validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

func ownerLabel(owner string) string {
	if owner == "" {
		return "package"
	}
	return owner
}
