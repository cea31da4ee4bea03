// Package grouper turns a flat, relevance-ordered list of knowledge-base hits
// into one citation-ready context block per legislative work.
package grouper

import (
	"fmt"
	"html"
	"strings"

	"kb-agent/pkg/kb"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Group partitions hits by work FRBR URI in first-seen order, keeps only
// provision portions, and renders one block per work that still has any.
// Blocks are numbered from 1 over emitted blocks only. An empty or fully
// filtered input yields an empty, non-nil slice.
func Group(hits []kb.Hit) []string {
	groups := orderedmap.New[string, []kb.Hit]()
	for _, hit := range hits {
		uri := hit.Metadata.WorkFRBRURI
		existing, _ := groups.Get(uri)
		groups.Set(uri, append(existing, hit))
	}

	documents := make([]string, 0, groups.Len())
	for pair := groups.Oldest(); pair != nil; pair = pair.Next() {
		provisions := filterProvisions(pair.Value)
		if len(provisions) == 0 {
			continue
		}
		documents = append(documents, RenderBlock(len(documents)+1, provisions))
	}

	return documents
}

func filterProvisions(hits []kb.Hit) []kb.Hit {
	out := make([]kb.Hit, 0, len(hits))
	for _, hit := range hits {
		if hit.Metadata.PortionType == kb.PortionTypeProvision {
			out = append(out, hit)
		}
	}
	return out
}

// RenderBlock formats one document block. Header metadata comes from the
// first hit; missing metadata renders as an empty value.
func RenderBlock(n int, hits []kb.Hit) string {
	first := hits[0].Metadata

	lines := []string{
		fmt.Sprintf("# Document %d", n),
		"title: " + first.Title,
		"work_frbr_uri: " + first.WorkFRBRURI,
		"date: " + first.ExpressionDate,
		"public_url: " + first.PublicURL,
		"",
	}

	for _, hit := range hits {
		lines = append(lines,
			"",
			fmt.Sprintf(`<portion id="%s" title="%s">`,
				html.EscapeString(hit.Metadata.PortionID),
				html.EscapeString(hit.Metadata.PortionTitle)),
			hit.Content.Text,
			"</portion>",
		)
	}

	return strings.Join(lines, "\n")
}
