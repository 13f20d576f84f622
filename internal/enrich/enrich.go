// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich completes article stubs with metadata missing from search
// listings: abstract, ordered authors with affiliations, and references.
package enrich

import (
	"context"
	"strings"

	"github.com/pdiddy/harvest-engine/pkg/types"
)

// CitationSeparator joins rendered citations in the result log.
const CitationSeparator = " | "

// Enricher fills in metadata on a stub. Implementations must leave the
// stub's ID and PDF URL untouched.
type Enricher interface {
	Enrich(ctx context.Context, stub *types.ArticleStub) error
}

// Noop is an Enricher that does nothing, used for sources whose listings
// are already complete.
type Noop struct{}

// Enrich implements Enricher.
func (Noop) Enrich(context.Context, *types.ArticleStub) error { return nil }

// Author is one entry of an ordered author list.
type Author struct {
	Name         string
	Affiliations []string
}

// ApplyAuthors records authors on stub. The first author's first
// affiliation becomes FirstAuthorAffiliation; with more than one author the
// last author's first affiliation becomes LastAuthorAffiliation. All
// distinct affiliations are kept in order of first appearance.
func ApplyAuthors(stub *types.ArticleStub, authors []Author) {
	stub.Authors, stub.Affiliations = nil, nil
	stub.FirstAuthor, stub.FirstAuthorAffiliation = "", ""
	stub.LastAuthor, stub.LastAuthorAffiliation = "", ""

	seen := make(map[string]bool)
	for _, a := range authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		stub.Authors = append(stub.Authors, name)
		for _, aff := range a.Affiliations {
			aff = strings.TrimSpace(aff)
			if aff == "" || seen[aff] {
				continue
			}
			seen[aff] = true
			stub.Affiliations = append(stub.Affiliations, aff)
		}
	}

	named := authors[:0:0]
	for _, a := range authors {
		if strings.TrimSpace(a.Name) != "" {
			named = append(named, a)
		}
	}
	if len(named) == 0 {
		return
	}
	stub.FirstAuthor = strings.TrimSpace(named[0].Name)
	stub.FirstAuthorAffiliation = firstAffiliation(named[0])
	if len(named) > 1 {
		last := named[len(named)-1]
		stub.LastAuthor = strings.TrimSpace(last.Name)
		stub.LastAuthorAffiliation = firstAffiliation(last)
	}
}

func firstAffiliation(a Author) string {
	for _, aff := range a.Affiliations {
		if aff = strings.TrimSpace(aff); aff != "" {
			return aff
		}
	}
	return ""
}

// Citation is one reference of an article.
type Citation struct {
	Text string
	ID   string
}

// FormatCitation renders c as "text (id)", or just the text when no id is
// known.
func FormatCitation(c Citation) string {
	text := strings.Join(strings.Fields(c.Text), " ")
	if c.ID == "" {
		return text
	}
	if text == "" {
		return "(" + c.ID + ")"
	}
	return text + " (" + c.ID + ")"
}

// FormatCitations renders every citation with FormatCitation.
func FormatCitations(cs []Citation) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		if s := FormatCitation(c); s != "" {
			out = append(out, s)
		}
	}
	return out
}
