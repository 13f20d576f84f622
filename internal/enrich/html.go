// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/harvest-engine/internal/httputil"
	"github.com/pdiddy/harvest-engine/internal/markup"
	"github.com/pdiddy/harvest-engine/pkg/types"
)

// Selectors are fallbacks used when a detail page lacks citation_* meta tags.
type Selectors struct {
	Title    string
	Abstract string
}

// DefaultSelectors match HighWire-hosted preprint pages.
var DefaultSelectors = Selectors{
	Title:    "h1#page-title",
	Abstract: "div.abstract p, div.section.abstract p",
}

// HTMLEnricher reads a stub's detail page. It understands the HighWire
// citation_* meta tags most publisher platforms emit, where each
// citation_author is followed by its citation_author_institution tags.
type HTMLEnricher struct {
	fetcher   *httputil.Fetcher
	selectors Selectors
}

// NewHTMLEnricher returns an enricher using f for page fetches.
func NewHTMLEnricher(f *httputil.Fetcher, sel Selectors) *HTMLEnricher {
	return &HTMLEnricher{fetcher: f, selectors: sel}
}

// Enrich implements Enricher. Stubs without a detail URL are left alone.
func (e *HTMLEnricher) Enrich(ctx context.Context, stub *types.ArticleStub) error {
	if stub.DetailURL == "" {
		return nil
	}
	doc, err := e.fetcher.Document(ctx, stub.DetailURL)
	if err != nil {
		return fmt.Errorf("fetching detail page: %w", err)
	}
	FromDocument(doc, stub, e.selectors)
	return nil
}

// FromDocument applies the metadata found in doc to stub. A title already
// known from the listing is kept.
func FromDocument(doc *goquery.Document, stub *types.ArticleStub, sel Selectors) {
	if stub.Title == "" {
		stub.Title = firstNonEmpty(
			strings.Join(markup.Meta(doc, "citation_title"), " "),
			markup.Text(doc, sel.Title),
		)
	}
	if stub.Abstract == "" {
		abstract := markup.Meta(doc, "citation_abstract")
		if len(abstract) == 0 && sel.Abstract != "" {
			abstract = markup.Texts(doc, sel.Abstract)
		}
		stub.Abstract = markup.Clean(strings.Join(abstract, " "))
	}

	if authors := metaAuthors(doc); len(authors) > 0 {
		ApplyAuthors(stub, authors)
	}

	var refs []Citation
	for _, ref := range markup.Meta(doc, "citation_reference") {
		refs = append(refs, parseReference(ref))
	}
	if len(refs) > 0 {
		stub.Citations = FormatCitations(refs)
	}
}

func metaAuthors(doc *goquery.Document) []Author {
	var authors []Author
	doc.Find(`meta[name="citation_author"], meta[name="citation_author_institution"]`).Each(func(_ int, s *goquery.Selection) {
		content := markup.Clean(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		if s.AttrOr("name", "") == "citation_author" {
			authors = append(authors, Author{Name: content})
			return
		}
		if len(authors) > 0 {
			last := &authors[len(authors)-1]
			last.Affiliations = append(last.Affiliations, content)
		}
	})
	return authors
}

// parseReference reads a citation_reference value of the form
// "citation_title=...;citation_doi=...". Values without key=value pairs
// are used as the citation text verbatim.
func parseReference(v string) Citation {
	if !strings.Contains(v, "=") {
		return Citation{Text: v}
	}
	fields := make(map[string]string)
	for _, part := range strings.Split(v, ";") {
		k, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	c := Citation{
		Text: firstNonEmpty(fields["citation_title"], fields["citation_journal_title"]),
		ID:   firstNonEmpty(fields["citation_doi"], fields["citation_pmid"]),
	}
	if c.ID != "" && fields["citation_pmid"] == c.ID && fields["citation_doi"] == "" {
		c.ID = "PMID:" + c.ID
	}
	return c
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
