// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the harvest-engine pipeline:
// sites and keywords read from input files, article stubs produced by search
// adapters, pages returned during pagination, download outcomes, completion
// records, and the configuration for every stage.
package types

// Site is one entry of the sites input file.
type Site struct {
	// Name is a human label (e.g. "PubMed").
	Name string `json:"name" yaml:"name"`

	// URL is the site's base URL; its registered domain selects the source.
	URL string `json:"url" yaml:"url"`
}

// SearchPage is one page of results returned by a search adapter.
type SearchPage struct {
	// Stubs are the normalized article records parsed from the page, in
	// source order. Adapters may include ids already seen on earlier pages;
	// the paginator drops them.
	Stubs []ArticleStub

	// Total is the result count reported by the source. Only meaningful
	// when HasTotal is set.
	Total int

	// HasTotal reports whether this page carried a total count.
	HasTotal bool
}

// WithTotal returns a copy of p reporting n as the total result count.
func (p SearchPage) WithTotal(n int) SearchPage {
	p.Total = n
	p.HasTotal = true
	return p
}
