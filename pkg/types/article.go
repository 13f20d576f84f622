// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// ArticleStub is a normalized, partial article record produced while parsing
// a search page. It lives until its download attempt has been logged and is
// never persisted.
type ArticleStub struct {
	// ID is unique within one keyword's result set (DOI suffix, arXiv id,
	// PubMed id, or the last path segment of a portal URL).
	ID string `json:"id" yaml:"id"`

	// Source names the adapter that produced the stub.
	Source string `json:"source" yaml:"source"`

	// PDFURL is the direct full-text location. Empty when the stub needs
	// mirror resolution or carries a Skip marker.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// DetailURL is the landing page used for enrichment, if any.
	DetailURL string `json:"detail_url,omitempty" yaml:"detail_url,omitempty"`

	// NeedsMirror marks stubs whose source exposes only an identifier.
	NeedsMirror bool `json:"needs_mirror,omitempty" yaml:"needs_mirror,omitempty"`

	// Skip is set when the stub cannot be downloaded. It stays on the stub
	// so the failure shows up in the result log.
	Skip *SkipReason `json:"skip,omitempty" yaml:"skip,omitempty"`

	Title                  string   `json:"title" yaml:"title"`
	Abstract               string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Authors                []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Affiliations           []string `json:"affiliations,omitempty" yaml:"affiliations,omitempty"`
	FirstAuthor            string   `json:"first_author,omitempty" yaml:"first_author,omitempty"`
	FirstAuthorAffiliation string   `json:"first_author_affiliation,omitempty" yaml:"first_author_affiliation,omitempty"`
	LastAuthor             string   `json:"last_author,omitempty" yaml:"last_author,omitempty"`
	LastAuthorAffiliation  string   `json:"last_author_affiliation,omitempty" yaml:"last_author_affiliation,omitempty"`
	Citations              []string `json:"citations,omitempty" yaml:"citations,omitempty"`
}

// Enriched reports whether any detail metadata is present on the stub.
func (a ArticleStub) Enriched() bool {
	return len(a.Authors) > 0 || len(a.Affiliations) > 0 || len(a.Citations) > 0
}

// SkipKind classifies why an article was not downloaded.
type SkipKind string

const (
	SkipNoPDFLink     SkipKind = "no-pdf-link"
	SkipRecordMissing SkipKind = "record-missing"
	SkipEnrichFailed  SkipKind = "enrich-failed"
	SkipMirrorFailed  SkipKind = "mirror-failed"
)

// SkipReason is the error half of an item-level result. It implements error
// so callers can wrap and inspect it like any other error.
type SkipReason struct {
	Kind   SkipKind `json:"kind" yaml:"kind"`
	Detail string   `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Skipf builds a SkipReason with a formatted detail message.
func Skipf(kind SkipKind, format string, args ...any) *SkipReason {
	return &SkipReason{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func (r *SkipReason) Error() string {
	if r.Detail == "" {
		return string(r.Kind)
	}
	return string(r.Kind) + ": " + r.Detail
}

// Marker renders the reason the way it appears in the output-path column
// of the result log.
func (r *SkipReason) Marker() string {
	return "Error: " + strings.ReplaceAll(r.Error(), "\n", " ")
}
