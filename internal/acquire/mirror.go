// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/pdiddy/harvest-engine/internal/httputil"
	"github.com/pdiddy/harvest-engine/internal/markup"
	"github.com/pdiddy/harvest-engine/pkg/types"
)

// PDFMagic is the header every PDF document starts with.
var PDFMagic = []byte("%PDF")

// RedirectExtractor pulls a redirect target out of a mirror's HTML
// response. Swap it when the mirror's markup changes.
type RedirectExtractor interface {
	Extract(body []byte, contentType string) (string, error)
}

// OnclickExtractor reads the first matching element's onclick handler,
// which holds the target as location.href='...'.
type OnclickExtractor struct {
	Selector string
}

// DefaultExtractor matches the mirror's download button.
var DefaultExtractor = OnclickExtractor{Selector: `#buttons a[onclick*=".pdf"], #buttons button[onclick*=".pdf"]`}

// Extract implements RedirectExtractor.
func (e OnclickExtractor) Extract(body []byte, contentType string) (string, error) {
	doc, err := httputil.ParseDocument(body, contentType)
	if err != nil {
		return "", err
	}
	onclick := markup.Attr(doc, e.Selector, "onclick")
	if onclick == "" {
		return "", ErrNoRedirect
	}
	target := NormalizeRedirect(onclick)
	if target == "" {
		return "", ErrNoRedirect
	}
	return target, nil
}

// NormalizeRedirect turns a script redirect such as
// "location.href='//host/file.pdf?download=true'" into an absolute https
// URL and drops the stray trailing quote naive extraction leaves behind.
func NormalizeRedirect(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "location.href="); i >= 0 {
		s = s[i+len("location.href="):]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "'")
	s = strings.TrimPrefix(s, `"`)
	if i := strings.IndexAny(s, `'"`); i >= 0 {
		s = s[:i]
	}
	if strings.HasPrefix(s, "//") {
		s = "https:" + s
	}
	return s
}

// MirrorResolver posts an identifier to a mirror-resolution service. The
// response is either the document itself, which is written straight to
// dest, or an HTML page whose redirect target is extracted.
type MirrorResolver struct {
	client    *httputil.Client
	base      *url.URL
	field     string
	extractor RedirectExtractor
}

// NewMirrorResolver returns a resolver for cfg. A nil extractor selects
// DefaultExtractor.
func NewMirrorResolver(f *httputil.Fetcher, cfg types.MirrorConfig, extractor RedirectExtractor) (*MirrorResolver, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, err
	}
	field := cfg.RequestField
	if field == "" {
		field = "request"
	}
	if extractor == nil {
		extractor = DefaultExtractor
	}
	return &MirrorResolver{
		client:    httputil.NewClient(f, cfg.URL),
		base:      base,
		field:     field,
		extractor: extractor,
	}, nil
}

// Resolve implements Resolver.
func (m *MirrorResolver) Resolve(ctx context.Context, id, dest string) (Resolution, error) {
	form := url.Values{
		"sci-hub-plugin-check": {""},
		m.field:                {id},
	}
	body, contentType, err := m.client.PostForm(ctx, "/", form)
	if err != nil {
		return Resolution{}, types.Skipf(types.SkipMirrorFailed, "mirror request for %s: %v", id, err)
	}

	if bytes.HasPrefix(body, PDFMagic) {
		if err := writeAtomic(dest, body); err != nil {
			return Resolution{}, types.Skipf(types.SkipMirrorFailed, "writing mirrored document: %v", err)
		}
		return Resolution{Materialized: true, Via: "mirror"}, nil
	}

	target, err := m.extractor.Extract(body, contentType)
	if err != nil {
		return Resolution{}, types.Skipf(types.SkipMirrorFailed, "mirror page for %s: %v", id, err)
	}
	if ref, err := url.Parse(target); err == nil && !ref.IsAbs() {
		target = m.base.ResolveReference(ref).String()
	}
	return Resolution{URL: target, Via: "mirror"}, nil
}
