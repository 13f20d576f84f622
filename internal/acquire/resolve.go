// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// IDKind classifies an article identifier as it appears in a keyword file
// or a stub.
type IDKind int

const (
	KindUnknown IDKind = iota
	KindArxiv
	KindDOI
	KindPMID
	KindPreprint
	KindURL
)

var kindNames = [...]string{"unknown", "arxiv", "doi", "pmid", "preprint", "url"}

func (k IDKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ArticleID is a classified identifier. Value has any "arXiv:", "doi:" or
// "PMID:" prefix removed.
type ArticleID struct {
	Kind  IDKind
	Value string
}

// idPatterns are tried in order; the first submatch is the normalized value.
var idPatterns = []struct {
	kind IDKind
	re   *regexp.Regexp
}{
	{KindArxiv, regexp.MustCompile(`^(?i:arXiv:)?(\d{4}\.\d{4,5}(?:v\d+)?)$`)},
	{KindDOI, regexp.MustCompile(`^(?i:doi:)?(10\.\d{4,9}/\S+)$`)},
	{KindPMID, regexp.MustCompile(`^(?i:PMID:)?(\d{1,9})$`)},
	// bioRxiv/medRxiv landing-page ids, e.g. 2020.01.01.123456v1.
	{KindPreprint, regexp.MustCompile(`^(\d{4}\.\d{2}\.\d{2}\.\d{5,}(?:v\d+)?)$`)},
}

var (
	versionSuffix = regexp.MustCompile(`v\d+$`)
	unsafeChars   = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// ParseID classifies raw.
func ParseID(raw string) ArticleID {
	raw = strings.TrimSpace(raw)
	for _, p := range idPatterns {
		if m := p.re.FindStringSubmatch(raw); m != nil {
			return ArticleID{Kind: p.kind, Value: m[1]}
		}
	}
	if u, err := url.Parse(raw); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return ArticleID{Kind: KindURL, Value: raw}
	}
	return ArticleID{Kind: KindUnknown, Value: raw}
}

// DOI returns the registered DOI for ids that have one. arXiv and
// preprint versions are dropped since DOIs name the work, not a revision.
func (a ArticleID) DOI() (string, bool) {
	switch a.Kind {
	case KindDOI:
		return a.Value, true
	case KindArxiv:
		return "10.48550/arXiv." + versionSuffix.ReplaceAllString(a.Value, ""), true
	case KindPreprint:
		return "10.1101/" + versionSuffix.ReplaceAllString(a.Value, ""), true
	}
	return "", false
}

// Stem returns a filesystem-safe file name without extension. Ids with
// nothing usable in them hash to "id-<16 hex digits>".
func (a ArticleID) Stem() string {
	var s string
	switch a.Kind {
	case KindArxiv, KindPMID, KindPreprint:
		return a.Value
	case KindURL:
		if u, err := url.Parse(a.Value); err == nil {
			base := path.Base(u.Path)
			s = strings.TrimSuffix(base, path.Ext(base))
		}
	default:
		s = a.Value
	}
	s = strings.Trim(unsafeChars.ReplaceAllString(s, "-"), "-.")
	if s == "" {
		h := sha256.Sum256([]byte(a.Value))
		return fmt.Sprintf("id-%x", h[:8])
	}
	return s
}

// FileName returns "<stem>.pdf" for an article id.
func FileName(id string) string {
	return ParseID(id).Stem() + ".pdf"
}
