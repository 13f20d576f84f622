// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package markup extracts text and attribute values from parsed HTML using
// CSS selectors. Both *goquery.Document and *goquery.Selection satisfy Node.
package markup

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is anything that can be searched with a selector.
type Node interface {
	Find(selector string) *goquery.Selection
}

// Texts returns the trimmed, whitespace-collapsed text of every match,
// skipping empty ones.
func Texts(n Node, selector string) []string {
	var out []string
	n.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if t := Clean(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// Text returns the text of the first non-empty match, or "".
func Text(n Node, selector string) string {
	if ts := Texts(n, selector); len(ts) > 0 {
		return ts[0]
	}
	return ""
}

// Attrs returns attr of every match that carries it.
func Attrs(n Node, selector, attr string) []string {
	var out []string
	n.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	})
	return out
}

// Attr returns attr of the first match that carries it, or "".
func Attr(n Node, selector, attr string) string {
	if vs := Attrs(n, selector, attr); len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Meta returns the content of every <meta name="name"> tag, in document order.
func Meta(n Node, name string) []string {
	return Attrs(n, `meta[name="`+name+`"]`, "content")
}

// Clean collapses runs of whitespace to single spaces and trims the result.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Digits keeps only the ASCII digits of s and parses them. It reports
// false when s contains no digits.
func Digits(s string) (int, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}
