// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package markup

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><head>
<meta name="citation_author" content="Ada Lovelace">
<meta name="citation_author" content="Charles Babbage">
</head><body>
<div id="summary">  1,234 Results
 for "cells" </div>
<a class="hit" href="/content/1">  First
  paper </a>
<a class="hit" href="/content/2">Second</a>
<a class="hit">No href</a>
<span class="empty">   </span>
</body></html>`

func parse(t *testing.T) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func TestTextsAndAttrs(t *testing.T) {
	doc := parse(t)
	assert.Equal(t, []string{"First paper", "Second", "No href"}, Texts(doc, "a.hit"))
	assert.Equal(t, []string{"/content/1", "/content/2"}, Attrs(doc, "a.hit", "href"))
	assert.Equal(t, "/content/1", Attr(doc, "a.hit", "href"))
	assert.Equal(t, "", Text(doc, "span.empty"))
	assert.Equal(t, "", Attr(doc, "a.missing", "href"))
}

func TestMeta(t *testing.T) {
	assert.Equal(t, []string{"Ada Lovelace", "Charles Babbage"}, Meta(parse(t), "citation_author"))
}

func TestDigits(t *testing.T) {
	n, ok := Digits(Text(parse(t), "#summary"))
	require.True(t, ok)
	assert.Equal(t, 1234, n)

	_, ok = Digits("no results")
	assert.False(t, ok)
}
