// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/harvest-engine/pkg/types"
)

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadSites(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []types.Site
	}{
		{
			name:    "bracketed list",
			content: "['PubMed:https://pubmed.ncbi.nlm.nih.gov', 'arXiv:https://arxiv.org']\n",
			want: []types.Site{
				{Name: "PubMed", URL: "https://pubmed.ncbi.nlm.nih.gov"},
				{Name: "arXiv", URL: "https://arxiv.org"},
			},
		},
		{
			name:    "one per line",
			content: "# sources\nbioRxiv https://www.biorxiv.org\n\nmedRxiv,https://www.medrxiv.org\narXiv:https://arxiv.org\nhttps://www.biorxiv.org\narxiv.org\n",
			want: []types.Site{
				{Name: "bioRxiv", URL: "https://www.biorxiv.org"},
				{Name: "medRxiv", URL: "https://www.medrxiv.org"},
				{Name: "arXiv", URL: "https://arxiv.org"},
				{Name: "biorxiv.org", URL: "https://www.biorxiv.org"},
				{Name: "arxiv.org", URL: "https://arxiv.org"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadSites(writeInput(t, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadSites_Errors(t *testing.T) {
	_, err := ReadSites(writeInput(t, "\n# nothing here\n"))
	assert.ErrorIs(t, err, ErrNoInput)

	_, err = ReadSites(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, ErrNoInput)

	_, err = ReadSites("")
	assert.ErrorIs(t, err, ErrNoInput)

	_, err = ReadSites(writeInput(t, "broken http://\n"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoInput)
}

func TestReadKeywords(t *testing.T) {
	got, err := ReadKeywords(writeInput(t, "'graph neural networks'\n\n\"tau protein\"\n  alzheimer's disease  \n# comment\n''\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"graph neural networks", "tau protein", "alzheimer's disease"}, got)

	_, err = ReadKeywords(writeInput(t, "   \n"))
	assert.ErrorIs(t, err, ErrNoInput)

	_, err = ReadKeywords(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, ErrNoInput)

	_, err = ReadKeywords("")
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestAwaitOperator(t *testing.T) {
	var out bytes.Buffer
	AwaitOperator(strings.NewReader("\n"), &out, "No keywords found.")
	assert.Contains(t, out.String(), "No keywords found.")
	assert.Contains(t, out.String(), "Press Enter")

	out.Reset()
	AwaitOperator(strings.NewReader(""), &out, "eof returns")
	assert.Contains(t, out.String(), "eof returns")
}
