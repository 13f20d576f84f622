// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/harvest-engine/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "ncbi-api-key", "  abc123  \n")
				writeFile(t, dir, "mirror-url", "https://mirror.example.org")
				writeFile(t, dir, "openalex-email", "user@example.com\n")
				return dir
			},
			want: map[string]string{
				"ncbi-api-key":   "abc123",
				"mirror-url":     "https://mirror.example.org",
				"openalex-email": "user@example.com",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files and dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "ncbi-api-key", "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				writeFile(t, dir, ".hidden-key", "secret")
				return dir
			},
			want: map[string]string{
				"ncbi-api-key": "valid-key",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "mirror-url", "https://m")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"mirror-url": "https://m",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), zerolog.Nop())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply(t *testing.T) {
	catalog := map[string]types.SourceConfig{
		"nih.gov": {Domain: "nih.gov", Kind: types.KindStructuredAPI, Structured: &types.StructuredSource{Database: "pubmed"}},
		"keyed":   {Domain: "keyed", Kind: types.KindStructuredAPI, Structured: &types.StructuredSource{APIKey: "own"}},
		"arxiv":   {Domain: "arxiv.org", Kind: types.KindAggregatorAPI, Aggregator: &types.AggregatorSource{}},
	}
	original := catalog["nih.gov"].Structured
	cfg := types.HarvestConfig{Mirror: types.MirrorConfig{Email: "set@example.org"}}

	Apply(map[string]string{
		NCBIAPIKey:    "k",
		MirrorURL:     "https://mirror.example.org",
		OpenAlexEmail: "other@example.org",
	}, &cfg, catalog)

	assert.Equal(t, "https://mirror.example.org", cfg.Mirror.URL)
	assert.Equal(t, "set@example.org", cfg.Mirror.Email)
	assert.Equal(t, "k", catalog["nih.gov"].Structured.APIKey)
	assert.Empty(t, original.APIKey, "catalog entries are copied, not mutated in place")
	assert.Equal(t, "own", catalog["keyed"].Structured.APIKey)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
