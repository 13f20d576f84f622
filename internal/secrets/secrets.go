// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: ncbi-api-key, mirror-url, openalex-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/harvest-engine/pkg/types"
)

// Recognized key file names.
const (
	NCBIAPIKey    = "ncbi-api-key"
	MirrorURL     = "mirror-url"
	OpenAlexEmail = "openalex-email"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory is not an error; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, log zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply fills unset credentials in cfg from loaded secrets. Values already
// present in cfg win. The NCBI key is set on every structured source in
// catalog that has none.
func Apply(s map[string]string, cfg *types.HarvestConfig, catalog map[string]types.SourceConfig) {
	if v := s[MirrorURL]; v != "" && cfg.Mirror.URL == "" {
		cfg.Mirror.URL = v
	}
	if v := s[OpenAlexEmail]; v != "" && cfg.Mirror.Email == "" {
		cfg.Mirror.Email = v
	}
	key := s[NCBIAPIKey]
	if key == "" {
		return
	}
	for domain, src := range catalog {
		if src.Structured == nil || src.Structured.APIKey != "" {
			continue
		}
		structured := *src.Structured
		structured.APIKey = key
		src.Structured = &structured
		catalog[domain] = src
	}
}
