// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/pdiddy/harvest-engine/pkg/types"
)

// ErrNoInput means a sites or keywords file is unset, missing, or holds
// nothing to process.
var ErrNoInput = errors.New("no input")

// ReadSites parses a sites file. Two layouts are accepted: a bracketed
// list of quoted "name:url" entries on one line, or one site per line as
// "name url", "name,url", "name:url", or a bare URL. Blank lines and lines
// starting with '#' are ignored.
func ReadSites(path string) ([]types.Site, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no sites file given", ErrNoInput)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading sites file: %v", ErrNoInput, err)
	}

	var entries []string
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		entries = strings.Split(strings.TrimSuffix(strings.TrimPrefix(text, "["), "]"), ",")
	} else {
		entries = strings.Split(text, "\n")
	}

	var sites []types.Site
	for _, e := range entries {
		e = unquote(strings.TrimSpace(e))
		if e == "" || strings.HasPrefix(e, "#") {
			continue
		}
		site, err := parseSite(e)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("%w: %s lists no sites", ErrNoInput, path)
	}
	return sites, nil
}

func parseSite(entry string) (types.Site, error) {
	var name, raw string
	switch {
	case strings.HasPrefix(entry, "http://") || strings.HasPrefix(entry, "https://"):
		raw = entry
	case strings.ContainsAny(entry, " \t,"):
		fields := strings.FieldsFunc(entry, func(r rune) bool { return r == ' ' || r == '\t' || r == ',' })
		name, raw = fields[0], strings.Join(fields[1:], "")
	default:
		var ok bool
		name, raw, ok = strings.Cut(entry, ":")
		if !ok {
			raw = entry
			name = ""
		}
	}

	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + strings.TrimLeft(raw, "/")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return types.Site{}, fmt.Errorf("invalid site entry %q", entry)
	}
	if name == "" {
		name = strings.TrimPrefix(u.Hostname(), "www.")
	}
	return types.Site{Name: strings.TrimSpace(name), URL: raw}, nil
}

// ReadKeywords parses a keywords file: one term or identifier per line,
// with surrounding single or double quotes removed. Blank lines and lines
// starting with '#' are ignored.
func ReadKeywords(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no keywords file given", ErrNoInput)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading keywords file: %v", ErrNoInput, err)
	}
	defer f.Close()

	var keywords []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if kw := strings.TrimSpace(unquote(line)); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading keywords file: %w", err)
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("%w: %s lists no keywords", ErrNoInput, path)
	}
	return keywords, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// AwaitOperator reports msg on w and blocks until a line (or EOF) arrives
// on r. Used when input is missing so an operator sees the problem before
// the process exits.
func AwaitOperator(r io.Reader, w io.Writer, msg string) {
	fmt.Fprintf(w, "%s\nPress Enter to continue.\n", msg)
	bufio.NewReader(r).ReadString('\n')
}
