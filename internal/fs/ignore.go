package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// defaultIgnorePatterns are left behind by macOS archiving tools and are never
// registered as assets.
var defaultIgnorePatterns = []string{"__MACOSX/", ".DS_Store", "._*"}

// ignoreRule is one parsed pattern.
type ignoreRule struct {
	glob     string
	anchored bool // matched against the whole relative path instead of the base name
	dirOnly  bool // only matches directories
}

// IgnoreMatcher decides which extracted files are left out of the asset
// registry. A pattern is a path.Match glob:
//
//	*.map      base name of any file or directory
//	drafts/    directories only
//	site/tmp   the whole slash-separated path below the extraction root
//
// A leading "/" is dropped; any other "/" anchors the pattern.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher parses patterns. Blank patterns are skipped; malformed
// globs are an error.
func NewIgnoreMatcher(patterns []string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}
	for _, raw := range patterns {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}

		var rule ignoreRule
		if strings.HasSuffix(p, "/") {
			rule.dirOnly = true
			p = strings.TrimRight(p, "/")
		}
		p = strings.TrimPrefix(p, "/")
		if p == "" {
			return nil, fmt.Errorf("ignore pattern %q matches nothing", raw)
		}
		rule.anchored = strings.Contains(p, "/")
		rule.glob = p

		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", raw, err)
		}
		m.rules = append(m.rules, rule)
	}
	return m, nil
}

// Match reports whether rel, a path relative to the extraction root, is
// ignored. isDir tells whether rel names a directory.
func (m *IgnoreMatcher) Match(rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)
	if rel == "" || rel == "." {
		return false
	}
	base := path.Base(rel)

	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		subject := base
		if r.anchored {
			subject = rel
		}
		// Globs were checked in NewIgnoreMatcher.
		if ok, _ := path.Match(r.glob, subject); ok {
			return true
		}
	}
	return false
}

// ReadIgnoreFile returns the patterns in an ignore file, one per line.
// Blank lines and lines starting with '#' are skipped.
func ReadIgnoreFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file %s: %w", name, err)
	}
	return patterns, nil
}
