package archive

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// IndexFile is the entry point every bundle must carry in its root directory.
	IndexFile = "index.html"

	// DefaultExtensions is the default allow-list of bundle file extensions.
	DefaultExtensions = "html htm js css png jpg gif svg pdf doc docx ppt pptx xls xlsx tif xml txt woff woff2 ttf eot ico"

	// DeniedExtensions can never be allowed, whatever the configuration says.
	DeniedExtensions = "exe scr bmp"

	// MaxPathCeiling is the hard limit for a fully composed storage path or alias.
	MaxPathCeiling = 2048

	uuidLength = 36
)

// DefaultStrayRootDirs lists top-level directories that archiving tools add
// on their own and that do not count as a bundle root.
var DefaultStrayRootDirs = []string{"__MACOSX"}

// Policy controls what a valid bundle may contain.
type Policy struct {
	AllowedExtensions    []string
	MaxPathLength        int
	AllowedStrayRootDirs []string

	// PathBudget is the longest MaxPathLength the storage layout leaves room
	// for. Zero means the budget of an empty scheme and asset dir.
	PathBudget int
}

// DefaultPolicy returns the policy used when nothing is configured: the
// default extension list and a path budget for "public://minisite/static".
func DefaultPolicy() Policy {
	return NewPolicy("public://", "minisite/static")
}

// NewPolicy returns the default policy with the path budget left by scheme
// and assetDir.
func NewPolicy(scheme, assetDir string) Policy {
	budget := MaxPathLength(scheme, assetDir)
	return Policy{
		AllowedExtensions:    NormalizeExtensions(DefaultExtensions),
		MaxPathLength:        budget,
		AllowedStrayRootDirs: append([]string(nil), DefaultStrayRootDirs...),
		PathBudget:           budget,
	}
}

// MaxPathLength computes how long an entry path inside an archive may be so
// that scheme + asset dir + "/" + UUID + "/" + path stays within MaxPathCeiling.
func MaxPathLength(scheme, assetDir string) int {
	return MaxPathCeiling - len(scheme) - len(assetDir) - 1 - uuidLength - 1
}

// NormalizeExtensions splits a space and/or comma separated extension list.
// Extensions are lower-cased, stripped of a leading dot and de-duplicated.
func NormalizeExtensions(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})

	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		ext := strings.ToLower(strings.TrimPrefix(f, "."))
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	return out
}

// Check rejects a policy that allows none or any of the always-denied
// extensions, or whose path length does not fit the path budget.
func (p Policy) Check() error {
	if len(p.AllowedExtensions) == 0 {
		return errors.New("no allowed extensions")
	}

	var found []string
	for _, ext := range p.AllowedExtensions {
		if isDenied("." + ext) {
			found = append(found, ext)
		}
	}
	if len(found) > 0 {
		return fmt.Errorf("extensions %s are not allowed", strings.Join(found, ", "))
	}

	if budget := p.budget(); p.MaxPathLength <= 0 || p.MaxPathLength > budget {
		return fmt.Errorf("max path length %d must be between 1 and %d", p.MaxPathLength, budget)
	}
	return nil
}

func (p Policy) budget() int {
	if p.PathBudget > 0 {
		return p.PathBudget
	}
	return MaxPathLength("", "")
}

// pathLimit is the path length Validate enforces. It never exceeds the budget,
// even for a policy that fails Check.
func (p Policy) pathLimit() int {
	if budget := p.budget(); p.MaxPathLength <= 0 || p.MaxPathLength > budget {
		return budget
	}
	return p.MaxPathLength
}

// AllowsExtension reports whether filename ends in one of the allowed
// extensions, ignoring case. Denied extensions are never allowed.
func (p Policy) AllowsExtension(filename string) bool {
	if isDenied(filename) {
		return false
	}
	lower := strings.ToLower(filename)
	for _, ext := range p.AllowedExtensions {
		if strings.HasSuffix(lower, "."+strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func isDenied(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range strings.Fields(DeniedExtensions) {
		if strings.HasSuffix(lower, "."+ext) {
			return true
		}
	}
	return false
}

func (p Policy) isStrayRootDir(name string) bool {
	for _, d := range p.AllowedStrayRootDirs {
		if d == name {
			return true
		}
	}
	return false
}
