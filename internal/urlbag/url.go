package urlbag

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// StorageResolver knows which URI schemes denote local storage and how a
// storage URI is exposed over HTTP.
type StorageResolver interface {
	// IsLocalScheme reports whether scheme (without "://") is a local storage scheme.
	IsLocalScheme(scheme string) bool

	// URL maps a storage URI to its root-relative public URL, e.g.
	// public://minisite/x.html -> /files/minisite/x.html. ok is false for
	// anything that is not a storage URI.
	URL(uri string) (string, bool)
}

// RequestContext supplies request-scoped values.
type RequestContext interface {
	// BaseURL returns the site's base URL, e.g. http://example.com or http://example.com/subdir.
	BaseURL() string
}

// FixedContext is a RequestContext with a constant base URL.
type FixedContext string

func (c FixedContext) BaseURL() string { return string(c) }

// externalProtocols are the schemes a link may use and still count as an
// external URL. Anything else with a colon (javascript:, public://) is not.
var externalProtocols = map[string]bool{
	"http": true, "https": true, "ftp": true, "ftps": true, "sftp": true, "ssh": true,
	"mailto": true, "tel": true, "telnet": true, "irc": true, "news": true, "nntp": true,
	"rtsp": true, "webcal": true, "feed": true,
}

// IsExternal reports whether u is an absolute URL with an external protocol
// or a scheme-relative URL.
func IsExternal(u string) bool {
	if strings.HasPrefix(u, "//") {
		return true
	}
	colon := strings.Index(u, ":")
	if colon <= 0 || strings.ContainsAny(u[:colon], "/?#") {
		return false
	}
	return externalProtocols[strings.ToLower(u[:colon])]
}

// IsRoot reports whether u is a bundle-root relative URL ("/x" or "./x").
func IsRoot(u string) bool {
	return !IsExternal(u) && (strings.HasPrefix(u, "./") || strings.HasPrefix(u, "/"))
}

// IsRelative reports whether u climbs up with "../".
func IsRelative(u string) bool {
	return strings.HasPrefix(u, "../")
}

// IsIndex reports whether u points at a file named index.
func IsIndex(u, index string) bool {
	return path.Base(u) == index
}

// ExtractPath returns u without its query string and fragment.
func ExtractPath(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

// RootToRelative rewrites a root relative URL to prefix/parent/url. Any other URL is returned as is.
func RootToRelative(rootURL, parent, prefix string) string {
	if !IsRoot(rootURL) {
		return rootURL
	}

	u := strings.TrimPrefix(rootURL, "./")
	if u == rootURL {
		u = strings.TrimPrefix(rootURL, "/")
	}

	var parts []string
	if prefix != "" {
		parts = append(parts, prefix)
	}
	if parent != "" {
		parts = append(parts, parent)
	}
	parts = append(parts, u)

	return strings.Join(parts, "/")
}

// RelativeToRoot anchors u below parent. All "../" segments are dropped, so
// every relative reference is taken to point inside the bundle. When parent
// is a storage URI the result goes through the storage URL mapping. The
// result is URL-decoded once and always starts with a single "/".
//
// URLs already anchored below parent are returned unchanged.
func RelativeToRoot(u, parent string, storage StorageResolver) string {
	if IsExternal(u) {
		return u
	}

	root := "/" + strings.TrimLeft(mapStorage(strings.TrimRight(parent, "/"), storage), "/")
	if decoded, err := url.PathUnescape(root); err == nil {
		root = decoded
	}
	if root != "/" && (u == root || strings.HasPrefix(u, root+"/")) {
		return u
	}

	if !IsRelative(u) {
		if strings.HasPrefix(u, "./") {
			u = u[2:]
		} else if strings.HasPrefix(u, "/") {
			u = u[1:]
		}
	}

	u = strings.ReplaceAll(u, "../", "")
	u = strings.TrimRight(parent, "/") + "/" + strings.TrimLeft(u, "/")
	u = mapStorage(u, storage)
	if decoded, err := url.PathUnescape(u); err == nil {
		u = decoded
	}

	return "/" + strings.TrimLeft(u, "/")
}

func mapStorage(u string, storage StorageResolver) string {
	if storage == nil {
		return u
	}
	if mapped, ok := storage.URL(u); ok {
		return mapped
	}
	return u
}

// schemeOf returns the scheme of a "scheme://..." string, or "".
func schemeOf(u string) string {
	i := strings.Index(u, "://")
	if i <= 0 {
		return ""
	}
	scheme := u[:i]
	for _, r := range scheme {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return ""
		}
	}
	return scheme
}

func isStorageURI(u string, storage StorageResolver) bool {
	scheme := schemeOf(u)
	return scheme != "" && storage != nil && storage.IsLocalScheme(scheme)
}

// ToLocal converts an absolute, scheme-relative or host-relative URL into a
// host-local path starting with "/". Storage URIs are returned unchanged.
// The base URL's own path is stripped, so with base http://example.com/subdir
// the URL http://example.com/subdir/a becomes /a.
func ToLocal(rawURL, baseURL string, storage StorageResolver) (string, error) {
	if IsExternal(rawURL) && !externalIsLocal(rawURL, baseURL) {
		return "", fmt.Errorf("%w: %s", ErrExternalMismatch, rawURL)
	}

	if isStorageURI(rawURL, storage) {
		return rawURL, nil
	}

	p := ExtractPath(rawURL)
	if IsExternal(p) {
		parsed, err := url.Parse(p)
		if err != nil {
			return "", fmt.Errorf("parsing %q: %w", rawURL, err)
		}
		p = parsed.Path
	}
	if p == "" {
		return "", fmt.Errorf("%w: %q", ErrNoPath, rawURL)
	}

	if basePath := pathOf(baseURL); basePath != "" && basePath != "/" {
		if p == basePath || strings.HasPrefix(p, basePath+"/") {
			p = strings.TrimPrefix(p, basePath)
		}
	}

	return "/" + strings.TrimLeft(p, "/"), nil
}

// ToAbsolute converts a local path or storage URI into an absolute URL.
// External URLs are returned unchanged.
func ToAbsolute(u, baseURL string, storage StorageResolver) string {
	if IsExternal(u) {
		return u
	}
	base := strings.TrimRight(baseURL, "/")
	if isStorageURI(u, storage) {
		if mapped, ok := storage.URL(u); ok {
			return base + "/" + strings.TrimLeft(mapped, "/")
		}
	}
	return base + "/" + strings.TrimLeft(u, "/")
}

// externalIsLocal reports whether an external URL points below the base URL.
func externalIsLocal(rawURL, baseURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" || u.Host == "" {
		return false
	}
	if !strings.EqualFold(u.Host, base.Host) {
		return false
	}
	basePath := strings.TrimRight(base.Path, "/")
	if basePath == "" {
		return true
	}
	return u.Path == basePath || strings.HasPrefix(strings.ToLower(u.Path), strings.ToLower(basePath)+"/")
}

func pathOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return strings.TrimRight(u.Path, "/")
}
