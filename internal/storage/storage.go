// Package storage maps storage URIs such as public://minisite/static/x onto a
// local directory and onto the URL prefix the directory is served under.
package storage

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// DefaultScheme is the scheme extracted bundles are stored under.
const DefaultScheme = "public"

// Resolver is a single-scheme storage resolver.
//
//	public://minisite/static/<uuid>/site/index.html
//	  -> <dir>/minisite/static/<uuid>/site/index.html   (LocalPath)
//	  -> <urlPrefix>/minisite/static/<uuid>/site/index.html   (URL)
type Resolver struct {
	scheme    string
	dir       string
	urlPrefix string
}

// New creates a resolver for scheme rooted at dir and served under urlPrefix.
func New(scheme, dir, urlPrefix string) *Resolver {
	prefix := "/" + strings.Trim(urlPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	return &Resolver{
		scheme:    scheme,
		dir:       dir,
		urlPrefix: prefix,
	}
}

// Scheme returns the scheme handled by r, e.g. "public".
func (r *Resolver) Scheme() string {
	return r.scheme
}

// Dir returns the local directory backing the scheme.
func (r *Resolver) Dir() string {
	return r.dir
}

// URLPrefix returns the root-relative URL prefix files are served under.
func (r *Resolver) URLPrefix() string {
	return r.urlPrefix
}

// IsLocalScheme reports whether scheme is the one handled by r.
func (r *Resolver) IsLocalScheme(scheme string) bool {
	return scheme == r.scheme
}

// URI returns the storage URI for a slash-separated path relative to Dir.
func (r *Resolver) URI(rel string) string {
	return r.scheme + "://" + strings.TrimLeft(filepath.ToSlash(rel), "/")
}

// target returns the path part of uri, or false if uri is not ours.
func (r *Resolver) target(uri string) (string, bool) {
	return strings.CutPrefix(uri, r.scheme+"://")
}

// URL maps a storage URI to its root-relative public URL. Path segments are
// percent-encoded.
func (r *Resolver) URL(uri string) (string, bool) {
	rel, ok := r.target(uri)
	if !ok {
		return "", false
	}
	segments := strings.Split(strings.TrimLeft(rel, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return r.urlPrefix + "/" + strings.Join(segments, "/"), true
}

// LocalPath maps a storage URI to a path on disk. URIs that would resolve
// outside Dir are rejected.
func (r *Resolver) LocalPath(uri string) (string, error) {
	rel, ok := r.target(uri)
	if !ok {
		return "", fmt.Errorf("not a %s:// uri: %s", r.scheme, uri)
	}
	return r.join(rel)
}

// FromURL maps a root-relative URL path below URLPrefix back to its storage
// URI. The path is expected to be decoded already.
func (r *Resolver) FromURL(urlPath string) (string, bool) {
	rel, ok := strings.CutPrefix(urlPath, r.urlPrefix+"/")
	if !ok {
		return "", false
	}
	clean := path.Clean("/" + rel)
	if clean == "/" {
		return "", false
	}
	return r.URI(clean), true
}

func (r *Resolver) join(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash("/" + rel))
	full := filepath.Join(r.dir, clean)
	if full != filepath.Clean(r.dir) && !strings.HasPrefix(full, filepath.Clean(r.dir)+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes storage directory", rel)
	}
	return full, nil
}
