package minisite

import (
	"net/http"
	"path"
	"strconv"
	"strings"

	"minisite-go/internal/database/sqlc"
	"minisite-go/internal/urlbag"
)

// Asset is one extracted file of a bundle together with its URL forms.
type Asset struct {
	Record  *sqlc.Asset
	Archive *sqlc.Archive
	Bag     urlbag.Bag
}

// NewAsset builds the domain asset for a stored record. archive may be nil.
func NewAsset(record *sqlc.Asset, archive *sqlc.Archive, rc urlbag.RequestContext, storage urlbag.StorageResolver) (*Asset, error) {
	bag, err := urlbag.New(record.Source, rc, storage)
	if err != nil {
		return nil, err
	}
	if record.Alias.Valid {
		if bag, err = bag.WithAlias(record.Alias.String); err != nil {
			return nil, err
		}
	}
	return &Asset{Record: record, Archive: archive, Bag: bag}, nil
}

// IsDocument reports whether the asset is an HTML page.
func (a *Asset) IsDocument() bool {
	switch strings.ToLower(path.Ext(a.Bag.Basename())) {
	case ".html", ".htm":
		return true
	}
	return false
}

// IsIndex reports whether the asset is the bundle's entry point.
func (a *Asset) IsIndex() bool {
	return a.Bag.Basename() == IndexFile && !strings.Contains(a.Bag.PathInArchive(), "/")
}

// Alias returns the asset's alias, if it has one.
func (a *Asset) Alias() (string, bool) {
	return a.Bag.Alias()
}

// URL returns where the asset is published: its alias when set, its file
// URL otherwise.
func (a *Asset) URL() string {
	if alias, ok := a.Bag.Alias(); ok {
		return alias
	}
	return a.Bag.URL()
}

// AbsoluteURL returns URL prefixed with the site's base URL.
func (a *Asset) AbsoluteURL() string {
	if alias, ok := a.Bag.AliasAbsolute(); ok {
		return alias
	}
	return a.Bag.URLAbsolute()
}

// MountURL returns the absolute URL of the prefix the asset's bundle is
// mounted under. ok is false for an asset without an alias.
func (a *Asset) MountURL() (string, bool) {
	return a.Bag.ParentAliasAbsolute()
}

// Headers returns the response headers the asset is delivered with.
func (a *Asset) Headers() http.Header {
	h := http.Header{}
	if a.IsDocument() {
		if a.Archive != nil && a.Archive.Language != "" {
			h.Set("Content-Language", a.Archive.Language)
		}
		h.Set("Content-Type", a.Record.Filemime+"; charset=UTF-8")
		return h
	}
	h.Set("Content-Type", a.Record.Filemime)
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Length", strconv.FormatInt(a.Record.Filesize, 10))
	return h
}

// CacheMaxAge returns how long, in seconds, the asset may be cached.
func (a *Asset) CacheMaxAge() int {
	return CacheMaxAge
}
