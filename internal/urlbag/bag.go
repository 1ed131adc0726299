package urlbag

import (
	"fmt"
	"strings"
)

// Bag holds every URL form of one extracted file: its storage URI, its
// public file URL and, once a parent alias prefix is known, its alias.
// A Bag is a value; the With* methods return modified copies.
type Bag struct {
	uri       string
	id        Identity
	baseURL   string
	storage   StorageResolver
	parent    string
	hasParent bool
}

// New decodes uri and returns a Bag without an alias.
func New(uri string, rc RequestContext, storage StorageResolver) (Bag, error) {
	id, err := Decode(uri)
	if err != nil {
		return Bag{}, err
	}
	return Bag{
		uri:     uri,
		id:      id,
		baseURL: rc.BaseURL(),
		storage: storage,
	}, nil
}

func (b Bag) URI() string { return b.uri }
func (b Bag) RootDir() string { return b.id.RootFolder }
func (b Bag) PathInArchive() string { return b.id.PathInArchive }
func (b Bag) AssetDir() string { return b.id.AssetRoot }
func (b Bag) Basename() string { return b.id.Basename }
func (b Bag) Storage() StorageResolver { return b.storage }

// URL returns the root-relative public URL of the file itself.
func (b Bag) URL() string {
	if b.storage != nil {
		if u, ok := b.storage.URL(b.uri); ok {
			return u
		}
	}
	return b.uri
}

// URLAbsolute returns URL prefixed with the base URL.
func (b Bag) URLAbsolute() string {
	return ToAbsolute(b.URL(), b.baseURL, b.storage)
}

// Alias returns parentPrefix/rootFolder/pathInArchive. ok is false when no
// parent alias has been set.
func (b Bag) Alias() (alias string, ok bool) {
	if !b.hasParent {
		return "", false
	}
	return b.parent + "/" + b.id.RootFolder + "/" + b.id.PathInArchive, true
}

// AliasAbsolute returns Alias prefixed with the base URL.
func (b Bag) AliasAbsolute() (string, bool) {
	alias, ok := b.Alias()
	if !ok {
		return "", false
	}
	return ToAbsolute(alias, b.baseURL, b.storage), true
}

// ParentAlias returns the alias prefix, normalized to a local path.
func (b Bag) ParentAlias() (string, bool) {
	return b.parent, b.hasParent
}

// ParentAliasAbsolute returns ParentAlias prefixed with the base URL.
func (b Bag) ParentAliasAbsolute() (string, bool) {
	if !b.hasParent {
		return "", false
	}
	return ToAbsolute(b.parent, b.baseURL, b.storage), true
}

// WithParentAlias returns a copy of b mounted under prefix. The prefix may be
// a relative path, a local path or an absolute URL on the base URL's host.
// An empty prefix mounts the bundle at the site root.
func (b Bag) WithParentAlias(prefix string) (Bag, error) {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		b.parent, b.hasParent = "", true
		return b, nil
	}

	local, err := ToLocal(prefix, b.baseURL, b.storage)
	if err != nil {
		return Bag{}, fmt.Errorf("setting parent alias: %w", err)
	}
	b.parent, b.hasParent = strings.TrimRight(local, "/"), true
	return b, nil
}

// WithAlias returns a copy of b whose parent alias is recovered from a full
// alias. The alias must end with rootFolder/pathInArchive.
func (b Bag) WithAlias(alias string) (Bag, error) {
	suffix := b.id.PathInArchive
	if !strings.HasSuffix(alias, suffix) {
		return Bag{}, fmt.Errorf("%w: %q does not end with %q", ErrAliasMismatch, alias, suffix)
	}

	var segments []string
	for _, s := range strings.Split(strings.TrimSuffix(alias, suffix), "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 || segments[len(segments)-1] != b.id.RootFolder {
		return Bag{}, fmt.Errorf("%w: %q does not contain root folder %q", ErrAliasMismatch, alias, b.id.RootFolder)
	}
	segments = segments[:len(segments)-1]

	return b.WithParentAlias(strings.Join(segments, "/"))
}
