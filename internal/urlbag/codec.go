// Package urlbag decodes storage paths of extracted bundle files and converts
// between storage paths, public URLs and aliases.
package urlbag

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

var (
	// ErrMalformedIdentity is returned for storage paths without exactly one UUID segment.
	ErrMalformedIdentity = errors.New("malformed identity")

	// ErrAliasMismatch is returned when an alias does not end with the asset's own path.
	ErrAliasMismatch = errors.New("alias does not match asset path")

	// ErrExternalMismatch is returned for URLs pointing at a host other than the base URL's.
	ErrExternalMismatch = errors.New("url points to another host")

	// ErrNoPath is returned when a URL carries no path component at all.
	ErrNoPath = errors.New("url does not contain a path")
)

var uuidPattern = regexp.MustCompile(`[a-f0-9]{8}-[a-f0-9]{4}-4[a-f0-9]{3}-[89ab][a-f0-9]{3}-[a-f0-9]{12}`)

// Identity is the decoded form of a storage path such as
// public://minisite/static/<uuid>/<root>/<path/in/archive>.
type Identity struct {
	AssetRoot     string // everything up to and including the UUID
	RootFolder    string // the bundle's single top-level folder
	PathInArchive string // path below RootFolder, may span several segments
	Basename      string // last segment of PathInArchive
}

// Decode splits a storage path around its UUID segment.
func Decode(storagePath string) (Identity, error) {
	locs := uuidPattern.FindAllStringIndex(storagePath, -1)
	if len(locs) != 1 {
		return Identity{}, fmt.Errorf("%w: %q has %d UUID segments", ErrMalformedIdentity, storagePath, len(locs))
	}

	end := locs[0][1]
	id := Identity{AssetRoot: storagePath[:end]}

	var segments []string
	for _, s := range strings.Split(storagePath[end:], "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) > 0 {
		id.RootFolder = segments[0]
		id.PathInArchive = strings.Join(segments[1:], "/")
	}
	if id.PathInArchive != "" {
		id.Basename = path.Base(id.PathInArchive)
	}

	return id, nil
}

// UUID returns the upload identifier embedded in AssetRoot.
func (id Identity) UUID() string {
	return uuidPattern.FindString(id.AssetRoot)
}

// StoragePath recomposes the storage path the identity was decoded from.
func (id Identity) StoragePath() string {
	p := id.AssetRoot
	if id.RootFolder != "" {
		p += "/" + id.RootFolder
	}
	if id.PathInArchive != "" {
		p += "/" + id.PathInArchive
	}
	return p
}

// IsUUID reports whether s has the shape of a version 4 UUID as used for uploads.
func IsUUID(s string) bool {
	loc := uuidPattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}
