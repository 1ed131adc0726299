package archive

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFileList is returned when the archive library reports entries that
// cannot form a tree, e.g. "x" listed as a file and "x/y" listed under it.
var ErrInvalidFileList = errors.New("invalid file list")

// Node is a single entry of an archive tree: either a *File or a *Dir.
type Node interface {
	// Path returns the full entry path as reported by the archive.
	Path() string
	node()
}

// File is a leaf of the archive tree.
type File struct {
	path string
}

func (f *File) Path() string { return f.path }
func (*File) node()          {}

// Dir is a directory of the archive tree. Children keep the order in which
// they were first seen in the entry list.
type Dir struct {
	path     string
	names    []string
	children map[string]Node
}

func newDir(path string) *Dir {
	return &Dir{path: path, children: make(map[string]Node)}
}

// Path returns the directory's own entry path (with a trailing "/"), or "" for the tree root.
func (d *Dir) Path() string { return d.path }
func (*Dir) node()          {}

// Names returns the child segment names in insertion order.
func (d *Dir) Names() []string {
	return append([]string(nil), d.names...)
}

// Child returns the named child, or nil if there is none.
func (d *Dir) Child(name string) Node {
	return d.children[name]
}

// Len returns the number of direct children.
func (d *Dir) Len() int { return len(d.names) }

// Files returns the paths of all leaves below d, depth first in insertion order.
func (d *Dir) Files() []string {
	var files []string
	for _, name := range d.names {
		switch n := d.children[name].(type) {
		case *File:
			files = append(files, n.path)
		case *Dir:
			files = append(files, n.Files()...)
		}
	}
	return files
}

func (d *Dir) add(name string, n Node) {
	d.names = append(d.names, name)
	d.children[name] = n
}

// subdir returns the child directory for name, creating it when missing.
func (d *Dir) subdir(name, path string) (*Dir, error) {
	switch existing := d.children[name].(type) {
	case nil:
		sub := newDir(path)
		d.add(name, sub)
		return sub, nil
	case *Dir:
		return existing, nil
	default:
		return nil, fmt.Errorf("%w: %q is listed as a file and as a directory", ErrInvalidFileList, path)
	}
}

// BuildTree converts a flat list of archive entries into a tree. Entries
// ending in "/" are directories. Intermediate directories that the archive
// never listed are synthesized.
func BuildTree(entries []string) (*Dir, error) {
	root := newDir("")

	for _, entry := range entries {
		segments := splitSegments(entry)
		if len(segments) == 0 {
			continue
		}
		isDir := strings.HasSuffix(entry, "/")

		dir := root
		for i, seg := range segments {
			last := i == len(segments)-1
			if last && !isDir {
				switch dir.children[seg].(type) {
				case nil:
					dir.add(seg, &File{path: entry})
				case *Dir:
					return nil, fmt.Errorf("%w: %q is listed as a file and as a directory", ErrInvalidFileList, entry)
				}
				break
			}

			sub, err := dir.subdir(seg, strings.Join(segments[:i+1], "/")+"/")
			if err != nil {
				return nil, err
			}
			dir = sub
		}
	}

	return root, nil
}

// splitSegments splits an entry path on "/" dropping empty and "." segments,
// so "./site//index.html" and "site/index.html" land on the same node.
func splitSegments(entry string) []string {
	var segments []string
	for _, s := range strings.Split(entry, "/") {
		if s == "" || s == "." {
			continue
		}
		segments = append(segments, s)
	}
	return segments
}
