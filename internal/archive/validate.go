package archive

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidContent is wrapped by *ContentError.
var ErrInvalidContent = errors.New("invalid archive content")

// Violation is one problem found in an archive.
type Violation struct {
	Path    string // entry path the violation is about; empty for archive-wide problems
	Message string
}

// Result is the outcome of validating an archive. An archive is valid when
// Violations is empty.
type Result struct {
	Tree       *Dir
	Root       *Dir // the single bundle root directory, nil if it could not be determined
	Violations []Violation
}

// OK reports whether no violations were found.
func (r Result) OK() bool { return len(r.Violations) == 0 }

// Err returns nil for a valid archive and a *ContentError carrying every
// violation otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &ContentError{Violations: append([]Violation(nil), r.Violations...)}
}

func (r *Result) add(path, msg string) {
	r.Violations = append(r.Violations, Violation{Path: path, Message: msg})
}

// ContentError reports all violations of an archive at once.
type ContentError struct {
	Violations []Violation
}

// Messages returns the violation messages in the order they were found.
func (e *ContentError) Messages() []string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return msgs
}

func (e *ContentError) Error() string {
	return "Archive has invalid content: " + strings.Join(e.Messages(), "\n")
}

func (e *ContentError) Unwrap() error { return ErrInvalidContent }

// Validate builds the archive tree from entries and checks it against the
// policy. The returned error is only set when no tree can be built at all
// (ErrInvalidFileList); content problems are reported through Result.
//
// A bundle must have exactly one top-level directory (ignoring the stray
// directories allowed by the policy) holding index.html. Those two checks
// stop validation early. Extension and path length checks then run over every
// entry, stray directories included, and every failure is collected.
func Validate(entries []string, policy Policy) (Result, error) {
	tree, err := BuildTree(entries)
	if err != nil {
		return Result{}, err
	}

	res := Result{Tree: tree}

	var roots []string
	for _, name := range tree.Names() {
		if !policy.isStrayRootDir(name) {
			roots = append(roots, name)
		}
	}
	var root *Dir
	if len(roots) == 1 {
		root, _ = tree.Child(roots[0]).(*Dir)
	}
	if root == nil {
		res.add("", "A single top level directory is expected.")
		return res, nil
	}
	res.Root = root

	if _, ok := root.Child(IndexFile).(*File); !ok {
		res.add("", fmt.Sprintf("Missing required %s file.", IndexFile))
		return res, nil
	}

	for _, entry := range entries {
		if strings.HasSuffix(entry, "/") {
			continue
		}
		if !policy.AllowsExtension(entry) {
			res.add(entry, fmt.Sprintf("File %s has invalid extension.", entry))
		}
	}

	limit := policy.pathLimit()
	for _, entry := range entries {
		if len(entry) > limit {
			res.add(entry, fmt.Sprintf("File \"%s\" path within the archive should be under %d characters in length.", entry, limit))
		}
	}

	return res, nil
}
