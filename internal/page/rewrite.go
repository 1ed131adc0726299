// Package page rewrites links inside HTML pages of an extracted bundle so
// they resolve against the page's alias instead of the bundle's own layout.
package page

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"minisite-go/internal/urlbag"
)

// ErrUnparsableDocument is returned when content cannot be parsed into a
// document with any text. Callers serve the original content instead.
var ErrUnparsableDocument = errors.New("unparsable document")

// DocumentExtensions are non-HTML document types. Relative <a> links to them
// are anchored at the bundle root.
const DocumentExtensions = "pdf doc docx ppt pptx xls xlsx tif xml txt"

var documentPattern = regexp.MustCompile(`(?i)\.(` + strings.Join(strings.Fields(regexp.QuoteMeta(DocumentExtensions)), "|") + `)$`)

// IsDocumentFile reports whether u ends in one of DocumentExtensions.
func IsDocumentFile(u string) bool {
	return documentPattern.MatchString(u)
}

// Context is the per-page input to Rewrite.
type Context struct {
	RootFolder  string
	AssetDir    string
	AliasPrefix string
	HasAlias    bool
	Storage     urlbag.StorageResolver
}

// NewContext derives the rewrite context of the page described by b.
func NewContext(b urlbag.Bag) Context {
	prefix, ok := b.ParentAlias()
	return Context{
		RootFolder:  b.RootDir(),
		AssetDir:    b.AssetDir(),
		AliasPrefix: prefix,
		HasAlias:    ok,
		Storage:     b.Storage(),
	}
}

// prefix is what root-relative links are mounted under: the alias prefix,
// or the public URL of the asset directory for pages without an alias.
func (c Context) prefix() string {
	if c.HasAlias {
		return c.AliasPrefix
	}
	if c.Storage != nil {
		if u, ok := c.Storage.URL(c.AssetDir); ok {
			return u
		}
	}
	return c.AssetDir
}

// anchorBase is the directory bundle assets are anchored below.
func (c Context) anchorBase() string {
	if c.HasAlias {
		return c.AliasPrefix + "/" + c.RootFolder
	}
	return c.AssetDir + "/" + c.RootFolder
}

// fromRoot rewrites a root-relative URL to live under the bundle's mount point.
func (c Context) fromRoot(u string) string {
	return "/" + strings.TrimLeft(urlbag.RootToRelative(u, c.RootFolder, c.prefix()), "/")
}

// anchor strips query and fragment from u and anchors it below the bundle root.
func (c Context) anchor(u string) string {
	return urlbag.RelativeToRoot(urlbag.ExtractPath(u), c.anchorBase(), c.Storage)
}

// Rewrite parses content, rewrites its links for c and renders it back as
// UTF-8. contentType may carry a charset parameter; otherwise the encoding is
// sniffed from the content.
func Rewrite(content []byte, contentType string, c Context) ([]byte, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, fmt.Errorf("%w: empty content", ErrUnparsableDocument)
	}

	enc, name, _ := charset.DetermineEncoding(content, contentType)
	doc, err := html.Parse(transform.NewReader(bytes.NewReader(content), enc.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableDocument, err)
	}
	if strings.TrimSpace(textContent(doc)) == "" {
		return nil, fmt.Errorf("%w: no text content (charset %s)", ErrUnparsableDocument, name)
	}

	normalizeCharset(doc)
	removeBase(doc)
	walk(doc, func(n *html.Node) { rewriteElement(n, c) })

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("rendering document: %w", err)
	}
	return buf.Bytes(), nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child, fn)
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(n)
	return b.String()
}

// normalizeCharset rewrites charset declarations to utf-8, the encoding the
// document is rendered in.
func normalizeCharset(doc *html.Node) {
	walk(doc, func(n *html.Node) {
		if n.DataAtom != atom.Meta {
			return
		}
		if _, ok := getAttr(n, "charset"); ok {
			setAttr(n, "charset", "utf-8")
			return
		}
		if equiv, _ := getAttr(n, "http-equiv"); strings.EqualFold(equiv, "content-type") {
			setAttr(n, "content", "text/html; charset=utf-8")
		}
	})
}

// removeBase drops every <base> element.
func removeBase(doc *html.Node) {
	var bases []*html.Node
	walk(doc, func(n *html.Node) {
		if n.DataAtom == atom.Base {
			bases = append(bases, n)
		}
	})
	for _, n := range bases {
		n.Parent.RemoveChild(n)
	}
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
