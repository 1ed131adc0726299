package page

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"minisite-go/internal/urlbag"
)

var (
	importPattern = regexp.MustCompile(`(?i)@import url\(([^)]+)\)`)
	schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)
)

// rewriteElement dispatches n to the handler for its tag.
func rewriteElement(n *html.Node, c Context) {
	switch n.DataAtom {
	case atom.A:
		rewriteA(n, c)
	case atom.Link:
		rewriteLink(n, c)
	case atom.Script, atom.Img:
		rewriteSrc(n, c)
	case atom.Style:
		rewriteStyle(n, c)
	}
}

// rewriteA fixes root-relative links and "../" links to documents. Links
// between sibling pages (href="page2.html") are left alone: the same file
// name may exist in another folder and there is no way to tell which one
// the author meant.
func rewriteA(n *html.Node, c Context) {
	href, _ := getAttr(n, "href")
	if href == "" || urlbag.IsExternal(href) {
		return
	}

	if urlbag.IsRoot(href) {
		setAttr(n, "href", c.fromRoot(href))
		return
	}

	if urlbag.IsRelative(href) && IsDocumentFile(urlbag.ExtractPath(href)) {
		setAttr(n, "href", c.anchor(href))
	}
}

// rewriteLink fixes root-relative hrefs and anchors every other one.
func rewriteLink(n *html.Node, c Context) {
	href, _ := getAttr(n, "href")
	if skipAnchoring(href) {
		return
	}

	if urlbag.IsRoot(href) {
		setAttr(n, "href", c.fromRoot(href))
		return
	}
	setAttr(n, "href", c.anchor(href))
}

// rewriteSrc anchors src of <script> and <img>.
func rewriteSrc(n *html.Node, c Context) {
	src, _ := getAttr(n, "src")
	if skipAnchoring(src) {
		return
	}
	setAttr(n, "src", c.anchor(src))
}

// rewriteStyle anchors the targets of @import url(...) rules, keeping quotes.
func rewriteStyle(n *html.Node, c Context) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.TextNode {
			continue
		}
		child.Data = importPattern.ReplaceAllStringFunc(child.Data, func(rule string) string {
			token := importPattern.FindStringSubmatch(rule)[1]
			quote, target := unquote(strings.TrimSpace(token))
			if skipAnchoring(target) {
				return rule
			}
			return strings.Replace(rule, token, quote+c.anchor(target)+quote, 1)
		})
	}
}

// skipAnchoring reports whether u must not be anchored: blank, fragment
// only, external or using a non-path scheme such as data: or javascript:.
func skipAnchoring(u string) bool {
	return urlbag.ExtractPath(u) == "" || urlbag.IsExternal(u) || schemePattern.MatchString(u)
}

func unquote(s string) (quote, value string) {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[:1], s[1 : len(s)-1]
	}
	return "", s
}
