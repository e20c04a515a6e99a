package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ternarybob/argus/internal/common"
)

// Whitelisted tags survive sanitization; everything else is unwrapped
// (text kept, tag dropped) except stripTags, which go with their children.
var safeTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"img": true, "a": true,
	"ul": true, "ol": true, "li": true,
	"table": true, "thead": true, "tbody": true, "tr": true, "td": true, "th": true,
	"blockquote": true, "pre": true, "code": true,
	"strong": true, "em": true, "b": true, "i": true, "u": true, "s": true,
	"br": true, "hr": true,
	"figure": true, "figcaption": true,
	"sup": true, "sub": true, "span": true,
	"dl": true, "dt": true, "dd": true,
	"div": true,
}

var safeAttrs = map[string]map[string]bool{
	"img":  {"src": true, "alt": true, "width": true, "height": true, "title": true},
	"a":    {"href": true, "title": true},
	"td":   {"colspan": true, "rowspan": true},
	"th":   {"colspan": true, "rowspan": true},
	"code": {"class": true},
	"pre":  {"class": true},
}

// stripSelector removes dangerous and noise tags with all their children
const stripSelector = "script, style, nav, footer, header, iframe, noscript, svg"

var blankLinesRe = regexp.MustCompile(`\n{3,}`)

// SanitizeHTML reduces HTML to the safe tag/attribute subset, resolving
// img src and a href against baseURL. Returns "" on unparseable input.
func SanitizeHTML(rawHTML, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}

	// Dangerous and noise tags go first, children included
	doc.Find(stripSelector).Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}
	for node := body.Nodes[0].FirstChild; node != nil; {
		next := node.NextSibling
		sanitizeNode(node, baseURL)
		node = next
	}

	out, err := body.Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// sanitizeNode rewrites one node in place: unwraps unknown tags, filters
// attributes to the per-tag whitelist, absolutizes img src and a href.
func sanitizeNode(node *html.Node, baseURL string) {
	if node.Type != html.ElementNode {
		return
	}

	name := strings.ToLower(node.Data)

	// Recurse first so unwrapped children are already clean
	for child := node.FirstChild; child != nil; {
		next := child.NextSibling
		sanitizeNode(child, baseURL)
		child = next
	}

	if !safeTags[name] {
		unwrapNode(node)
		return
	}

	allowed := safeAttrs[name]
	filtered := node.Attr[:0]
	for _, attr := range node.Attr {
		if allowed != nil && allowed[strings.ToLower(attr.Key)] {
			filtered = append(filtered, attr)
		}
	}
	node.Attr = filtered

	if baseURL != "" {
		switch name {
		case "img":
			rewriteAttr(node, "src", baseURL)
		case "a":
			rewriteAttr(node, "href", baseURL)
		}
	}
}

func rewriteAttr(node *html.Node, key, baseURL string) {
	for i, attr := range node.Attr {
		if strings.ToLower(attr.Key) == key && attr.Val != "" {
			node.Attr[i].Val = common.ResolveURL(baseURL, attr.Val)
			return
		}
	}
}

// unwrapNode replaces a node with its children in the parent
func unwrapNode(node *html.Node) {
	parent := node.Parent
	if parent == nil {
		return
	}
	for node.FirstChild != nil {
		child := node.FirstChild
		node.RemoveChild(child)
		parent.InsertBefore(child, node)
	}
	parent.RemoveChild(node)
}

// HTMLToText extracts plain text from HTML, dropping script/style/nav noise
// and collapsing runs of blank lines.
func HTMLToText(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	doc.Find("script, style, nav, footer, header, noscript").Remove()

	var sb strings.Builder
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		collectText(sel.Nodes[0], &sb)
	})
	if sb.Len() == 0 {
		collectTextFromSelection(doc.Selection, &sb)
	}

	text := blankLinesRe.ReplaceAllString(sb.String(), "\n\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func collectTextFromSelection(sel *goquery.Selection, sb *strings.Builder) {
	for _, node := range sel.Nodes {
		collectText(node, sb)
	}
}

func collectText(node *html.Node, sb *strings.Builder) {
	if node.Type == html.TextNode {
		sb.WriteString(node.Data)
		return
	}
	if node.Type == html.ElementNode {
		switch strings.ToLower(node.Data) {
		case "script", "style", "noscript":
			return
		case "br", "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
			sb.WriteByte('\n')
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, sb)
	}
	if node.Type == html.ElementNode {
		switch strings.ToLower(node.Data) {
		case "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
			sb.WriteByte('\n')
		}
	}
}
