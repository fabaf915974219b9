// Package htmlconv turns HTML found in issue bodies and search results into Markdown
// the model can read.
package htmlconv

import (
	"bytes"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	htmlTagPattern   = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9]*)\b[^>]*>`)
	multipleNewlines = regexp.MustCompile(`\n{3,}`)
	inlineCode       = regexp.MustCompile("`[^`]*`")
)

// Threshold for considering text as HTML (number of HTML tags)
const htmlTagThreshold = 3

// Elements that never carry readable content.
var droppedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Meta:     true,
	atom.Link:     true,
	atom.Head:     true,
	atom.Nav:      true,
	atom.Iframe:   true,
	atom.Svg:      true,
}

// ConvertIfHTML converts input to Markdown when it looks like an HTML document
// or fragment. The boolean reports whether a conversion happened.
func ConvertIfHTML(input string) (string, bool) {
	if !isHTML(input) {
		return input, false
	}
	out, err := convert(input)
	if err != nil {
		return input, false
	}
	return out, true
}

// ToMarkdown converts any input containing at least one tag, such as search
// snippets with <b> highlights. Text without tags is returned unchanged.
func ToMarkdown(input string) string {
	if !htmlTagPattern.MatchString(input) {
		return input
	}
	out, err := convert(input)
	if err != nil {
		return input
	}
	return out
}

func convert(input string) (string, error) {
	cleaned, err := stripElements(input)
	if err != nil {
		cleaned = input
	}
	markdown, err := htmltomarkdown.ConvertString(cleaned)
	if err != nil {
		return "", err
	}
	return cleanMarkdown(markdown), nil
}

// isHTML detects if the input text is likely HTML
func isHTML(input string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		return true
	}

	// Tags quoted as inline code are documentation, not markup.
	tagCount := len(htmlTagPattern.FindAllString(inlineCode.ReplaceAllString(input, ""), -1))
	if tagCount >= htmlTagThreshold {
		return true
	}
	if tagCount < 2 {
		return false
	}
	for _, structural := range []string{"<body", "<div", "<table", "<ul>", "<ol>", "<h1", "<h2"} {
		if strings.Contains(trimmed, structural) {
			return true
		}
	}
	return false
}

func stripElements(input string) (string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(input), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return input, err
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		removeDropped(n)
		if n.Type == html.ElementNode && droppedElements[n.DataAtom] {
			continue
		}
		if err := html.Render(&buf, n); err != nil {
			return input, err
		}
	}
	return buf.String(), nil
}

func removeDropped(n *html.Node) {
	child := n.FirstChild
	for child != nil {
		next := child.NextSibling
		if child.Type == html.ElementNode && droppedElements[child.DataAtom] {
			n.RemoveChild(child)
		} else {
			removeDropped(child)
		}
		child = next
	}
}

// cleanMarkdown collapses runs of blank lines and trims the result.
func cleanMarkdown(markdown string) string {
	return strings.TrimSpace(multipleNewlines.ReplaceAllString(markdown, "\n\n"))
}
