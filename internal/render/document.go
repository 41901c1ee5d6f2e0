package render

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// hasContent reports whether a parsed document carries any element or
// non-blank text beyond the html/head/body skeleton the parser synthesises.
func hasContent(doc *html.Node) bool {
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				if strings.TrimSpace(c.Data) != "" {
					return true
				}
			case html.ElementNode:
				switch c.DataAtom {
				case atom.Html, atom.Head, atom.Body:
					if walk(c) {
						return true
					}
				default:
					return true
				}
			case html.DocumentNode:
				if walk(c) {
					return true
				}
			}
		}
		return false
	}
	return walk(doc)
}

// checkDocument parses body and fails with ErrEmptyDocument when it has no content.
func checkDocument(body string) error {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return err
	}
	if !hasContent(doc) {
		return ErrEmptyDocument
	}
	return nil
}

// findMount returns the element with the given id, or <body> when none matches.
func findMount(doc *html.Node, id string) *html.Node {
	var body, byID *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if byID != nil {
			return
		}
		if n.Type == html.ElementNode {
			if n.DataAtom == atom.Body && body == nil {
				body = n
			}
			for _, a := range n.Attr {
				if a.Key == "id" && a.Val == id {
					byID = n
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if byID != nil {
		return byID
	}
	return body
}

// injectContent places fragment inside the mount element of shell, replacing
// whatever the mount held.
func injectContent(shell []byte, fragment, mountID string) (string, error) {
	doc, err := html.Parse(bytes.NewReader(shell))
	if err != nil {
		return "", err
	}
	mount := findMount(doc, mountID)
	if mount == nil {
		return "", ErrEmptyDocument
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), mount)
	if err != nil {
		return "", err
	}
	for mount.FirstChild != nil {
		mount.RemoveChild(mount.FirstChild)
	}
	for _, n := range nodes {
		mount.AppendChild(n)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}
