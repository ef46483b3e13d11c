package template

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// findFirst returns the first node in document order matching predicate
func findFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	var result *html.Node

	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if predicate(node) {
			result = node
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(n)
	return result
}

// findAll returns every node matching predicate, in document order
func findAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

// hasAttr checks if an element carries the attribute, whatever its value
func hasAttr(n *html.Node, key string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

// isElement returns a predicate matching elements by atom
func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

// getAttribute gets an attribute value from a node
func getAttribute(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// setAttribute overwrites the attribute, adding it when absent
func setAttribute(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// removeChildren detaches every child of n
func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

// setText replaces the content of n with a single text node
func setText(n *html.Node, text string) {
	removeChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// cloneNode returns a detached deep copy of n
func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneNode(child))
	}
	return c
}

// managedStyleProperties are the inline properties the injector writes. They are
// kept after the template's own declarations, sorted by name, so writes to the
// same element produce the same attribute in any order.
var managedStyleProperties = []string{"background-image", "font-family"}

// setStyleProperty sets one declaration in the inline style attribute,
// replacing a prior value for the same property. Template declarations keep
// their order; managed properties follow in name order.
func setStyleProperty(n *html.Node, property, value string) {
	var decls []string
	managed := map[string]string{property: value}

	for _, decl := range strings.Split(getAttribute(n, "style"), ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		name, val, _ := strings.Cut(decl, ":")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == property {
			continue
		}
		if slices.Contains(managedStyleProperties, name) {
			if _, seen := managed[name]; !seen {
				managed[name] = strings.TrimSpace(val)
			}
			continue
		}
		decls = append(decls, decl)
	}

	names := make([]string, 0, len(managed))
	for name := range managed {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		decls = append(decls, name+": "+managed[name])
	}

	setAttribute(n, "style", strings.Join(decls, "; "))
}
