// Package panel builds the layer control panel inside an HTML document tree.
package panel

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/joeblew999/plat-weather/internal/registry"
)

// Class names and attributes of generated nodes.
const (
	ClassPanel   = "weather-panel"
	ClassContent = "panel-content"
	ClassControl = "layer-control"
	ClassHeading = "layer-group-heading"

	AttrLayer = "data-layer"
	AttrGroup = "data-group"
	AttrClick = "data-on:click"
)

// Skeleton is the markup of an empty panel.
const Skeleton = `<div id="weather-panel" class="weather-panel"><h3>🌦️ Weather layers</h3><div class="panel-content"></div></div>`

// NewDocument parses the empty panel skeleton into a document tree.
func NewDocument() (*html.Node, error) {
	return html.Parse(strings.NewReader(Skeleton))
}

// Builder emits one control per registry entry, grouped under headings.
type Builder struct {
	Groups []registry.Group
	// ClickAction is installed once on the container and handles clicks on
	// any control inside it.
	ClickAction string
}

// NewBuilder creates a builder over the registry groups.
func NewBuilder(clickAction string) *Builder {
	return &Builder{Groups: registry.Groups(), ClickAction: clickAction}
}

// Build replaces the generated controls inside the panel container of doc.
// It reports false, and leaves doc untouched, when the container is absent.
func (b *Builder) Build(doc *html.Node) bool {
	container := Container(doc)
	if container == nil {
		return false
	}

	for c := container.FirstChild; c != nil; {
		next := c.NextSibling
		if hasClass(c, ClassControl) || hasClass(c, ClassHeading) {
			container.RemoveChild(c)
		}
		c = next
	}

	if b.ClickAction != "" {
		setAttr(container, AttrClick, b.ClickAction)
	}

	for _, g := range b.Groups {
		container.AppendChild(element(atom.H4, g.Heading,
			html.Attribute{Key: "class", Val: ClassHeading},
			html.Attribute{Key: AttrGroup, Val: string(g.ID)},
		))
		for _, l := range g.Layers {
			container.AppendChild(element(atom.Div, l.Label(),
				html.Attribute{Key: "class", Val: ClassControl},
				html.Attribute{Key: AttrLayer, Val: l.ID},
				html.Attribute{Key: "title", Val: l.DisplayName},
			))
		}
	}
	return true
}

// Container finds the .panel-content element inside .weather-panel.
func Container(doc *html.Node) *html.Node {
	p := find(doc, func(n *html.Node) bool { return hasClass(n, ClassPanel) })
	if p == nil {
		return nil
	}
	return find(p, func(n *html.Node) bool { return n != p && hasClass(n, ClassContent) })
}

// Render serialises the .weather-panel element of doc.
func Render(doc *html.Node) (string, error) {
	p := find(doc, func(n *html.Node) bool { return hasClass(n, ClassPanel) })
	if p == nil {
		return "", fmt.Errorf("panel element not found")
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Controls returns the generated control nodes in document order.
func Controls(doc *html.Node) []*html.Node {
	return findAll(doc, func(n *html.Node) bool { return hasClass(n, ClassControl) })
}

// Headings returns the generated group headings in document order.
func Headings(doc *html.Node) []*html.Node {
	return findAll(doc, func(n *html.Node) bool { return hasClass(n, ClassHeading) })
}

// Membership maps each group heading to the layer IDs that follow it.
func Membership(doc *html.Node) map[string][]string {
	out := map[string][]string{}
	c := Container(doc)
	if c == nil {
		return out
	}
	group := ""
	for n := c.FirstChild; n != nil; n = n.NextSibling {
		switch {
		case hasClass(n, ClassHeading):
			group = Attr(n, AttrGroup)
			out[group] = []string{}
		case hasClass(n, ClassControl) && group != "":
			out[group] = append(out[group], Attr(n, AttrLayer))
		}
	}
	return out
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func element(a atom.Atom, text string, attrs ...html.Attribute) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	return slices.Contains(strings.Fields(Attr(n, "class")), class)
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := find(c, match); f != nil {
			return f
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}
