// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract parses marketing HTML into an ordered list of
// addressable text segments and keeps the live parse tree for in-place
// patching. Segments are immutable snapshots; the Document arena is the
// only route back into the tree.
//
// See docs/ARCHITECTURE.md § Extraction.
package extract

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pdiddy/copyedit-engine/pkg/types"
)

// skippedTags are containers whose text is never visible content.
// The walk does not descend into them.
var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"head":     true,
	"meta":     true,
	"link":     true,
	"noscript": true,
	"template": true,
	"iframe":   true,
}

// Document wraps a parsed markup tree plus an arena of live text nodes
// keyed by segment id. The patcher is the only writer; every other
// stage works from the segments' text snapshots.
type Document struct {
	fragment bool
	roots    []*html.Node
	nodes    map[int]*html.Node
}

// Extract parses markup and walks it depth-first in document order,
// emitting one TextSegment per non-empty text run. Segment ids are
// assigned sequentially starting at 1 and are stable for the lifetime
// of the returned Document.
//
// Empty input yields an empty segment list and a valid empty Document;
// downstream stages treat that as a no-op success.
func Extract(markup string) ([]types.TextSegment, *Document, error) {
	doc := &Document{nodes: make(map[int]*html.Node)}

	if isFullDocument(markup) {
		root, err := html.Parse(strings.NewReader(markup))
		if err != nil {
			return nil, nil, fmt.Errorf("parsing document: %w", err)
		}
		doc.roots = []*html.Node{root}
	} else {
		ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
		frag, err := html.ParseFragment(strings.NewReader(markup), ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing fragment: %w", err)
		}
		doc.fragment = true
		doc.roots = frag
	}

	var segments []types.TextSegment
	nextID := 1

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skippedTags[n.Data] {
				return
			}
		case html.TextNode:
			text := strings.TrimSpace(n.Data)
			if text == "" {
				return
			}
			segments = append(segments, types.TextSegment{
				ID:           nextID,
				ContainerTag: containerTag(n),
				Text:         text,
				Modifiable:   !protectedContainer(n) && !legalBoilerplate(text),
			})
			doc.nodes[nextID] = n
			nextID++
			return
		case html.CommentNode, html.DoctypeNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, r := range doc.roots {
		walk(r)
	}

	return segments, doc, nil
}

// Text returns the current live text for a segment id, trimmed the same
// way extraction trims. The second return is false for unknown ids.
func (d *Document) Text(id int) (string, bool) {
	n, ok := d.nodes[id]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(n.Data), true
}

// SetText replaces the live text for a segment id, keeping the node's
// original surrounding whitespace intact. This is the tree's only
// mutation surface.
func (d *Document) SetText(id int, text string) error {
	n, ok := d.nodes[id]
	if !ok {
		return fmt.Errorf("no live node for segment %d", id)
	}
	trimmed := strings.TrimSpace(n.Data)
	prefix, suffix := "", ""
	if trimmed != "" {
		if i := strings.Index(n.Data, trimmed); i >= 0 {
			prefix = n.Data[:i]
			suffix = n.Data[i+len(trimmed):]
		}
	}
	n.Data = prefix + text + suffix
	return nil
}

// Serialize renders the tree back to a markup string. Fragments render
// without a wrapping html/body scaffold; full documents render whole.
func (d *Document) Serialize() (string, error) {
	var b strings.Builder
	for _, n := range d.roots {
		if err := html.Render(&b, n); err != nil {
			return "", fmt.Errorf("rendering document: %w", err)
		}
	}
	return b.String(), nil
}

// isFullDocument reports whether markup carries its own document
// scaffold rather than being a body fragment.
func isFullDocument(markup string) bool {
	lower := strings.ToLower(markup)
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<!doctype")
}

// containerTag returns the tag of the nearest enclosing element, or
// "body" for text at the top level of a fragment.
func containerTag(n *html.Node) string {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p.Data
		}
	}
	return "body"
}
