// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// protectedHints mark containers that carry legal or unsubscribe copy
// when they appear in a class or id attribute.
var protectedHints = []string{
	"footer",
	"legal",
	"disclaimer",
	"unsubscribe",
	"copyright",
}

// legalPhrases are boilerplate markers. Text containing any of them is
// protected regardless of its container.
var legalPhrases = []string{
	"all rights reserved",
	"privacy policy",
	"terms of service",
	"terms of use",
	"terms and conditions",
	"unsubscribe",
}

// protectedContainer reports whether any ancestor of n is a footer-type
// element: a <footer>, or an element whose class/id hints at legal
// content.
func protectedContainer(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if p.Data == "footer" {
			return true
		}
		if attrHintsProtected(p) {
			return true
		}
	}
	return false
}

func attrHintsProtected(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key != "class" && a.Key != "id" {
			continue
		}
		v := strings.ToLower(a.Val)
		for _, hint := range protectedHints {
			if strings.Contains(v, hint) {
				return true
			}
		}
	}
	return false
}

// legalBoilerplate reports whether text reads as legal boilerplate:
// a copyright sign or any of the known legal phrases.
func legalBoilerplate(text string) bool {
	if strings.ContainsRune(text, '©') {
		return true
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "copyright") {
		return true
	}
	for _, phrase := range legalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
