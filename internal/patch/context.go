// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package patch

import "strings"

const contextWindow = 50

// extractContext returns a snippet of text around the span [start, end)
// together with the span's offsets inside the snippet. The window is
// trimmed to word boundaries where possible and truncated edges are
// marked with an ellipsis.
func extractContext(text string, start, end int) (string, int, int) {
	ctxStart := start - contextWindow
	if ctxStart < 0 {
		ctxStart = 0
	}
	ctxEnd := end + contextWindow
	if ctxEnd > len(text) {
		ctxEnd = len(text)
	}

	// Avoid cutting mid-word on either edge.
	if ctxStart > 0 && text[ctxStart-1] != ' ' {
		if i := strings.IndexByte(text[ctxStart:start], ' '); i >= 0 {
			ctxStart += i + 1
		}
	}
	if ctxEnd < len(text) && text[ctxEnd] != ' ' {
		if i := strings.LastIndexByte(text[end:ctxEnd], ' '); i >= 0 {
			ctxEnd = end + i
		}
	}

	var prefix, suffix string
	if ctxStart > 0 {
		prefix = "..."
	}
	if ctxEnd < len(text) {
		suffix = "..."
	}

	snippet := prefix + text[ctxStart:ctxEnd] + suffix
	hlStart := len(prefix) + start - ctxStart
	hlEnd := hlStart + (end - start)
	return snippet, hlStart, hlEnd
}
