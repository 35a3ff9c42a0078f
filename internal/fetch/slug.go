// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"regexp"
	"strings"
)

var protocolRe = regexp.MustCompile(`^.*?://`)

const maxSlugLen = 120

// Slug converts a URL into a filesystem-safe name: the protocol is
// dropped and unsafe characters become underscores.
func Slug(rawURL string) string {
	s := protocolRe.ReplaceAllString(rawURL, "")
	for _, c := range []string{":", "/", "?", "&", "=", "#", "%", "*", " "} {
		s = strings.ReplaceAll(s, c, "_")
	}
	s = strings.Trim(s, "_")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	return s
}
