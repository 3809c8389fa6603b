// Package util provides small string helpers shared by the editor packages.
package util

import (
	"strings"
	"time"
)

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// Unquote strips surrounding quotes from a command argument and unescapes
// doubled quotes inside it. Unquoted input is returned unchanged.
func Unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return FixEscapeQuotes(s[1 : len(s)-1])
	}
	return s
}

// SanitizeName replaces characters that are not allowed in file names on
// common platforms with underscores.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		return r
	}, name)
}

// ArchiveFileName builds the download name of a saved scene: the sanitized
// scene name plus the UTC date.
func ArchiveFileName(sceneName string, at time.Time) string {
	return SanitizeName(sceneName) + "_" + at.UTC().Format("2006-01-02") + ".zip"
}
