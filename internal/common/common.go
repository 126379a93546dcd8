// Package common holds small helpers shared by the analysis packages.
package common

import (
	"path"
	"strings"
	"unicode/utf8"
)

// UnknownStr is the String() value of out-of-range enum values.
const UnknownStr = "unknown"

// ImportName guesses the name a package is referred to by when it is imported
// without an alias, the way goimports does: the last path element without a
// major version suffix or a "go-" prefix, cut at the first character that is
// not valid in an identifier.
func ImportName(importPath string) string {
	if importPath == "" {
		return ""
	}

	name := path.Base(importPath)
	if isMajorVersion(name) {
		if dir := path.Dir(importPath); dir != "." {
			name = path.Base(dir)
		}
	}

	if i := strings.LastIndex(name, ".v"); i > 0 && isDigits(name[i+2:]) {
		name = name[:i]
	}

	name = strings.TrimPrefix(name, "go-")
	if i := strings.IndexFunc(name, notIdent); i >= 0 {
		name = name[:i]
	}

	return name
}

func notIdent(r rune) bool {
	return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9' || r == '_' || r >= utf8.RuneSelf)
}

func isMajorVersion(elem string) bool {
	return len(elem) > 1 && elem[0] == 'v' && isDigits(elem[1:])
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// IsEmpty reports whether s has no elements.
func IsEmpty[S ~[]E, E any](s S) bool {
	return len(s) == 0
}

// IsSingle reports whether s has exactly one element.
func IsSingle[S ~[]E, E any](s S) bool {
	return len(s) == 1
}

// IsMultiple reports whether s has more than one element.
func IsMultiple[S ~[]E, E any](s S) bool {
	return len(s) > 1
}

// First returns the first element of s, or false when s is empty.
func First[S ~[]E, E any](s S) (E, bool) {
	if len(s) == 0 {
		var zero E

		return zero, false
	}

	return s[0], true
}
