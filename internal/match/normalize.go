package match

import (
	"strings"
	"unicode"
)

// suffixes are stripped by Stem, longest first.
var suffixes = []string{"timestamp", "ids", "utc", "id", "at"}

// Normalize lowercases an identifier and drops separators:
// "Order_ID", "orderId" and "OrderID" all become "orderid".
func Normalize(s string) string {
	return strings.Join(Tokens(s), "")
}

// Stem is Normalize with one common suffix token removed, so that
// "CreatedAt" and "Created" compare equal.
func Stem(s string) string {
	n := Normalize(s)
	for _, suffix := range suffixes {
		if len(n) > len(suffix) && strings.HasSuffix(n, suffix) {
			return strings.TrimSuffix(n, suffix)
		}
	}

	return n
}

// Tokens splits an identifier at separators and case boundaries and
// lowercases every token. An acronym stays one token: "XMLParser" yields
// "xml", "parser".
func Tokens(s string) []string {
	var (
		tokens []string
		start  = -1
		runes  = []rune(s)
	)

	flush := func(end int) {
		if start >= 0 && end > start {
			tokens = append(tokens, strings.ToLower(string(runes[start:end])))
		}

		start = -1
	}

	for i, r := range runes {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			flush(i)

			continue
		}

		if start >= 0 && boundary(runes, i) {
			flush(i)
		}

		if start < 0 {
			start = i
		}
	}

	flush(len(runes))

	return tokens
}

func boundary(runes []rune, i int) bool {
	cur, prev := runes[i], runes[i-1]
	if !unicode.IsUpper(cur) {
		return false
	}

	if !unicode.IsUpper(prev) {
		return true
	}

	return i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
