package match

import "github.com/agext/levenshtein"

// Distance returns the Levenshtein distance between a and b, counted in
// runes, with unit costs.
func Distance(a, b string) int {
	return levenshtein.Distance(a, b, nil)
}

// Similarity is 1 - Distance/maxLen over the normalized identifiers, 1 for
// two empty strings. Suffix-stripped forms are also compared and the better
// score wins.
func Similarity(a, b string) float64 {
	return max(ratio(Normalize(a), Normalize(b)), ratio(Stem(a), Stem(b)))
}

func ratio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 && lb == 0 {
		return 1
	}

	return 1 - float64(Distance(a, b))/float64(max(la, lb))
}
