// Package match ranks source members as candidates for a destination member
// that has no same-named source.
//
// Key functions:
//   - Normalize: folds an identifier for fuzzy comparison
//   - Similarity: normalized edit-distance similarity of two identifiers
//   - Rank: orders source members by name similarity and type compatibility
package match
