// Package diagnostic defines the findings reported by the mapping rules.
//
// Key capabilities:
//   - Finding records with code, severity, location and a property bag
//   - A catalog of every code with its default severity and description
//   - Deterministic ordering of findings
package diagnostic
