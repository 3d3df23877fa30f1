// Package transcript holds the pure text transforms applied to raw ASR
// output before it is summarized.
package transcript

import "strings"

// Normalize collapses every whitespace run (spaces, tabs, newlines) into a
// single space and trims the ends. Whitespace-only input yields "".
func Normalize(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
