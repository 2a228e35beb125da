package utils

import "strings"

// NormalizePin keeps only the digits of a synced API PIN, dropping whatever
// separators or whitespace the operator typed
func NormalizePin(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
