package utils

import (
	"fmt"
	"math"
	"strings"
)

// NormalizePlate canonicalizes a license plate for comparison: uppercase,
// alphanumerics only. "AA-00-AA" and "aa00aa" normalize identically.
func NormalizePlate(value string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(value)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PlateColor derives a stable display color for the shared plate at the given
// rank, rotating the hue by the golden angle so neighbouring ranks stay apart.
func PlateColor(index int) string {
	hue := math.Round(math.Mod(float64(index)*137.508, 360))
	return fmt.Sprintf("hsl(%d 78%% 42%%)", int(hue))
}
