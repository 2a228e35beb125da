package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePlate(t *testing.T) {
	assert.Equal(t, "AA00AA", NormalizePlate("AA-00-AA"))
	assert.Equal(t, "AA00AA", NormalizePlate(" aa 00 aa "))
	assert.Equal(t, "AA00AA", NormalizePlate("aa00aa"))
	assert.Equal(t, "", NormalizePlate("  "))
	assert.Equal(t, "", NormalizePlate("--/--"))
}

func TestPlateColorRotatesByGoldenAngle(t *testing.T) {
	assert.Equal(t, "hsl(0 78% 42%)", PlateColor(0))
	assert.Equal(t, "hsl(138 78% 42%)", PlateColor(1))
	assert.Equal(t, "hsl(275 78% 42%)", PlateColor(2))
	assert.Equal(t, "hsl(53 78% 42%)", PlateColor(3))
}

func TestNormalizeClock(t *testing.T) {
	valid := map[string]string{
		"09:45":   "09:45",
		" 23:59 ": "23:59",
		"00:00":   "00:00",
	}
	for input, want := range valid {
		got, err := NormalizeClock(input)
		assert.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	for _, input := range []string{"", "9:45", "24:00", "12:60", "12.30", "12:3", "ab:cd"} {
		_, err := NormalizeClock(input)
		assert.Error(t, err, input)
	}
}

func TestIsValidServiceDate(t *testing.T) {
	assert.True(t, IsValidServiceDate("2026-08-28"))
	assert.True(t, IsValidServiceDate(" 2026-12-31 "))
	assert.False(t, IsValidServiceDate("2026-13-01"))
	assert.False(t, IsValidServiceDate("2026-08-32"))
	assert.False(t, IsValidServiceDate("26-08-28"))
	assert.False(t, IsValidServiceDate("2026/08/28"))
	assert.False(t, IsValidServiceDate(""))
}

func TestDocIDRoundTrip(t *testing.T) {
	docID := DocID("2026-08-28", "item-1")
	assert.Equal(t, "2026-08-28_item-1", docID)
	assert.Equal(t, "item-1", ItemIDFromDocID(docID, "2026-08-28"))
}

func TestItemIDFromDocIDRejectsForeignDate(t *testing.T) {
	assert.Equal(t, "", ItemIDFromDocID("2026-08-27_item-1", "2026-08-28"))
	assert.Equal(t, "", ItemIDFromDocID("item-1", "2026-08-28"))
}

func TestItemIDSurvivesUnderscoresInItemID(t *testing.T) {
	docID := DocID("2026-08-28", "fallback:a_b_c")
	assert.Equal(t, "fallback:a_b_c", ItemIDFromDocID(docID, "2026-08-28"))
}

func TestSameTimestamp(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	drifted := now.Add(400 * time.Microsecond)
	later := now.Add(2 * time.Millisecond)

	assert.True(t, SameTimestamp(nil, nil))
	assert.True(t, SameTimestamp(&now, &drifted))
	assert.False(t, SameTimestamp(&now, &later))
	assert.False(t, SameTimestamp(&now, nil))
}

func TestUpdaterFirstName(t *testing.T) {
	assert.Equal(t, "Maria", UpdaterFirstName("Maria Silva", ""))
	assert.Equal(t, "Maria", UpdaterFirstName("  Maria  ", "x@example.com"))
	assert.Equal(t, "maria", UpdaterFirstName("", "maria.silva@example.com"))
	assert.Equal(t, "joao", UpdaterFirstName("", "joao-pedro@example.com"))
	assert.Equal(t, "Unknown", UpdaterFirstName("", ""))
	assert.Equal(t, "Unknown", UpdaterFirstName("  ", "  "))
}

func TestNormalizePin(t *testing.T) {
	assert.Equal(t, "1234", NormalizePin(" 12-34 "))
	assert.Equal(t, "1234", NormalizePin("1234"))
	assert.Equal(t, "0907", NormalizePin("09 07"))
	assert.Equal(t, "", NormalizePin("abcd"))
	assert.Equal(t, "", NormalizePin(""))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "maria.silva@example.com", NormalizeEmail(" Maria.Silva@Example.COM "))
	assert.Equal(t, "", NormalizeEmail("   "))
}
