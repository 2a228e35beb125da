package utils

import (
	"regexp"
	"strings"
)

var (
	whitespaceSplit = regexp.MustCompile(`\s+`)
	emailNameSplit  = regexp.MustCompile(`[._-]+`)
)

// UpdaterFirstName derives the short display name recorded on audit rows:
// first word of the display name, else the first segment of the email local
// part, else "Unknown".
func UpdaterFirstName(displayName, email string) string {
	name := strings.TrimSpace(displayName)
	if name != "" {
		return whitespaceSplit.Split(name, 2)[0]
	}

	address := strings.TrimSpace(email)
	if address != "" {
		localPart := strings.SplitN(address, "@", 2)[0]
		if emailName := emailNameSplit.Split(localPart, 2)[0]; emailName != "" {
			return emailName
		}
	}

	return "Unknown"
}

// NormalizeEmail canonicalizes an email address for block-list lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
