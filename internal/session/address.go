package session

import "strings"

// CanonicalAddress normalizes a human-entered destination into transport
// form: every non-digit character is stripped (a leading + is tolerated and
// dropped), then suffix is appended. Input already in canonical form
// normalizes to itself. Returns "" when no digits remain.
func CanonicalAddress(destination, suffix string) string {
	destination = strings.TrimSpace(destination)
	if at := strings.IndexByte(destination, '@'); at >= 0 {
		destination = destination[:at]
	}
	destination = strings.TrimPrefix(destination, "+")

	var digits strings.Builder
	for _, r := range destination {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	return digits.String() + suffix
}
