package eligibility

import "regexp"

var panPattern = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

// IsValidPAN reports whether pan has the PAN shape: five upper-case letters,
// four digits, one upper-case letter.
func IsValidPAN(pan string) bool {
	return panPattern.MatchString(pan)
}

// MaskPAN keeps the first two characters of pan and masks the rest.
func MaskPAN(pan string) string {
	r := []rune(pan)
	if len(r) > 2 {
		r = r[:2]
	}
	return string(r) + "***"
}
