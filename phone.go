package registration

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is the region hint used when parsing display numbers
// that carry no country prefix.
var DefaultPhoneRegion = "MY"

var nonDigits = regexp.MustCompile(`[^\d]`)

// NormalizePhoneNumber converts a display phone number ("+60 12 345 6789")
// into its digits-only storage form ("60123456789"). Valid numbers go through
// the phonenumbers metadata so formatting quirks don't leak into storage;
// anything the library rejects falls back to stripping non-digit characters,
// which produces the same digits for well-formed input.
func NormalizePhoneNumber(display string) string {
	display = strings.TrimSpace(display)
	if display == "" {
		return ""
	}

	// Only fully qualified numbers go through the metadata; local forms keep
	// their literal digits (no implicit country prefix is ever added).
	if strings.HasPrefix(display, "+") {
		if num, err := phonenumbers.Parse(display, DefaultPhoneRegion); err == nil && phonenumbers.IsValidNumber(num) {
			return fmt.Sprintf("%d%s", num.GetCountryCode(), phonenumbers.GetNationalSignificantNumber(num))
		}
	}

	return nonDigits.ReplaceAllString(display, "")
}
