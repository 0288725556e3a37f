package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegions are tried in order for numbers without a country code.
var DefaultRegions = []string{"IN", "GB", "US"}

// NormalizePhone returns phone in E.164 form, or "" when it is not a valid
// number in any of the default regions.
func NormalizePhone(phone string) string {
	return NormalizePhoneIn(phone, DefaultRegions...)
}

func NormalizePhoneIn(phone string, regions ...string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	for _, region := range regions {
		parsed, err := phonenumbers.Parse(phone, region)
		if err != nil {
			continue
		}
		if !phonenumbers.IsValidNumber(parsed) {
			continue
		}
		return phonenumbers.Format(parsed, phonenumbers.E164)
	}
	return ""
}
