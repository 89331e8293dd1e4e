// Package billing validates the mock checkout form. No charge ever happens:
// the validation exists to make the simulated form behave like a real one.
// Card data is transient — it is validated, summarized into pass/fail, and
// discarded. It must never be persisted or placed into a notification.
package billing

import (
	"regexp"
	"strings"
	"time"
)

// TestCardNumber triggers the demo autofill in the reference UI.
const TestCardNumber = "4242 4242 4242 4242"

// TestCardAutofill returns the expiry and CVV the demo autofill pairs with
// the test card, and whether the given number is the test card.
func TestCardAutofill(number string) (expiry, cvv string, ok bool) {
	if number != TestCardNumber {
		return "", "", false
	}
	return "12/25", "123", true
}

// CardInput is the raw mock billing form input. Component-local and
// short-lived by contract.
type CardInput struct {
	Number string
	Expiry string
	CVV    string
	Holder string
}

// CardCheck is the per-field validation outcome for one submit attempt.
// LuhnValid is computed for realism but deliberately not part of Valid():
// the product is a non-charging simulation and testers type made-up numbers.
type CardCheck struct {
	NumberValid bool
	ExpiryValid bool
	CVVValid    bool
	HolderValid bool
	LuhnValid   bool
	CardType    string
	Errors      map[string]string
}

// Valid reports whether the submit action is enabled. Luhn is excluded on
// purpose; see CardCheck.
func (c CardCheck) Valid() bool {
	return c.NumberValid && c.ExpiryValid && c.CVVValid && c.HolderValid
}

var (
	expiryRe = regexp.MustCompile(`^\d{2}/\d{2}$`)
	cvvRe    = regexp.MustCompile(`^\d{3,4}$`)
	digitsRe = regexp.MustCompile(`^\d+$`)
)

// Validate checks every field independently against the current time.
func Validate(in CardInput, now time.Time) CardCheck {
	check := CardCheck{Errors: map[string]string{}}

	number := strings.ReplaceAll(in.Number, " ", "")
	if len(number) == 16 && digitsRe.MatchString(number) {
		check.NumberValid = true
		check.LuhnValid = luhn(number)
		check.CardType = DetectCardType(number)
	} else {
		check.Errors["number"] = "Введите 16 цифр"
	}

	if month, year, ok := parseExpiry(in.Expiry); ok {
		if expired(month, year, now) {
			check.Errors["expiry"] = "Карта просрочена"
		} else {
			check.ExpiryValid = true
		}
	} else {
		check.Errors["expiry"] = "Формат: ММ/ГГ"
	}

	if cvvRe.MatchString(in.CVV) {
		check.CVVValid = true
	} else {
		check.Errors["cvv"] = "Введите 3-4 цифры"
	}

	if strings.TrimSpace(strings.ToUpper(in.Holder)) != "" {
		check.HolderValid = true
	} else {
		check.Errors["holder"] = "Укажите имя держателя"
	}

	return check
}

// parseExpiry validates the MM/YY shape and month range.
func parseExpiry(expiry string) (month, year int, ok bool) {
	if !expiryRe.MatchString(expiry) {
		return 0, 0, false
	}
	month = int(expiry[0]-'0')*10 + int(expiry[1]-'0')
	year = int(expiry[3]-'0')*10 + int(expiry[4]-'0')
	if month < 1 || month > 12 {
		return 0, 0, false
	}
	return month, year, true
}

// expired reports whether MM/YY is strictly before the current month.
func expired(month, year int, now time.Time) bool {
	curYear := now.Year() % 100
	curMonth := int(now.Month())
	return year < curYear || (year == curYear && month < curMonth)
}

// luhn computes the mod-10 checksum over a digit string.
func luhn(number string) bool {
	sum := 0
	alternate := false
	for i := len(number) - 1; i >= 0; i-- {
		n := int(number[i] - '0')
		if alternate {
			n *= 2
			if n > 9 {
				n = n%10 + 1
			}
		}
		sum += n
		alternate = !alternate
	}
	return sum%10 == 0
}

// DetectCardType identifies the network from the number prefix. Returns an
// empty string for unknown prefixes.
func DetectCardType(number string) string {
	number = strings.ReplaceAll(number, " ", "")
	switch {
	case strings.HasPrefix(number, "4"):
		return "visa"
	case matchRange(number, "51", "55") || matchRange(number, "22", "27"):
		return "mastercard"
	case matchRange(number, "2200", "2204"):
		return "mir"
	case strings.HasPrefix(number, "34") || strings.HasPrefix(number, "37"):
		return "amex"
	}
	return ""
}

func matchRange(number, lo, hi string) bool {
	if len(number) < len(lo) {
		return false
	}
	prefix := number[:len(lo)]
	return prefix >= lo && prefix <= hi
}

// FormatCardNumber groups digits into blocks of four, the way the form
// renders them.
func FormatCardNumber(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	s := digits.String()
	if len(s) > 16 {
		s = s[:16]
	}
	var parts []string
	for i := 0; i < len(s); i += 4 {
		end := i + 4
		if end > len(s) {
			end = len(s)
		}
		parts = append(parts, s[i:end])
	}
	return strings.Join(parts, " ")
}
