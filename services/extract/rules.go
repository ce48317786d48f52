package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// firstMatch runs an ordered fallback chain of patterns against the body and
// returns the first capture, trimmed.
func firstMatch(body string, patterns []*regexp.Regexp) (string, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(body); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// monthAbbreviations accepts both Spanish and English three-letter months so
// dates survive whichever locale rendered the notification.
var monthAbbreviations = map[string]time.Month{
	"ene": time.January, "feb": time.February, "mar": time.March,
	"abr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "ago": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dic": time.December,
	"jan": time.January, "apr": time.April, "aug": time.August,
	"dec": time.December,
}

// normalizeOperationDate converts "22-Dic-2025" into "2025-12-22".
func normalizeOperationDate(raw string) (string, bool) {
	parts := strings.Split(raw, "-")
	if len(parts) != 3 {
		return "", false
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return "", false
	}
	month, ok := monthAbbreviations[strings.ToLower(parts[1])]
	if !ok {
		return "", false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", false
	}

	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

// parseAmount runs an amount pattern chain and returns the value plus the
// normalized ISO currency code. Patterns with a single capture group imply
// the MN default.
func parseAmount(body string, patterns []*regexp.Regexp) (decimal.Decimal, string, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}

		currency := "MN"
		if len(m) > 2 && m[2] != "" {
			currency = strings.ToUpper(m[2])
		}

		value, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}

		if currency == "MN" {
			currency = "MXN"
		}
		return value, currency, true
	}
	return decimal.Decimal{}, "", false
}
