package extract

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// ErrNoTrackingKey is returned when a notification body yields no valid
// rastreo key. Movements without one can never be deduplicated, so they are
// rejected before reaching the ledger.
var ErrNoTrackingKey = errors.New("no valid tracking key found")

// MinDigitKeyLen is the minimum length accepted for all-numeric tracking
// keys. Short numeric notification codes below this are noise, not rastreo
// keys.
const MinDigitKeyLen = 7

// ValidTrackingKey checks whether a candidate has the shape of a SPEI
// tracking key. allowBankPrefix enables the bank-issued "BB<digits>" family,
// which only appears on interbank transfer notifications.
func ValidTrackingKey(key string, allowBankPrefix bool) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}

	// Composite keys such as 058-05/12/2025/05-001ULFK589
	if strings.ContainsAny(key, "-/") {
		return len(key) >= 15 && containsAlnum(key)
	}

	// BNET01002512150049564834
	if strings.HasPrefix(key, "BNET") {
		return len(key) >= 20
	}

	// BB1738120020753
	if allowBankPrefix && strings.HasPrefix(key, "BB") && isAllDigits(key[2:]) {
		return len(key) >= 13
	}

	if isAllDigits(key) {
		return len(key) >= MinDigitKeyLen
	}

	return len(key) >= 10 && containsLetter(key) && containsDigit(key)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

func containsAlnum(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
