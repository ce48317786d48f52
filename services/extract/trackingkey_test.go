package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTrackingKey(t *testing.T) {
	tests := []struct {
		name            string
		key             string
		allowBankPrefix bool
		want            bool
	}{
		{"composite with separators", "058-05/12/2025/05-001ULFK589", false, true},
		{"composite too short", "058-05/12/25", false, false},
		{"composite separators only", "---------------", false, false},
		{"bnet key", "BNET01002512150049564834", false, true},
		{"bnet too short", "BNET010025121500495", false, false},
		{"bank prefix on transfer", "BB1738120020753", true, true},
		{"bank prefix too short", "BB1234567890", true, false},
		{"all digits at minimum", "1234567", false, true},
		{"all digits too short", "123456", false, false},
		{"alphanumeric", "AB12CD34EF", false, true},
		{"alphanumeric too short", "A1B2C3D4", false, false},
		{"letters only", "ABCDEFGHIJ", false, false},
		{"surrounding whitespace", "  1234567  ", false, true},
		{"empty", "", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidTrackingKey(tt.key, tt.allowBankPrefix))
		})
	}
}
