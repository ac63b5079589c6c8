package mpesa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"International", "+254712345678", "254712345678", false},
		{"CountryCodeNoPlus", "254712345678", "254712345678", false},
		{"LeadingZero", "0712345678", "254712345678", false},
		{"BareSubscriber", "712345678", "254712345678", false},
		{"OnexPrefix", "0110123456", "254110123456", false},
		{"WithSpaces", " 0712 345 678 ", "254712345678", false},
		{"TooShort", "71234567", "", true},
		{"TooLong", "7123456789", "", true},
		{"WrongSubscriberPrefix", "0812345678", "", true},
		{"Letters", "07abc45678", "", true},
		{"Empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.input, "254")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
