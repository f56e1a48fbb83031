package meeting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AcceptedShapes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		number   string
		password string
	}{
		{"join link", "https://zoom.us/j/123456789", "123456789", ""},
		{"join link with password", "https://zoom.us/j/123456789?pwd=abcDEF123", "123456789", "abcDEF123"},
		{"meeting link", "https://zoom.us/meeting/987654321", "987654321", ""},
		{"meeting link with password", "https://zoom.us/meeting/987654321?pwd=xyz", "987654321", "xyz"},
		{"account subdomain", "https://123.zoom.us/j/555666777", "555666777", ""},
		{"account subdomain with password", "https://123.zoom.us/j/555666777?pwd=s3cret", "555666777", "s3cret"},
		{"bare meeting number", "123456789", "123456789", ""},
		{"www prefix", "https://www.zoom.us/j/42424242", "42424242", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.number, ref.MeetingNumber)
			assert.Equal(t, tt.password, ref.Password)
		})
	}
}

func TestParse_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"random text", "not a meeting"},
		{"wrong host", "https://example.com/j/123456789"},
		{"digits with suffix", "123456789x"},
		{"join link without number", "https://zoom.us/j/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			assert.ErrorIs(t, err, ErrInvalidReference)
		})
	}
}
