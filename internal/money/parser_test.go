package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in          string
		appendPenny bool
		want        int64
	}{
		{"76,873", false, 76873},
		{"76,873", true, 7687300},
		{"23,345.57", true, 2334557},
		{"123 456 789.123", true, 12345678912},
		{"123 456 789.123", false, 123456789},
		{"12345", true, 1234500},
		{"12345", false, 12345},
		{"39,99", true, 3999},
		{"23.345,57", true, 2334557},
		{"76.873,00", false, 7687300},
		{"234.5", true, 23450},
		{"123.", true, 12300},
		{"123.", false, 123},
		{"$ 1 200", true, 120000},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in, tt.appendPenny)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUnsupported(t *testing.T) {
	for _, in := range []string{"7,6873", "abc", "", "99999999999999999999"} {
		t.Run(in, func(t *testing.T) {
			for _, appendPenny := range []bool{true, false} {
				_, err := Parse(in, appendPenny)
				require.Error(t, err)
				assert.True(t, apperr.Is(err, apperr.FormatNotSupported))
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	_, err := ParseValue(nil, true)
	assert.True(t, apperr.Is(err, apperr.FormatNotSupported))

	got, err := ParseValue(39.99, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3999), got)

	got, err = ParseValue(float64(12), true)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), got)

	got, err = ParseValue(" 23,345.57 ", true)
	require.NoError(t, err)
	assert.Equal(t, int64(2334557), got)

	_, err = ParseValue(true, true)
	assert.True(t, apperr.Is(err, apperr.FormatNotSupported))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$23,345.57", Format(2334557))
	assert.Equal(t, "$0.05", Format(5))
	assert.Equal(t, "$1,234,567.00", Format(123456700))
	assert.Equal(t, "-$12.30", Format(-1230))
}
