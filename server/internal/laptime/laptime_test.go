package laptime

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want int64
	}{
		{"minutes form", "1:05.250", 65250},
		{"minutes form short fraction", "1:05.2", 65200},
		{"minutes form single digit seconds", "2:5.5", 125500},
		{"seconds form", "5.25", 5250},
		{"seconds form over a minute", "61.5", 61500},
		{"seconds form three digits", "0.007", 7},
		{"raw float", float64(5250), 5250},
		{"raw float truncates", 5250.9, 5250},
		{"raw int", 5250, 5250},
		{"raw int64", int64(42), 42},
		{"negative float clamps", -12.5, 0},
		{"negative int clamps", -3, 0},
		{"plain text integer", "5250", 5250},
		{"plain text with spaces", "  5250  ", 5250},
		{"padded minutes form", "  1:05.250\t", 65250},
		{"text four fraction digits falls back", "1.2345", 1},
		{"text exponent", "1e3", 1000},
		{"text negative clamps", "-40", 0},
		{"json number", json.Number("77"), 77},
		{"json number fraction is milliseconds", json.Number("5250.9"), 5250},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		in   any
	}{
		{"seconds of sixty", "1:60.000"},
		{"seconds of ninety nine", "0:99.1"},
		{"empty", ""},
		{"whitespace only", "   "},
		{"letters", "fast"},
		{"colon without fraction", "1:05"},
		{"nan text", "NaN"},
		{"infinite text", "Inf"},
		{"nan float", math.NaN()},
		{"infinite float", math.Inf(1)},
		{"nil", nil},
		{"bool", true},
		{"object", map[string]any{"ms": 1}},
		{"json number with colon", json.Number("1:05.250")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.in)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{65250, "01:05.250"},
		{5250, "5.250"},
		{0, "0.000"},
		{7, "0.007"},
		{59999, "59.999"},
		{60000, "01:00.000"},
		{61500, "01:01.500"},
		{6_000_000, "100:00.000"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Format(tc.ms), "Format(%d)", tc.ms)
	}
}

func TestFormatThenParse_MinutesRange(t *testing.T) {
	for _, ms := range []int64{60000, 65250, 125001, 3599999} {
		got, err := Parse(Format(ms))
		require.NoError(t, err)
		assert.Equal(t, ms, got)
	}
}
