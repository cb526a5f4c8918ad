package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		input string
		want  Cents
	}{
		{"50", 5000},
		{"50.00", 5000},
		{"50.5", 5050},
		{"0.01", 1},
		{"2.00", 200},
		{"-8.25", -825},
	}

	for _, c := range cases {
		got, err := Parse(c.input)
		require.NoError(t, err, "input %q", c.input)
		require.Equal(t, c.want, got, "input %q", c.input)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", ".", "10.", "10.005", "abc", "1,50", "10.x"} {
		_, err := Parse(input)
		require.ErrorIs(t, err, ErrInvalidAmount, "input %q", input)
	}
}

func TestDecimalAndDisplay(t *testing.T) {
	require.Equal(t, "50.00", Cents(5000).Decimal())
	require.Equal(t, "2.05", Cents(205).Decimal())
	require.Equal(t, "-8.00", Cents(-800).Decimal())
	require.Equal(t, "R8.00", Cents(800).Display())
}

func TestCode(t *testing.T) {
	require.Equal(t, "ZAR", Code())
}

func TestFromRand(t *testing.T) {
	require.Equal(t, Cents(1000), FromRand(10))
}
