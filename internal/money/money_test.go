package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundsHalfUp(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"19.995", "20.00"},
		{"19.994", "19.99"},
		{"0.005", "0.01"},
		{"100", "100.00"},
		{"0.1", "0.10"},
		{"1.005", "1.01"},
	}
	for _, tc := range cases {
		m, err := Parse(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, m.String(), "Parse(%s)", tc.raw)
	}
}

func TestParseRejectsNonNumeric(t *testing.T) {
	for _, raw := range []string{"", "abc", "12.3.4", "NaN", "1e", "12,50"} {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidAmount, "Parse(%q)", raw)
	}
}

func TestArithmetic(t *testing.T) {
	a := MustParse("100.00")
	b := MustParse("0.33")

	assert.Equal(t, "100.33", a.Add(b).String())
	assert.Equal(t, "99.67", a.Sub(b).String())
	assert.Equal(t, 1, a.Cmp(b))
	assert.Equal(t, -1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(MustParse("100")))
	assert.True(t, a.Equal(MustParse("100.0")))
}

func TestSignTests(t *testing.T) {
	assert.True(t, MustParse("0.01").IsPositive())
	assert.True(t, Zero().IsZero())
	assert.False(t, Zero().IsPositive())
	assert.True(t, MustParse("1.00").Sub(MustParse("2.00")).IsNegative())
}

func TestJSONRoundTrip(t *testing.T) {
	m := MustParse("42.50")

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `"42.50"`, string(b))

	var back Money
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, m.Equal(back))

	// Bare JSON numbers are accepted too.
	require.NoError(t, json.Unmarshal([]byte(`19.995`), &back))
	assert.Equal(t, "20.00", back.String())
}
