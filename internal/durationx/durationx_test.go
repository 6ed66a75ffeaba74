package durationx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAcceptsVariousShorthands(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"500", 500 * time.Millisecond},
		{"500ms", 500 * time.Millisecond},
		{"5s", 5 * time.Second},
		{"2m", 2 * time.Minute},
		{"1h", time.Hour},
		{"1h30m", 90 * time.Minute},
		{"PT30S", 30 * time.Second},
		{"pt30s", 30 * time.Second},
		{"P1D", 24 * time.Hour},
		{"P1W", 7 * 24 * time.Hour},
		{"P1DT12H", 36 * time.Hour},
	}
	for _, c := range cases {
		d, err := Parse(c.in)
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, d, "input %q", c.in)
	}
}

func TestParseRejectsNonPositiveDuration(t *testing.T) {
	for _, in := range []string{"0", "0s", "-5s", "-100"} {
		_, err := Parse(in)
		require.Error(t, err, "input %q", in)
		assert.ErrorIs(t, err, ErrNonPositive)
	}
}

func TestParseRejectsEmptyAndGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "not-a-duration", "PT", "P"} {
		_, err := Parse(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseTrimsWhitespace(t *testing.T) {
	d, err := Parse("  5s  ")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)
}
