package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLPRange(t *testing.T) {
	r, err := ParseLPRange("800-1000")
	require.NoError(t, err)
	assert.Equal(t, LPRange{Min: 800, Max: 1000}, r)
}

func TestParseLPRangeRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "800", "800-", "-1000", "gold-plat", "800 - 1000", "800--1000"} {
		_, err := ParseLPRange(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestParseLPRangeRejectsInverted(t *testing.T) {
	_, err := ParseLPRange("1000-800")
	assert.Error(t, err)
}
