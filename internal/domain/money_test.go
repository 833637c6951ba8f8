package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmountExactArithmetic(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3, not 0.30000000000000004.
	sum := ParseAmount("0.1").Add(ParseAmount("0.2"))
	assert.Equal(t, "0.3", AmountString(sum))
}

func TestParseAmountCoercesMalformedToZero(t *testing.T) {
	assert.True(t, ParseAmount("").IsZero())
	assert.True(t, ParseAmount("not-a-number").IsZero())
	assert.True(t, ParseAmount("12.3.4").IsZero())
}

func TestParseAmountStrictRejectsMalformed(t *testing.T) {
	_, err := ParseAmountStrict("abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	d, err := ParseAmountStrict("12500.50")
	require.NoError(t, err)
	assert.Equal(t, "12500.5", AmountString(d))
}

func TestAmountPtrString(t *testing.T) {
	assert.Equal(t, "0", AmountPtrString(nil))

	d := ParseAmount("42")
	assert.Equal(t, "42", AmountPtrString(&d))
}
