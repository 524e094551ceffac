package wad

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndFormat(t *testing.T) {
	v, err := Parse("3193.12321")
	require.NoError(t, err)
	assert.Equal(t, "3193123210000000000000", v.String())
	assert.Equal(t, "3193.12321", Format(v))

	_, err = Parse("0.0000000000000000001")
	assert.Error(t, err)

	_, err = Parse("abc")
	assert.Error(t, err)

	assert.Equal(t, "0", Format(nil))
}

func TestParseUnits(t *testing.T) {
	v, err := ParseUnits("1000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, 0, v.Cmp(Unit()))

	_, err = ParseUnits("-1")
	assert.Error(t, err)
	_, err = ParseUnits("1.5")
	assert.Error(t, err)
}

func TestFixedPointHelpers(t *testing.T) {
	assert.Equal(t, Ether("30").String(), Mul(Ether("3"), Ether("10")).String())
	assert.Equal(t, Ether("0.3").String(), Div(Ether("3"), Ether("10")).String())
	assert.Equal(t, Ether("1.5").String(), MulBP(Ether("100"), 150).String())
	assert.Equal(t, "3", MulDiv(big.NewInt(10), big.NewInt(1), big.NewInt(3)).String())
	assert.Equal(t, Ether("1").String(), Min(Ether("1"), Ether("2")).String())
	assert.Panics(t, func() { MulDiv(big.NewInt(1), big.NewInt(1), Zero()) })
}

func TestDecimal(t *testing.T) {
	assert.Equal(t, "12.5", Decimal(Ether("12.5")).String())
	assert.True(t, Decimal(nil).IsZero())
}
