package insurance

import (
	"math/big"
	"testing"
	"time"

	"github.com/blues/liftoff/internal/wad"
	"github.com/stretchr/testify/assert"
)

func TestCanCreateInsurance(t *testing.T) {
	assert.True(t, CanCreateInsurance(false, true))
	assert.False(t, CanCreateInsurance(true, true))
	assert.False(t, CanCreateInsurance(false, false))
	assert.False(t, CanCreateInsurance(true, false))
}

func TestIsInsuranceExhausted(t *testing.T) {
	start := time.Unix(1700000000, 0)
	period := 7 * 24 * time.Hour
	after := start.Add(period).Add(24 * time.Hour)

	value := wad.Ether("10")
	base := wad.Ether("100")
	redeemed := wad.Ether("75")
	claimed := wad.Ether("20")

	assert.True(t, IsInsuranceExhausted(after, start, period, value, base, redeemed, claimed, false))
	assert.False(t, IsInsuranceExhausted(after, start, period, value, base, redeemed, claimed, true))
	assert.False(t, IsInsuranceExhausted(start.Add(period), start, period, value, base, redeemed, claimed, false))
	assert.False(t, IsInsuranceExhausted(start.Add(time.Hour), start, period, value, base, redeemed, claimed, false))
	assert.False(t, IsInsuranceExhausted(after, start, period, value, base, wad.Zero(), claimed, false))
}

func TestTotalTokenClaimable(t *testing.T) {
	base := big.NewInt(12000)
	claimed := big.NewInt(3600)

	assert.Equal(t, "3600", TotalTokenClaimable(base, 6, claimed).String())
	assert.Equal(t, "8400", TotalTokenClaimable(base, 11, claimed).String())
	assert.Equal(t, "8400", TotalTokenClaimable(base, 10, claimed).String())
	assert.Equal(t, "0", TotalTokenClaimable(base, 0, claimed).String())
	assert.Equal(t, "0", TotalTokenClaimable(base, 2, claimed).String())
	assert.Equal(t, "1200", TotalTokenClaimable(base, 1, big.NewInt(0)).String())
}

func TestTotalBusdClaimable(t *testing.T) {
	total := wad.Ether("110")
	redeemed := wad.Ether("49")

	assert.Equal(t, "0", TotalBusdClaimable(total, redeemed, wad.Zero(), 0).String())
	assert.Equal(t, wad.Ether("6.1").String(), TotalBusdClaimable(total, redeemed, wad.Zero(), 1).String())
	assert.Equal(t, wad.Ether("11").String(), TotalBusdClaimable(total, redeemed, wad.Ether("6"), 2).String())
	assert.Equal(t, wad.Ether("55").String(), TotalBusdClaimable(total, redeemed, wad.Ether("6"), 12).String())
	assert.Equal(t, "0", TotalBusdClaimable(total, total, wad.Ether("1"), 5).String())
}

func TestBusdShare(t *testing.T) {
	total := big.NewInt(1109)
	redeemed := big.NewInt(100)

	// 1009 * 1 * 9999 / 100000, 先按周期取整再拆分只能得到 99
	assert.Equal(t, "100", BusdShare(total, redeemed, wad.Zero(), 1, 9999).String())
	assert.Equal(t, "99", wad.MulBP(TotalBusdClaimable(total, redeemed, wad.Zero(), 1), 9999).String())

	assert.Equal(t, "151", BusdShare(total, redeemed, wad.Zero(), 3, 5000).String())
	assert.Equal(t, wad.MulBP(big.NewInt(1009), 317).String(), BusdShare(total, redeemed, wad.Zero(), 12, 317).String())
	assert.Equal(t, "0", BusdShare(total, redeemed, wad.Zero(), 0, 317).String())
	assert.Equal(t, "0", BusdShare(total, total, big.NewInt(5), 4, 317).String())
	assert.Equal(t, wad.Ether("0.317").String(), BusdShare(wad.Ether("110"), wad.Ether("90"), wad.Ether("10"), 10, 317).String())
}

func TestRedeemValue(t *testing.T) {
	assert.Equal(t, wad.Ether("100").String(), RedeemValue(wad.Ether("1000"), wad.Ether("10")).String())
	assert.Equal(t, wad.Ether("5").String(), RedeemValue(wad.Ether("50"), wad.Ether("10")).String())
	assert.Equal(t, "0", RedeemValue(wad.Ether("1"), wad.Zero()).String())
}

func TestCycles(t *testing.T) {
	start := time.Unix(1700000000, 0)
	period := 10 * 24 * time.Hour

	assert.Equal(t, uint64(0), Cycles(start, start, period))
	assert.Equal(t, uint64(0), Cycles(start.Add(23*time.Hour), start, period))
	assert.Equal(t, uint64(1), Cycles(start.Add(24*time.Hour), start, period))
	assert.Equal(t, uint64(12), Cycles(start.Add(12*24*time.Hour+time.Minute), start, period))
	assert.Equal(t, uint64(0), Cycles(start.Add(-time.Hour), start, period))
}
