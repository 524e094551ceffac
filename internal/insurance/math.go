package insurance

import (
	"math/big"
	"time"

	"github.com/blues/liftoff/internal/wad"
)

// VestingCycles 归属周期数
const VestingCycles = 10

// CanCreateInsurance 仅在已登记且未初始化时可创建
func CanCreateInsurance(isInitialized, isRegistered bool) bool {
	return !isInitialized && isRegistered
}

// IsInsuranceExhausted 保险期结束后, 本次兑付会透支底价储备时返回 true; 已解除时不再触发
func IsInsuranceExhausted(now, startTime time.Time, insurancePeriod time.Duration,
	busdValue, baseBusd, redeemedBusd, claimedBusd *big.Int, isUnwound bool) bool {
	if isUnwound {
		return false
	}
	if !now.After(startTime.Add(insurancePeriod)) {
		return false
	}
	committed := new(big.Int).Add(redeemedBusd, claimedBusd)
	committed.Add(committed, busdValue)
	return baseBusd.Cmp(committed) < 0
}

// RedeemValue 按固定价格换算: amount * 1e18 / tokensPerEthWad
func RedeemValue(amount, tokensPerEthWad *big.Int) *big.Int {
	if tokensPerEthWad.Sign() == 0 {
		return new(big.Int)
	}
	return wad.Div(amount, tokensPerEthWad)
}

// TotalTokenClaimable 代币按固定基数线性归属
func TotalTokenClaimable(base *big.Int, cycles uint64, claimed *big.Int) *big.Int {
	if cycles == 0 {
		return new(big.Int)
	}
	vested := new(big.Int).Set(base)
	if cycles < VestingCycles {
		vested = wad.MulDiv(base, new(big.Int).SetUint64(cycles), big.NewInt(VestingCycles))
	}
	return nonNegative(vested.Sub(vested, claimed))
}

// TotalBusdClaimable 储备按剩余额度线性归属, 剩余额度每次重新计算
func TotalBusdClaimable(totalIgnited, redeemedBusd, claimedBusd *big.Int, cycles uint64) *big.Int {
	if cycles == 0 {
		return new(big.Int)
	}
	remaining := new(big.Int).Sub(totalIgnited, redeemedBusd)
	remaining = nonNegative(remaining.Sub(remaining, claimedBusd))
	if cycles >= VestingCycles {
		return remaining
	}
	return wad.MulDiv(remaining, new(big.Int).SetUint64(cycles), big.NewInt(VestingCycles))
}

// BusdShare 单个收款方按 bp 应得的周期释放储备, 先乘后除, 只在最后取整一次
func BusdShare(totalIgnited, redeemedBusd, claimedBusd *big.Int, cycles, bp uint64) *big.Int {
	if cycles == 0 || bp == 0 {
		return new(big.Int)
	}
	if cycles > VestingCycles {
		cycles = VestingCycles
	}
	remaining := new(big.Int).Sub(totalIgnited, redeemedBusd)
	remaining = nonNegative(remaining.Sub(remaining, claimedBusd))
	return wad.MulDiv(remaining, new(big.Int).SetUint64(cycles*bp), big.NewInt(wad.BP*VestingCycles))
}

// Cycles 自 startTime 起经过的完整周期数
func Cycles(now, startTime time.Time, insurancePeriod time.Duration) uint64 {
	cycle := insurancePeriod / VestingCycles
	if cycle <= 0 || !now.After(startTime) {
		return 0
	}
	return uint64(now.Sub(startTime) / cycle)
}

func nonNegative(x *big.Int) *big.Int {
	if x.Sign() < 0 {
		return x.SetInt64(0)
	}
	return x
}
