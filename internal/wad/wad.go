package wad

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals 定点数小数位
const Decimals = 18

// BP 基点分母
const BP = 10000

var (
	unit   = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)
	bpBase = big.NewInt(BP)
)

// Unit 返回 1e18
func Unit() *big.Int {
	return new(big.Int).Set(unit)
}

// Zero 返回新的 0
func Zero() *big.Int {
	return new(big.Int)
}

// Ether 将十进制字符串解析为 18 位定点数, 解析失败会 panic, 仅用于常量与测试
func Ether(s string) *big.Int {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Parse 将十进制字符串解析为 18 位定点数
func Parse(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.Exponent() < -Decimals {
		return nil, fmt.Errorf("invalid amount %q: more than %d decimals", s, Decimals)
	}
	return d.Shift(Decimals).BigInt(), nil
}

// ParseUnits 解析以最小单位表示的整数字符串
func ParseUnits(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer amount %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	return v, nil
}

// Format 以十进制字符串展示定点数
func Format(x *big.Int) string {
	if x == nil {
		return "0"
	}
	return decimal.NewFromBigInt(x, -Decimals).String()
}

// Decimal 转为 decimal.Decimal, 用于持久化与展示
func Decimal(x *big.Int) decimal.Decimal {
	if x == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(x, -Decimals)
}

// MulDiv 计算 floor(a*b/c)
func MulDiv(a, b, c *big.Int) *big.Int {
	if c.Sign() == 0 {
		panic("wad: division by zero")
	}
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, c)
}

// Mul 计算定点乘法 floor(a*b/1e18)
func Mul(a, b *big.Int) *big.Int {
	return MulDiv(a, b, unit)
}

// Div 计算定点除法 floor(a*1e18/b)
func Div(a, b *big.Int) *big.Int {
	return MulDiv(a, unit, b)
}

// MulBP 计算 floor(a*bp/10000)
func MulBP(a *big.Int, bp uint64) *big.Int {
	return MulDiv(a, new(big.Int).SetUint64(bp), bpBase)
}

// Add 返回 a+b 的新值
func Add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(a, b)
}

// Sub 返回 a-b 的新值
func Sub(a, b *big.Int) *big.Int {
	return new(big.Int).Sub(a, b)
}

// Min 返回较小者的拷贝
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// Copy 拷贝, nil 视为 0
func Copy(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}
