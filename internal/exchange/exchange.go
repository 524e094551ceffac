// Package exchange 恒定乘积做市商, 资金托管在账本中的交易对地址上
package exchange

import (
	"bytes"
	"fmt"
	"math/big"
	"sync"

	"github.com/blues/liftoff/internal/ledger"
	"github.com/blues/liftoff/internal/liftoff"
	"github.com/blues/liftoff/internal/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Exchange 引擎依赖的做市商接口
type Exchange interface {
	CreatePair(tokenA, tokenB common.Address) (common.Address, error)
	GetPair(tokenA, tokenB common.Address) (common.Address, bool)
	AddLiquidity(from, tokenA, tokenB common.Address, amountA, amountB *big.Int, to common.Address) (common.Address, *big.Int, error)
	QuoteExactIn(tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error)
	SwapExactIn(from, tokenIn, tokenOut common.Address, amountIn *big.Int, to common.Address) (*big.Int, error)
}

// 千分之三手续费
const (
	feeNumerator   = 997
	feeDenominator = 1000
)

type pool struct {
	address common.Address
	token0  common.Address
	token1  common.Address
	total   *big.Int
	shares  map[common.Address]*big.Int
}

// ConstantProduct x*y=k 做市商
type ConstantProduct struct {
	mu     sync.Mutex
	ledger *ledger.Ledger
	pools  map[common.Address]*pool
}

// NewConstantProduct 创建做市商
func NewConstantProduct(l *ledger.Ledger) *ConstantProduct {
	return &ConstantProduct{
		ledger: l,
		pools:  make(map[common.Address]*pool),
	}
}

// PairAddress 交易对地址: 排序后两个代币地址的 keccak256
func PairAddress(tokenA, tokenB common.Address) common.Address {
	token0, token1 := sortTokens(tokenA, tokenB)
	return common.BytesToAddress(crypto.Keccak256(token0.Bytes(), token1.Bytes())[12:])
}

func sortTokens(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) < 0 {
		return a, b
	}
	return b, a
}

// CreatePair 创建交易对, 已存在时直接返回
func (x *ConstantProduct) CreatePair(tokenA, tokenB common.Address) (common.Address, error) {
	if tokenA == tokenB {
		return common.Address{}, liftoff.Invalid("identical pair tokens")
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	return x.createLocked(tokenA, tokenB).address, nil
}

func (x *ConstantProduct) createLocked(tokenA, tokenB common.Address) *pool {
	addr := PairAddress(tokenA, tokenB)
	if p, ok := x.pools[addr]; ok {
		return p
	}
	token0, token1 := sortTokens(tokenA, tokenB)
	p := &pool{
		address: addr,
		token0:  token0,
		token1:  token1,
		total:   new(big.Int),
		shares:  make(map[common.Address]*big.Int),
	}
	x.pools[addr] = p
	logger.Info("Pair created: %s (%s/%s)", addr.Hex(), token0.Hex(), token1.Hex())
	return p
}

// GetPair 查询交易对
func (x *ConstantProduct) GetPair(tokenA, tokenB common.Address) (common.Address, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	addr := PairAddress(tokenA, tokenB)
	_, ok := x.pools[addr]
	return addr, ok
}

// Reserves 按给定顺序返回交易对储备
func (x *ConstantProduct) Reserves(tokenA, tokenB common.Address) (*big.Int, *big.Int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	p, ok := x.pools[PairAddress(tokenA, tokenB)]
	if !ok {
		return nil, nil, liftoff.ErrPairNotFound
	}
	return x.ledger.BalanceOf(tokenA, p.address), x.ledger.BalanceOf(tokenB, p.address), nil
}

// LiquidityOf 查询 LP 份额
func (x *ConstantProduct) LiquidityOf(pair, holder common.Address) *big.Int {
	x.mu.Lock()
	defer x.mu.Unlock()

	p, ok := x.pools[pair]
	if !ok {
		return new(big.Int)
	}
	if s, ok := p.shares[holder]; ok {
		return new(big.Int).Set(s)
	}
	return new(big.Int)
}

// AddLiquidity 注入流动性, 不存在的交易对会被创建; LP 份额记在 to 名下
func (x *ConstantProduct) AddLiquidity(from, tokenA, tokenB common.Address, amountA, amountB *big.Int, to common.Address) (common.Address, *big.Int, error) {
	if tokenA == tokenB {
		return common.Address{}, nil, liftoff.Invalid("identical pair tokens")
	}
	if amountA.Sign() <= 0 || amountB.Sign() <= 0 {
		return common.Address{}, nil, liftoff.Invalid("liquidity amounts must be positive")
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	addr := PairAddress(tokenA, tokenB)
	moves := []ledger.Move{
		{Token: tokenA, From: from, To: addr, Amount: amountA},
		{Token: tokenB, From: from, To: addr, Amount: amountB},
	}
	if err := x.ledger.Check(moves...); err != nil {
		return common.Address{}, nil, fmt.Errorf("add liquidity: %w", err)
	}

	p := x.createLocked(tokenA, tokenB)
	reserveA := x.ledger.BalanceOf(tokenA, p.address)
	reserveB := x.ledger.BalanceOf(tokenB, p.address)

	var minted *big.Int
	if p.total.Sign() == 0 || reserveA.Sign() == 0 || reserveB.Sign() == 0 {
		minted = new(big.Int).Sqrt(new(big.Int).Mul(amountA, amountB))
	} else {
		a := new(big.Int).Mul(amountA, p.total)
		a.Quo(a, reserveA)
		b := new(big.Int).Mul(amountB, p.total)
		b.Quo(b, reserveB)
		minted = a
		if b.Cmp(a) < 0 {
			minted = b
		}
	}
	if minted.Sign() == 0 {
		return common.Address{}, nil, liftoff.Invalid("insufficient liquidity minted")
	}

	if err := x.ledger.Apply(moves...); err != nil {
		return common.Address{}, nil, fmt.Errorf("add liquidity: %w", err)
	}
	p.total.Add(p.total, minted)
	if p.shares[to] == nil {
		p.shares[to] = new(big.Int)
	}
	p.shares[to].Add(p.shares[to], minted)

	logger.Info("Liquidity added to %s: %s/%s, minted %s", p.address.Hex(), amountA, amountB, minted)
	return p.address, new(big.Int).Set(minted), nil
}

// QuoteExactIn 报价, 不改变状态
func (x *ConstantProduct) QuoteExactIn(tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	_, out, err := x.quoteLocked(tokenIn, tokenOut, amountIn)
	return out, err
}

func (x *ConstantProduct) quoteLocked(tokenIn, tokenOut common.Address, amountIn *big.Int) (*pool, *big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, nil, liftoff.Invalid("swap amount must be positive")
	}
	p, ok := x.pools[PairAddress(tokenIn, tokenOut)]
	if !ok {
		return nil, nil, liftoff.ErrPairNotFound
	}
	reserveIn := x.ledger.BalanceOf(tokenIn, p.address)
	reserveOut := x.ledger.BalanceOf(tokenOut, p.address)
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return nil, nil, fmt.Errorf("swap: %w: empty pool", liftoff.ErrInsufficientBalance)
	}

	return p, GetAmountOut(amountIn, reserveIn, reserveOut), nil
}

// GetAmountOut 扣除手续费后的恒定乘积输出
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(feeNumerator))
	num := new(big.Int).Mul(inWithFee, reserveOut)
	den := new(big.Int).Mul(reserveIn, big.NewInt(feeDenominator))
	den.Add(den, inWithFee)
	if den.Sign() == 0 {
		return new(big.Int)
	}
	return num.Quo(num, den)
}

// SwapExactIn 以确定输入兑换, 输出转给 to
func (x *ConstantProduct) SwapExactIn(from, tokenIn, tokenOut common.Address, amountIn *big.Int, to common.Address) (*big.Int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	p, out, err := x.quoteLocked(tokenIn, tokenOut, amountIn)
	if err != nil {
		return nil, err
	}
	if out.Sign() == 0 {
		return nil, liftoff.Invalid("swap output is zero")
	}

	if err := x.ledger.Apply(
		ledger.Move{Token: tokenIn, From: from, To: p.address, Amount: amountIn},
		ledger.Move{Token: tokenOut, From: p.address, To: to, Amount: out},
	); err != nil {
		return nil, fmt.Errorf("swap: %w", err)
	}

	logger.Info("Swap on %s: %s in, %s out", p.address.Hex(), amountIn, out)
	return out, nil
}
