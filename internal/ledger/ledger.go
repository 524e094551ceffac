// Package ledger 记录储备资产与发射代币的余额
package ledger

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/blues/liftoff/internal/liftoff"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TokenMeta 代币元数据
type TokenMeta struct {
	Address common.Address `json:"address"`
	Owner   common.Address `json:"owner"`
	Name    string         `json:"name"`
	Symbol  string         `json:"symbol"`
}

// Move 一笔转账
type Move struct {
	Token  common.Address
	From   common.Address
	To     common.Address
	Amount *big.Int
}

type holding struct {
	token  common.Address
	holder common.Address
}

// Ledger 内存账本, 所有写操作要么全部生效要么全部不生效
type Ledger struct {
	mu       sync.RWMutex
	balances map[holding]*big.Int
	supply   map[common.Address]*big.Int
	tokens   map[common.Address]TokenMeta
	nonces   map[common.Address]uint64
}

// New 创建账本
func New() *Ledger {
	return &Ledger{
		balances: make(map[holding]*big.Int),
		supply:   make(map[common.Address]*big.Int),
		tokens:   make(map[common.Address]TokenMeta),
		nonces:   make(map[common.Address]uint64),
	}
}

// RegisterAsset 登记外部资产(如储备稳定币), 地址由调用方给定
func (l *Ledger) RegisterAsset(addr, owner common.Address, name, symbol string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tokens[addr]; ok {
		return fmt.Errorf("asset %s already registered", addr.Hex())
	}
	l.tokens[addr] = TokenMeta{Address: addr, Owner: owner, Name: name, Symbol: symbol}
	l.supply[addr] = new(big.Int)
	return nil
}

// DeployToken 部署新代币, 地址按 owner 与其部署序号推导
func (l *Ledger) DeployToken(owner common.Address, name, symbol string) common.Address {
	l.mu.Lock()
	defer l.mu.Unlock()

	nonce := l.nonces[owner]
	addr := crypto.CreateAddress(owner, nonce)
	l.nonces[owner] = nonce + 1

	l.tokens[addr] = TokenMeta{Address: addr, Owner: owner, Name: name, Symbol: symbol}
	l.supply[addr] = new(big.Int)
	return addr
}

// Token 查询代币元数据
func (l *Ledger) Token(addr common.Address) (TokenMeta, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	meta, ok := l.tokens[addr]
	return meta, ok
}

// Mint 铸造代币, 仅代币 owner 可调用
func (l *Ledger) Mint(caller, token, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	meta, ok := l.tokens[token]
	if !ok {
		return fmt.Errorf("mint: unknown token %s", token.Hex())
	}
	if meta.Owner != caller {
		return fmt.Errorf("mint: %w", liftoff.ErrNotOwner)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("mint: %w", liftoff.Invalid("negative amount"))
	}

	key := holding{token: token, holder: to}
	l.balances[key] = new(big.Int).Add(l.balanceLocked(key), amount)
	l.supply[token] = new(big.Int).Add(l.supply[token], amount)
	return nil
}

// BalanceOf 查询余额
func (l *Ledger) BalanceOf(token, holder common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return new(big.Int).Set(l.balanceLocked(holding{token: token, holder: holder}))
}

// TotalSupply 查询总发行量
func (l *Ledger) TotalSupply(token common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if s, ok := l.supply[token]; ok {
		return new(big.Int).Set(s)
	}
	return new(big.Int)
}

// Transfer 单笔转账
func (l *Ledger) Transfer(token, from, to common.Address, amount *big.Int) error {
	return l.Apply(Move{Token: token, From: from, To: to, Amount: amount})
}

// Apply 原子执行一组转账: 先按净额校验, 任一账户不足则整体失败
func (l *Ledger) Apply(moves ...Move) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkLocked(moves); err != nil {
		return err
	}
	for _, m := range moves {
		if m.Amount.Sign() == 0 || m.From == m.To {
			continue
		}
		from := holding{token: m.Token, holder: m.From}
		to := holding{token: m.Token, holder: m.To}
		l.balances[from] = new(big.Int).Sub(l.balanceLocked(from), m.Amount)
		l.balances[to] = new(big.Int).Add(l.balanceLocked(to), m.Amount)
	}
	return nil
}

// Check 仅校验一组转账能否执行
func (l *Ledger) Check(moves ...Move) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.checkLocked(moves)
}

func (l *Ledger) checkLocked(moves []Move) error {
	delta := make(map[holding]*big.Int)
	for _, m := range moves {
		if m.Amount == nil || m.Amount.Sign() < 0 {
			return liftoff.Invalid("transfer amount must not be negative")
		}
		if _, ok := l.tokens[m.Token]; !ok {
			return fmt.Errorf("transfer: unknown token %s", m.Token.Hex())
		}
		from := holding{token: m.Token, holder: m.From}
		to := holding{token: m.Token, holder: m.To}
		if delta[from] == nil {
			delta[from] = new(big.Int)
		}
		if delta[to] == nil {
			delta[to] = new(big.Int)
		}
		delta[from].Sub(delta[from], m.Amount)
		delta[to].Add(delta[to], m.Amount)
	}
	for key, d := range delta {
		if new(big.Int).Add(l.balanceLocked(key), d).Sign() < 0 {
			return fmt.Errorf("%w: %s of %s", liftoff.ErrInsufficientBalance, key.holder.Hex(), key.token.Hex())
		}
	}
	return nil
}

func (l *Ledger) balanceLocked(key holding) *big.Int {
	if b, ok := l.balances[key]; ok {
		return b
	}
	return new(big.Int)
}
