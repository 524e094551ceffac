// Package engine 募资状态机: 募资, 撤资, 发射, 领取奖励与退款
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/blues/liftoff/internal/event"
	"github.com/blues/liftoff/internal/exchange"
	"github.com/blues/liftoff/internal/ledger"
	"github.com/blues/liftoff/internal/liftoff"
	"github.com/blues/liftoff/internal/logger"
	"github.com/blues/liftoff/internal/settings"
	"github.com/blues/liftoff/internal/wad"
	"github.com/ethereum/go-ethereum/common"
)

// Registrar 保险引擎登记接口
type Registrar interface {
	Register(ctx context.Context, caller common.Address, id uint64) error
	IsRegistered(id uint64) bool
}

// Limits 发起募资的协议边界
type Limits struct {
	MinSoftCap *big.Int
	MinRate    *big.Int
	MaxRate    *big.Int
}

// DefaultLimits 软顶至少 10, 汇率在 [1e-9, 1e9] 之间
func DefaultLimits() Limits {
	return Limits{
		MinSoftCap: wad.Ether("10"),
		MinRate:    wad.Ether("0.000000001"),
		MaxRate:    wad.Ether("1000000000"),
	}
}

// Options 引擎依赖
type Options struct {
	Owner    common.Address
	Settings *settings.Store
	Ledger   *ledger.Ledger
	Exchange exchange.Exchange
	Clock    clock.Clock
	Sink     event.Sink
	Limits   *Limits
}

// Engine 募资引擎, 所有状态变更在同一把锁内串行提交
type Engine struct {
	mu        sync.Mutex
	owner     common.Address
	settings  *settings.Store
	ledger    *ledger.Ledger
	exchange  exchange.Exchange
	insurance Registrar
	clock     clock.Clock
	sink      event.Sink
	limits    Limits
	raises    []*raise
}

// New 创建募资引擎
func New(opts Options) *Engine {
	e := &Engine{
		owner:    opts.Owner,
		settings: opts.Settings,
		ledger:   opts.Ledger,
		exchange: opts.Exchange,
		clock:    opts.Clock,
		sink:     opts.Sink,
		limits:   DefaultLimits(),
	}
	if e.clock == nil {
		e.clock = clock.New()
	}
	if e.sink == nil {
		e.sink = event.NopSink{}
	}
	if opts.Limits != nil {
		e.limits = *opts.Limits
	}
	return e
}

// SetInsurance 绑定保险引擎
func (e *Engine) SetInsurance(r Registrar) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.insurance = r
}

// SetSettings 替换参数存储, 仅 owner
func (e *Engine) SetSettings(caller common.Address, s *settings.Store) error {
	if caller != e.owner {
		return liftoff.ErrNotOwner
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s
	return nil
}

// Owner 返回 owner
func (e *Engine) Owner() common.Address {
	return e.owner
}

func (e *Engine) config() settings.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.Snapshot()
}

// LaunchToken 由登记模块发起募资, 同时部署代币
func (e *Engine) LaunchToken(ctx context.Context, caller common.Address, p LaunchParams) (uint64, error) {
	cfg := e.config()
	if caller != cfg.Registration {
		return 0, liftoff.ErrNotRegistration
	}
	now := e.clock.Now()
	if err := e.validateLaunch(now, p); err != nil {
		return 0, err
	}

	e.mu.Lock()
	id := uint64(len(e.raises))
	token := e.ledger.DeployToken(cfg.Engine, p.Name, p.Symbol)
	e.raises = append(e.raises, &raise{
		id:            id,
		startTime:     p.StartTime,
		endTime:       p.EndTime,
		softCap:       wad.Copy(p.SoftCap),
		hardCap:       wad.Copy(p.HardCap),
		fixedRateWad:  wad.Copy(p.FixedRateWad),
		name:          p.Name,
		symbol:        p.Symbol,
		projectDev:    p.ProjectDev,
		totalIgnited:  new(big.Int),
		ignitors:      make(map[common.Address]*Ignitor),
		totalSupply:   new(big.Int),
		rewardSupply:  new(big.Int),
		escrowed:      new(big.Int),
		deployedToken: token,
	})
	e.mu.Unlock()

	logger.Info("Raise %d launched: %s (%s), soft cap %s, hard cap %s, token %s",
		id, p.Name, p.Symbol, wad.Format(p.SoftCap), wad.Format(p.HardCap), token.Hex())
	e.sink.Emit(ctx, event.New(event.RaiseLaunched, id, p.ProjectDev, wad.Copy(p.HardCap), now).
		With("name", p.Name).
		With("symbol", p.Symbol).
		With("token", token).
		With("start_time", p.StartTime).
		With("end_time", p.EndTime).
		With("soft_cap", wad.Copy(p.SoftCap)).
		With("hard_cap", wad.Copy(p.HardCap)).
		With("fixed_rate", wad.Copy(p.FixedRateWad)))
	return id, nil
}

func (e *Engine) validateLaunch(now time.Time, p LaunchParams) error {
	if p.SoftCap == nil || p.HardCap == nil || p.FixedRateWad == nil {
		return liftoff.Invalid("caps and rate are required")
	}
	if !p.EndTime.After(p.StartTime) {
		return liftoff.Invalid("must end after start")
	}
	if !p.StartTime.After(now) {
		return liftoff.Invalid("must start in the future")
	}
	if p.HardCap.Cmp(p.SoftCap) < 0 {
		return liftoff.Invalid("hardcap must be at least softcap")
	}
	if p.SoftCap.Cmp(e.limits.MinSoftCap) < 0 {
		return liftoff.Invalid(fmt.Sprintf("softcap must be at least %s", wad.Format(e.limits.MinSoftCap)))
	}
	if p.FixedRateWad.Cmp(e.limits.MinRate) < 0 {
		return liftoff.Invalid("fixed rate is less than minimum")
	}
	if p.FixedRateWad.Cmp(e.limits.MaxRate) > 0 {
		return liftoff.Invalid("fixed rate is more than maximum")
	}
	return nil
}

func (e *Engine) raiseLocked(id uint64) (*raise, error) {
	if id >= uint64(len(e.raises)) {
		return nil, fmt.Errorf("raise %d: %w", id, liftoff.ErrRaiseNotFound)
	}
	return e.raises[id], nil
}

// Ignite 募资期内存入储备资产, 记在 depositor 名下; 超过硬顶的部分不接收
func (e *Engine) Ignite(ctx context.Context, caller common.Address, id uint64, depositor common.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, liftoff.Invalid("ignite amount must be positive")
	}

	ev, accepted, err := e.ignite(caller, id, depositor, amount)
	if err != nil {
		return nil, err
	}
	e.sink.Emit(ctx, ev)
	return accepted, nil
}

func (e *Engine) ignite(caller common.Address, id uint64, depositor common.Address, amount *big.Int) (*event.Event, *big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.settings.Snapshot()
	r, err := e.raiseLocked(id)
	if err != nil {
		return nil, nil, err
	}
	now := e.clock.Now()
	if r.state(now) != StateIgniting {
		return nil, nil, liftoff.ErrNotIgniting
	}

	if ig, ok := r.ignitors[depositor]; ok && ig.Status == IgnitorRefunded {
		return nil, nil, liftoff.ErrAlreadyRefunded
	}

	accepted := wad.Min(amount, wad.Sub(r.hardCap, r.totalIgnited))
	if err := e.ledger.Transfer(cfg.ReserveAsset, caller, cfg.Engine, accepted); err != nil {
		return nil, nil, fmt.Errorf("ignite: %w", err)
	}

	ig := r.ignitor(depositor)
	ig.Ignited.Add(ig.Ignited, accepted)
	r.totalIgnited.Add(r.totalIgnited, accepted)

	logger.Info("Raise %d ignited by %s for %s: %s, total %s",
		id, caller.Hex(), depositor.Hex(), wad.Format(accepted), wad.Format(r.totalIgnited))
	ev := event.New(event.Ignited, id, depositor, wad.Copy(accepted), now).
		With("payer", caller).
		With("total_ignited", wad.Copy(r.totalIgnited))
	return ev, accepted, nil
}

// UndoIgnite 募资期内撤回调用方的全部存款
func (e *Engine) UndoIgnite(ctx context.Context, caller common.Address, id uint64) (*big.Int, error) {
	ev, amount, err := e.undoIgnite(caller, id)
	if err != nil {
		return nil, err
	}
	e.sink.Emit(ctx, ev)
	return amount, nil
}

func (e *Engine) undoIgnite(caller common.Address, id uint64) (*event.Event, *big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.settings.Snapshot()
	r, err := e.raiseLocked(id)
	if err != nil {
		return nil, nil, err
	}
	now := e.clock.Now()
	if r.state(now) != StateIgniting {
		return nil, nil, liftoff.ErrNotIgniting
	}
	ig, ok := r.ignitors[caller]
	if ok && ig.Status == IgnitorRefunded {
		return nil, nil, liftoff.ErrAlreadyRefunded
	}
	if !ok || ig.Ignited.Sign() == 0 {
		return nil, nil, liftoff.Invalid("ignitor has no ignition")
	}

	amount := wad.Copy(ig.Ignited)
	if err := e.ledger.Transfer(cfg.ReserveAsset, cfg.Engine, caller, amount); err != nil {
		return nil, nil, fmt.Errorf("undo ignite: %w", err)
	}
	ig.Ignited.SetInt64(0)
	r.totalIgnited.Sub(r.totalIgnited, amount)

	logger.Info("Raise %d ignition undone by %s: %s, total %s",
		id, caller.Hex(), wad.Format(amount), wad.Format(r.totalIgnited))
	ev := event.New(event.IgniteUndone, id, caller, wad.Copy(amount), now).
		With("total_ignited", wad.Copy(r.totalIgnited))
	return ev, amount, nil
}

// Spark 发射: 铸币, 注入流动性, 买入锁定, 其余转入保险, 并向保险引擎登记
func (e *Engine) Spark(ctx context.Context, id uint64) error {
	ev, err := e.spark(ctx, id)
	if err != nil {
		return err
	}
	e.sink.Emit(ctx, ev)
	return nil
}

func (e *Engine) spark(ctx context.Context, id uint64) (*event.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.settings.Snapshot()
	r, err := e.raiseLocked(id)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	if r.state(now) != StateSparkReady {
		return nil, liftoff.ErrNotSparkReady
	}
	if e.insurance == nil {
		return nil, errors.New("spark: insurance engine not attached")
	}
	if e.insurance.IsRegistered(id) {
		return nil, fmt.Errorf("spark: %w", liftoff.ErrAlreadyRegistered)
	}

	plan, err := planSpark(cfg, r)
	if err != nil {
		return nil, err
	}
	token := r.deployedToken
	if _, exists := e.exchange.GetPair(token, cfg.ReserveAsset); exists {
		return nil, fmt.Errorf("spark: pair for %s already exists", token.Hex())
	}
	if err := e.ledger.Check(ledger.Move{Token: cfg.ReserveAsset, From: cfg.Engine, To: cfg.Insurance, Amount: r.totalIgnited}); err != nil {
		return nil, fmt.Errorf("spark: escrow: %w", err)
	}

	// 登记失败时不产生任何资金变动; 之后的步骤均已预检, 不会在中途失败
	if err := e.insurance.Register(ctx, cfg.Engine, id); err != nil {
		return nil, fmt.Errorf("spark: register insurance: %w", err)
	}
	if _, err := e.exchange.CreatePair(token, cfg.ReserveAsset); err != nil {
		return nil, fmt.Errorf("spark: create pair: %w", err)
	}
	if err := e.ledger.Mint(cfg.Engine, token, cfg.Engine, plan.totalSupply); err != nil {
		return nil, fmt.Errorf("spark: mint: %w", err)
	}
	pair, _, err := e.exchange.AddLiquidity(cfg.Engine, token, cfg.ReserveAsset, plan.liquidityTokens, plan.liquidityReserve, cfg.Insurance)
	if err != nil {
		return nil, fmt.Errorf("spark: add liquidity: %w", err)
	}
	bought := new(big.Int)
	if plan.buyReserve.Sign() > 0 {
		bought, err = e.exchange.SwapExactIn(cfg.Engine, cfg.ReserveAsset, token, plan.buyReserve, cfg.Insurance)
		if err != nil {
			return nil, fmt.Errorf("spark: buy: %w", err)
		}
	}
	if err := e.ledger.Apply(
		ledger.Move{Token: cfg.ReserveAsset, From: cfg.Engine, To: cfg.Insurance, Amount: plan.restReserve},
		ledger.Move{Token: token, From: cfg.Engine, To: cfg.Insurance, Amount: plan.restTokens},
	); err != nil {
		return nil, fmt.Errorf("spark: escrow: %w", err)
	}

	r.phase = phaseSparked
	r.totalSupply = plan.totalSupply
	r.rewardSupply = plan.rewardSupply
	r.pairAddress = pair
	r.escrowed = plan.restReserve

	logger.Info("Raise %d sparked: total ignited %s, supply %s, rewards %s, pair %s",
		id, wad.Format(r.totalIgnited), wad.Format(plan.totalSupply), wad.Format(plan.rewardSupply), pair.Hex())
	ev := event.New(event.Sparked, id, common.Address{}, wad.Copy(r.totalIgnited), now).
		With("total_supply", wad.Copy(plan.totalSupply)).
		With("reward_supply", wad.Copy(plan.rewardSupply)).
		With("pair", pair).
		With("token", token).
		With("liquidity_reserve", plan.liquidityReserve).
		With("liquidity_tokens", plan.liquidityTokens).
		With("buy_reserve", plan.buyReserve).
		With("bought_tokens", bought)
	return ev, nil
}

type sparkPlan struct {
	rewardSupply     *big.Int
	totalSupply      *big.Int
	liquidityReserve *big.Int
	liquidityTokens  *big.Int
	buyReserve       *big.Int
	restReserve      *big.Int
	restTokens       *big.Int
}

// planSpark 按实际募得金额计算供应量与资金分配
func planSpark(cfg settings.Settings, r *raise) (sparkPlan, error) {
	total := r.totalIgnited
	p := sparkPlan{
		rewardSupply:     wad.Mul(total, r.fixedRateWad),
		liquidityReserve: wad.MulBP(total, cfg.EthBuyBP),
		buyReserve:       wad.MulBP(total, cfg.BusdLockBP),
	}
	p.totalSupply = wad.MulDiv(p.rewardSupply, big.NewInt(wad.BP), new(big.Int).SetUint64(cfg.TokenUserBP))
	p.liquidityTokens = wad.Mul(p.liquidityReserve, r.fixedRateWad)
	if p.rewardSupply.Sign() == 0 {
		return sparkPlan{}, liftoff.Invalid("reward supply is zero")
	}
	if p.liquidityReserve.Sign() == 0 || p.liquidityTokens.Sign() == 0 {
		return sparkPlan{}, liftoff.Invalid("liquidity share must be positive")
	}

	if floor := wad.Add(p.rewardSupply, p.liquidityTokens); p.totalSupply.Cmp(floor) < 0 {
		p.totalSupply = floor
	}
	if p.buyReserve.Sign() > 0 && exchange.GetAmountOut(p.buyReserve, p.liquidityReserve, p.liquidityTokens).Sign() == 0 {
		p.buyReserve = new(big.Int)
	}
	p.restReserve = wad.Sub(wad.Sub(total, p.liquidityReserve), p.buyReserve)
	p.restTokens = wad.Sub(wad.Sub(p.totalSupply, p.rewardSupply), p.liquidityTokens)
	return p, nil
}

// ClaimReward 发射后按存款比例领取代币
func (e *Engine) ClaimReward(ctx context.Context, id uint64, depositor common.Address) (*big.Int, error) {
	ev, reward, err := e.claimReward(id, depositor)
	if err != nil {
		return nil, err
	}
	e.sink.Emit(ctx, ev)
	return reward, nil
}

func (e *Engine) claimReward(id uint64, depositor common.Address) (*event.Event, *big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.settings.Snapshot()
	r, err := e.raiseLocked(id)
	if err != nil {
		return nil, nil, err
	}
	now := e.clock.Now()
	if r.state(now) != StateSparked {
		return nil, nil, liftoff.ErrNotSparked
	}
	ig, ok := r.ignitors[depositor]
	if ok && ig.Status == IgnitorClaimed {
		return nil, nil, liftoff.ErrAlreadyClaimed
	}
	if !ok || ig.Ignited.Sign() == 0 {
		return nil, nil, liftoff.ErrNoRewards
	}
	reward := wad.MulDiv(ig.Ignited, r.rewardSupply, r.totalIgnited)
	if reward.Sign() == 0 {
		return nil, nil, liftoff.ErrNoRewards
	}

	if err := e.ledger.Transfer(r.deployedToken, cfg.Engine, depositor, reward); err != nil {
		return nil, nil, fmt.Errorf("claim reward: %w", err)
	}
	ig.Status = IgnitorClaimed

	logger.Info("Raise %d reward claimed by %s: %s", id, depositor.Hex(), wad.Format(reward))
	ev := event.New(event.RewardClaimed, id, depositor, wad.Copy(reward), now).
		With("ignited", wad.Copy(ig.Ignited)).
		With("token", r.deployedToken)
	return ev, reward, nil
}

// ClaimRefund 未达软顶时取回全部存款
func (e *Engine) ClaimRefund(ctx context.Context, id uint64, depositor common.Address) (*big.Int, error) {
	ev, amount, err := e.claimRefund(id, depositor)
	if err != nil {
		return nil, err
	}
	e.sink.Emit(ctx, ev)
	return amount, nil
}

func (e *Engine) claimRefund(id uint64, depositor common.Address) (*event.Event, *big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.settings.Snapshot()
	r, err := e.raiseLocked(id)
	if err != nil {
		return nil, nil, err
	}
	now := e.clock.Now()
	if r.state(now) != StateRefunding {
		return nil, nil, liftoff.ErrNotRefunding
	}
	ig, ok := r.ignitors[depositor]
	if ok && ig.Status == IgnitorRefunded {
		return nil, nil, liftoff.ErrAlreadyRefunded
	}
	if !ok || ig.Ignited.Sign() == 0 {
		return nil, nil, liftoff.ErrNoRefund
	}

	amount := wad.Copy(ig.Ignited)
	if err := e.ledger.Transfer(cfg.ReserveAsset, cfg.Engine, depositor, amount); err != nil {
		return nil, nil, fmt.Errorf("claim refund: %w", err)
	}
	ig.Status = IgnitorRefunded

	logger.Info("Raise %d refunded to %s: %s", id, depositor.Hex(), wad.Format(amount))
	return event.New(event.RefundClaimed, id, depositor, wad.Copy(amount), now), amount, nil
}

// UpdateEndTime 发射前调整结束时间, 仅 owner; 已进入退款的募资不可再调整
func (e *Engine) UpdateEndTime(ctx context.Context, caller common.Address, delta time.Duration, id uint64) (time.Time, error) {
	if caller != e.owner {
		return time.Time{}, liftoff.ErrNotOwner
	}

	e.mu.Lock()
	r, err := e.raiseLocked(id)
	if err != nil {
		e.mu.Unlock()
		return time.Time{}, err
	}
	now := e.clock.Now()
	if st := r.state(now); st == StateSparked || st == StateRefunding {
		e.mu.Unlock()
		return time.Time{}, fmt.Errorf("update end time on %s raise: %w", st, liftoff.ErrNotIgniting)
	}
	end := r.endTime.Add(delta)
	if !end.After(r.startTime) {
		e.mu.Unlock()
		return time.Time{}, liftoff.Invalid("must end after start")
	}
	r.endTime = end
	e.mu.Unlock()

	logger.Info("Raise %d end time moved by %s to %s", id, delta, end.Format(time.RFC3339))
	e.sink.Emit(ctx, event.New(event.EndTimeUpdated, id, caller, nil, now).With("end_time", end))
	return end, nil
}
