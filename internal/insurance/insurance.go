// Package insurance 发射后的底价保险: 固定价格赎回, 按周期归属的领取, 以及储备耗尽后的解除
package insurance

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/blues/liftoff/internal/engine"
	"github.com/blues/liftoff/internal/event"
	"github.com/blues/liftoff/internal/exchange"
	"github.com/blues/liftoff/internal/ledger"
	"github.com/blues/liftoff/internal/liftoff"
	"github.com/blues/liftoff/internal/logger"
	"github.com/blues/liftoff/internal/partnership"
	"github.com/blues/liftoff/internal/settings"
	"github.com/blues/liftoff/internal/wad"
	"github.com/ethereum/go-ethereum/common"
)

// Status 保险记录状态
type Status int

const (
	StatusRegistered  Status = iota // 已登记, 待创建
	StatusInitialized               // 生效中
	StatusUnwound                   // 已解除, 固定价格兑付永久关闭
)

func (s Status) String() string {
	switch s {
	case StatusRegistered:
		return "registered"
	case StatusInitialized:
		return "initialized"
	case StatusUnwound:
		return "unwound"
	default:
		return "unknown"
	}
}

// Raises 读取发射快照
type Raises interface {
	GetRaiseForInsurance(id uint64) (engine.Snapshot, error)
}

// Partners 读取合作方分成表
type Partners interface {
	GetActivePartnerShares(raiseId uint64) []partnership.Share
}

type record struct {
	id         uint64
	status     Status
	token      common.Address
	pair       common.Address
	projectDev common.Address

	startTime        time.Time
	totalIgnited     *big.Int
	tokensPerEthWad  *big.Int
	baseBusd         *big.Int
	baseTokenLidPool *big.Int
	baseFee          *big.Int
	baseFeeClaimed   bool

	reserve          *big.Int
	redeemedBusd     *big.Int
	claimedBusd      *big.Int
	claimedToken     *big.Int
	lastClaimedCycle uint64
	bonus            map[common.Address]*big.Int
}

func (r *record) initialized() bool {
	return r.status == StatusInitialized || r.status == StatusUnwound
}

// Options 保险引擎依赖
type Options struct {
	Owner    common.Address
	Settings *settings.Store
	Ledger   *ledger.Ledger
	Exchange exchange.Exchange
	Raises   Raises
	Partners Partners
	Clock    clock.Clock
	Sink     event.Sink
}

// Insurance 保险引擎
type Insurance struct {
	mu       sync.Mutex
	owner    common.Address
	settings *settings.Store
	ledger   *ledger.Ledger
	exchange exchange.Exchange
	raises   Raises
	partners Partners
	clock    clock.Clock
	sink     event.Sink
	records  map[uint64]*record
}

// New 创建保险引擎
func New(opts Options) *Insurance {
	ins := &Insurance{
		owner:    opts.Owner,
		settings: opts.Settings,
		ledger:   opts.Ledger,
		exchange: opts.Exchange,
		raises:   opts.Raises,
		partners: opts.Partners,
		clock:    opts.Clock,
		sink:     opts.Sink,
		records:  make(map[uint64]*record),
	}
	if ins.clock == nil {
		ins.clock = clock.New()
	}
	if ins.sink == nil {
		ins.sink = event.NopSink{}
	}
	return ins
}

// SetSettings 替换参数存储, 仅 owner
func (ins *Insurance) SetSettings(caller common.Address, s *settings.Store) error {
	if caller != ins.owner {
		return liftoff.ErrNotOwner
	}

	ins.mu.Lock()
	defer ins.mu.Unlock()
	ins.settings = s
	return nil
}

// Register 发射时由募资引擎登记
func (ins *Insurance) Register(ctx context.Context, caller common.Address, id uint64) error {
	ins.mu.Lock()
	cfg := ins.settings.Snapshot()
	if caller != cfg.Engine {
		ins.mu.Unlock()
		return liftoff.ErrNotEngine
	}
	if _, ok := ins.records[id]; ok {
		ins.mu.Unlock()
		return liftoff.ErrAlreadyRegistered
	}
	ins.records[id] = &record{
		id:               id,
		status:           StatusRegistered,
		totalIgnited:     new(big.Int),
		tokensPerEthWad:  new(big.Int),
		baseBusd:         new(big.Int),
		baseTokenLidPool: new(big.Int),
		baseFee:          new(big.Int),
		reserve:          new(big.Int),
		redeemedBusd:     new(big.Int),
		claimedBusd:      new(big.Int),
		claimedToken:     new(big.Int),
		bonus:            make(map[common.Address]*big.Int),
	}
	now := ins.clock.Now()
	ins.mu.Unlock()

	logger.Info("Insurance registered for raise %d", id)
	ins.sink.Emit(ctx, event.New(event.InsuranceRegistered, id, caller, nil, now))
	return nil
}

// CreateInsurance 根据发射快照初始化保险, 只能执行一次
func (ins *Insurance) CreateInsurance(ctx context.Context, id uint64) error {
	// 快照须在持有保险锁之前读取
	snap, err := ins.raises.GetRaiseForInsurance(id)
	if err != nil {
		return err
	}

	ins.mu.Lock()
	cfg := ins.settings.Snapshot()
	rec, ok := ins.records[id]
	if !ok || !CanCreateInsurance(rec.initialized(), true) || !snap.Sparked {
		ins.mu.Unlock()
		return liftoff.ErrCannotCreateInsurance
	}

	netIgnited := wad.MulBP(snap.TotalIgnited, wad.BP-cfg.BaseFeeBP)
	if netIgnited.Sign() == 0 {
		ins.mu.Unlock()
		return fmt.Errorf("create insurance: %w", liftoff.Invalid("net raised amount is zero"))
	}

	now := ins.clock.Now()
	rec.status = StatusInitialized
	rec.startTime = now
	rec.token = snap.DeployedToken
	rec.pair = snap.PairAddress
	rec.projectDev = snap.ProjectDev
	rec.totalIgnited = wad.Copy(snap.TotalIgnited)
	rec.tokensPerEthWad = wad.Div(snap.RewardSupply, netIgnited)
	rec.baseBusd = wad.MulBP(snap.TotalIgnited, wad.BP-cfg.EthBuyBP)
	rec.baseFee = wad.MulBP(snap.TotalIgnited, cfg.BaseFeeBP)
	rec.baseTokenLidPool = ins.ledger.BalanceOf(snap.DeployedToken, cfg.Insurance)
	rec.reserve = wad.Copy(snap.Escrowed)
	ev := event.New(event.InsuranceCreated, id, common.Address{}, wad.Copy(rec.totalIgnited), now).
		With("tokens_per_eth", wad.Copy(rec.tokensPerEthWad)).
		With("base_busd", wad.Copy(rec.baseBusd)).
		With("base_token_lid_pool", wad.Copy(rec.baseTokenLidPool)).
		With("base_fee", wad.Copy(rec.baseFee))
	ins.mu.Unlock()

	logger.Info("Insurance created for raise %d: tokens per eth %s, base busd %s, base tokens %s",
		id, wad.Format(rec.tokensPerEthWad), wad.Format(rec.baseBusd), wad.Format(rec.baseTokenLidPool))
	ins.sink.Emit(ctx, ev)
	return nil
}

// GetRedeemValue 固定价格兑付金额
func (ins *Insurance) GetRedeemValue(amount, tokensPerEthWad *big.Int) *big.Int {
	return RedeemValue(amount, tokensPerEthWad)
}

// Redeem 交回代币换取储备; 解除后改为按市价卖出
func (ins *Insurance) Redeem(ctx context.Context, caller common.Address, id uint64, tokenAmount *big.Int) (*big.Int, error) {
	if tokenAmount == nil || tokenAmount.Sign() <= 0 {
		return nil, liftoff.Invalid("redeem amount must be positive")
	}

	evs, paid, err := ins.redeem(caller, id, tokenAmount)
	if err != nil {
		return nil, err
	}
	for _, ev := range evs {
		ins.sink.Emit(ctx, ev)
	}
	return paid, nil
}

func (ins *Insurance) redeem(caller common.Address, id uint64, tokenAmount *big.Int) ([]*event.Event, *big.Int, error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	cfg := ins.settings.Snapshot()
	rec, ok := ins.records[id]
	if !ok || !rec.initialized() {
		return nil, nil, liftoff.ErrInsuranceNotInitialized
	}
	now := ins.clock.Now()

	if rec.status == StatusUnwound {
		out, err := ins.exchange.SwapExactIn(caller, rec.token, cfg.ReserveAsset, tokenAmount, caller)
		if err != nil {
			return nil, nil, fmt.Errorf("redeem after unwind: %w", err)
		}
		logger.Info("Raise %d redeemed at market by %s: %s tokens for %s", id, caller.Hex(), wad.Format(tokenAmount), wad.Format(out))
		ev := event.New(event.Redeemed, id, caller, wad.Copy(out), now).
			With("tokens", wad.Copy(tokenAmount)).
			With("market", true)
		return []*event.Event{ev}, out, nil
	}

	value := RedeemValue(tokenAmount, rec.tokensPerEthWad)
	if value.Sign() == 0 {
		return nil, nil, liftoff.ErrRedeemTooSmall
	}

	bonus := rec.bonus[caller]
	if bonus == nil {
		bonus = new(big.Int)
	}
	fromBonus := wad.Min(bonus, value)
	fromPool := wad.Sub(value, fromBonus)

	committed := wad.Add(wad.Add(rec.redeemedBusd, rec.claimedBusd), value)
	if committed.Cmp(rec.totalIgnited) > 0 || fromPool.Cmp(rec.reserve) > 0 {
		return nil, nil, liftoff.ErrRedeemExceedsInsurance
	}
	exhausted := IsInsuranceExhausted(now, rec.startTime, cfg.InsurancePeriod, value,
		rec.baseBusd, rec.redeemedBusd, rec.claimedBusd, false)
	if !exhausted && wad.Add(rec.redeemedBusd, value).Cmp(rec.baseBusd) > 0 {
		return nil, nil, liftoff.ErrRedeemExceedsInsurance
	}

	if err := ins.ledger.Apply(
		ledger.Move{Token: rec.token, From: caller, To: cfg.Insurance, Amount: tokenAmount},
		ledger.Move{Token: cfg.ReserveAsset, From: cfg.Insurance, To: caller, Amount: value},
	); err != nil {
		return nil, nil, fmt.Errorf("redeem: %w", err)
	}

	if fromBonus.Sign() > 0 {
		rec.bonus[caller] = wad.Sub(bonus, fromBonus)
	}
	rec.reserve.Sub(rec.reserve, fromPool)
	rec.redeemedBusd.Add(rec.redeemedBusd, value)

	logger.Info("Raise %d redeemed by %s: %s tokens for %s (bonus %s), redeemed total %s",
		id, caller.Hex(), wad.Format(tokenAmount), wad.Format(value), wad.Format(fromBonus), wad.Format(rec.redeemedBusd))
	evs := []*event.Event{
		event.New(event.Redeemed, id, caller, wad.Copy(value), now).
			With("tokens", wad.Copy(tokenAmount)).
			With("from_bonus", fromBonus).
			With("redeemed_total", wad.Copy(rec.redeemedBusd)),
	}
	if exhausted {
		rec.status = StatusUnwound
		logger.Warn("Insurance for raise %d unwound: base %s, redeemed %s, claimed %s",
			id, wad.Format(rec.baseBusd), wad.Format(rec.redeemedBusd), wad.Format(rec.claimedBusd))
		evs = append(evs, event.New(event.InsuranceUnwound, id, caller, wad.Copy(rec.redeemedBusd), now))
	}
	return evs, value, nil
}

// ClaimResult 一次领取的分配结果
type ClaimResult struct {
	BaseFee     *big.Int
	Cycle       uint64
	Busd        *big.Int
	Tokens      *big.Int
	Allocations map[common.Address]*big.Int
}

// Claim 领取: 先领取协议基础费用, 之后按周期释放储备与代币
func (ins *Insurance) Claim(ctx context.Context, id uint64) (ClaimResult, error) {
	ev, res, err := ins.claim(id)
	if err != nil {
		return ClaimResult{}, err
	}
	ins.sink.Emit(ctx, ev)
	return res, nil
}

func (ins *Insurance) claim(id uint64) (*event.Event, ClaimResult, error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	cfg := ins.settings.Snapshot()
	rec, ok := ins.records[id]
	if !ok || !rec.initialized() {
		return nil, ClaimResult{}, liftoff.ErrInsuranceNotInitialized
	}
	now := ins.clock.Now()

	if !rec.baseFeeClaimed {
		fee := wad.Min(rec.baseFee, rec.reserve)
		if err := ins.ledger.Transfer(cfg.ReserveAsset, cfg.Insurance, cfg.LidTreasury, fee); err != nil {
			return nil, ClaimResult{}, fmt.Errorf("claim base fee: %w", err)
		}
		rec.reserve.Sub(rec.reserve, fee)
		rec.baseFeeClaimed = true

		logger.Info("Raise %d base fee claimed: %s to %s", id, wad.Format(fee), cfg.LidTreasury.Hex())
		ev := event.New(event.BaseFeeClaimed, id, cfg.LidTreasury, wad.Copy(fee), now)
		return ev, ClaimResult{BaseFee: fee, Busd: new(big.Int), Tokens: new(big.Int)}, nil
	}
	if rec.status == StatusUnwound {
		return nil, ClaimResult{}, liftoff.ErrTokenInsuranceUnwound
	}

	cycles := Cycles(now, rec.startTime, cfg.InsurancePeriod)
	if cycles == 0 {
		return nil, ClaimResult{}, liftoff.ErrCannotClaimYet
	}
	if cycles <= rec.lastClaimedCycle {
		return nil, ClaimResult{}, liftoff.ErrAlreadyClaimedThisCycle
	}

	nominal := TotalBusdClaimable(rec.totalIgnited, rec.redeemedBusd, rec.claimedBusd, cycles)
	claimable := wad.Min(nominal, rec.reserve)
	share := func(bp uint64) *big.Int {
		return BusdShare(rec.totalIgnited, rec.redeemedBusd, rec.claimedBusd, cycles, bp)
	}
	if claimable.Cmp(nominal) < 0 {
		// 托管不足时按实际可付金额拆分
		share = func(bp uint64) *big.Int { return wad.MulBP(claimable, bp) }
	}
	alloc, moves := ins.distribute(cfg, rec, share)

	tokens := TotalTokenClaimable(rec.baseTokenLidPool, cycles, rec.claimedToken)
	tokens = wad.Min(tokens, ins.ledger.BalanceOf(rec.token, cfg.Insurance))
	if tokens.Sign() > 0 {
		moves = append(moves, ledger.Move{Token: rec.token, From: cfg.Insurance, To: cfg.LidPoolManager, Amount: tokens})
	}
	if err := ins.ledger.Apply(moves...); err != nil {
		return nil, ClaimResult{}, fmt.Errorf("claim: %w", err)
	}

	paid := new(big.Int)
	for _, amt := range alloc {
		paid.Add(paid, amt)
	}
	rec.reserve.Sub(rec.reserve, paid)
	rec.claimedBusd.Add(rec.claimedBusd, claimable)
	rec.claimedToken.Add(rec.claimedToken, tokens)
	rec.lastClaimedCycle = cycles

	logger.Info("Raise %d insurance claimed for cycle %d: busd %s (paid %s), tokens %s",
		id, cycles, wad.Format(claimable), wad.Format(paid), wad.Format(tokens))
	ev := event.New(event.InsuranceClaimed, id, common.Address{}, wad.Copy(claimable), now).
		With("cycle", cycles).
		With("paid", wad.Copy(paid)).
		With("tokens", wad.Copy(tokens))
	return ev, ClaimResult{Cycle: cycles, Busd: claimable, Tokens: tokens, Allocations: alloc}, nil
}

// distribute 按基点拆分, share 给出单个基点份额的金额; 合作方份额从项目方份额中扣除
func (ins *Insurance) distribute(cfg settings.Settings, rec *record, share func(bp uint64) *big.Int) (map[common.Address]*big.Int, []ledger.Move) {
	alloc := make(map[common.Address]*big.Int)
	var moves []ledger.Move
	pay := func(to common.Address, bp uint64) {
		amt := share(bp)
		if amt.Sign() == 0 {
			return
		}
		if prev, ok := alloc[to]; ok {
			alloc[to] = wad.Add(prev, amt)
		} else {
			alloc[to] = amt
		}
		moves = append(moves, ledger.Move{Token: cfg.ReserveAsset, From: cfg.Insurance, To: to, Amount: amt})
	}

	var partnerBP uint64
	var shares []partnership.Share
	if ins.partners != nil {
		shares = ins.partners.GetActivePartnerShares(rec.id)
	}
	for _, s := range shares {
		partnerBP += s.BP
	}
	devBP := uint64(0)
	if partnerBP < cfg.ProjectDevBP {
		devBP = cfg.ProjectDevBP - partnerBP
	}

	pay(cfg.LidTreasury, cfg.MainFeeBP)
	pay(cfg.LidPoolManager, cfg.LidPoolBP)
	for _, s := range shares {
		pay(s.Address, s.BP)
	}
	pay(rec.projectDev, devBP)
	return alloc, moves
}

// IncreaseInsuranceBonus 由 contributor 补充额外保险, 仅 owner
func (ins *Insurance) IncreaseInsuranceBonus(ctx context.Context, caller common.Address, id uint64, contributor common.Address, amount *big.Int) error {
	return ins.adjustBonus(ctx, caller, id, contributor, amount, true)
}

// DecreaseInsuranceBonus 退还 contributor 的额外保险, 仅 owner
func (ins *Insurance) DecreaseInsuranceBonus(ctx context.Context, caller common.Address, id uint64, contributor common.Address, amount *big.Int) error {
	return ins.adjustBonus(ctx, caller, id, contributor, amount, false)
}

func (ins *Insurance) adjustBonus(ctx context.Context, caller common.Address, id uint64, contributor common.Address, amount *big.Int, increase bool) error {
	if caller != ins.owner {
		return liftoff.ErrNotOwner
	}
	if amount == nil || amount.Sign() <= 0 {
		return liftoff.Invalid("bonus amount must be positive")
	}

	ins.mu.Lock()
	cfg := ins.settings.Snapshot()
	rec, ok := ins.records[id]
	if !ok {
		ins.mu.Unlock()
		return fmt.Errorf("insurance %d: %w", id, liftoff.ErrRaiseNotFound)
	}
	current := rec.bonus[contributor]
	if current == nil {
		current = new(big.Int)
	}

	move := ledger.Move{Token: cfg.ReserveAsset, From: contributor, To: cfg.Insurance, Amount: amount}
	next := wad.Add(current, amount)
	typ := event.BonusIncreased
	if !increase {
		if current.Cmp(amount) < 0 {
			ins.mu.Unlock()
			return liftoff.ErrBonusExceeded
		}
		move = ledger.Move{Token: cfg.ReserveAsset, From: cfg.Insurance, To: contributor, Amount: amount}
		next = wad.Sub(current, amount)
		typ = event.BonusDecreased
	}
	if err := ins.ledger.Apply(move); err != nil {
		ins.mu.Unlock()
		return fmt.Errorf("adjust bonus: %w", err)
	}
	rec.bonus[contributor] = next
	now := ins.clock.Now()
	ins.mu.Unlock()

	logger.Info("Raise %d bonus insurance of %s set to %s", id, contributor.Hex(), wad.Format(next))
	ins.sink.Emit(ctx, event.New(typ, id, contributor, wad.Copy(amount), now).With("bonus", wad.Copy(next)))
	return nil
}
