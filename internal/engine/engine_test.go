package engine

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/blues/liftoff/internal/exchange"
	"github.com/blues/liftoff/internal/ledger"
	"github.com/blues/liftoff/internal/liftoff"
	"github.com/blues/liftoff/internal/settings"
	"github.com/blues/liftoff/internal/wad"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner        = common.HexToAddress("0x01")
	engineAddr   = common.HexToAddress("0x10")
	insAddr      = common.HexToAddress("0x11")
	regAddr      = common.HexToAddress("0x12")
	reserveAsset = common.HexToAddress("0x14")
	dev          = common.HexToAddress("0x20")
	ignitors     = []common.Address{
		common.HexToAddress("0x31"),
		common.HexToAddress("0x32"),
		common.HexToAddress("0x33"),
		common.HexToAddress("0x34"),
	}
)

type stubRegistrar struct {
	registered map[uint64]bool
	err        error
}

func (s *stubRegistrar) Register(_ context.Context, caller common.Address, id uint64) error {
	if s.err != nil {
		return s.err
	}
	if caller != engineAddr {
		return liftoff.ErrNotEngine
	}
	if s.registered[id] {
		return liftoff.ErrAlreadyRegistered
	}
	s.registered[id] = true
	return nil
}

func (s *stubRegistrar) IsRegistered(id uint64) bool {
	return s.registered[id]
}

type fixture struct {
	ctx      context.Context
	clock    *clock.Mock
	ledger   *ledger.Ledger
	exchange *exchange.ConstantProduct
	engine   *Engine
	ins      *stubRegistrar
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ctx:    context.Background(),
		clock:  clock.NewMock(),
		ledger: ledger.New(),
		ins:    &stubRegistrar{registered: make(map[uint64]bool)},
	}
	f.clock.Set(time.Unix(1700000000, 0))
	require.NoError(t, f.ledger.RegisterAsset(reserveAsset, owner, "Binance USD", "BUSD"))
	for _, addr := range ignitors {
		require.NoError(t, f.ledger.Mint(owner, reserveAsset, addr, wad.Ether("5000")))
	}

	cfg := settings.Defaults()
	cfg.Insurance = insAddr
	cfg.Registration = regAddr
	cfg.Engine = engineAddr
	cfg.ReserveAsset = reserveAsset
	store, err := settings.NewStore(owner, cfg)
	require.NoError(t, err)

	f.exchange = exchange.NewConstantProduct(f.ledger)
	f.engine = New(Options{Owner: owner, Settings: store, Ledger: f.ledger, Exchange: f.exchange, Clock: f.clock})
	f.engine.SetInsurance(f.ins)
	return f
}

func (f *fixture) params(window time.Duration, softCap, hardCap string) LaunchParams {
	now := f.clock.Now()
	return LaunchParams{
		StartTime:    now.Add(time.Hour),
		EndTime:      now.Add(time.Hour + window),
		SoftCap:      wad.Ether(softCap),
		HardCap:      wad.Ether(hardCap),
		FixedRateWad: wad.Ether("10"),
		Name:         "Lift Token",
		Symbol:       "LIFT",
		ProjectDev:   dev,
	}
}

func (f *fixture) launch(t *testing.T, p LaunchParams) uint64 {
	t.Helper()
	id, err := f.engine.LaunchToken(f.ctx, regAddr, p)
	require.NoError(t, err)
	return id
}

func TestLaunchTokenValidation(t *testing.T) {
	f := newFixture(t)
	base := f.params(24*time.Hour, "500", "2000")

	_, err := f.engine.LaunchToken(f.ctx, dev, base)
	assert.ErrorIs(t, err, liftoff.ErrNotRegistration)

	cases := []struct {
		name   string
		modify func(p *LaunchParams)
	}{
		{"end before start", func(p *LaunchParams) { p.EndTime = p.StartTime }},
		{"start in past", func(p *LaunchParams) { p.StartTime = f.clock.Now().Add(-time.Minute) }},
		{"hardcap below softcap", func(p *LaunchParams) { p.HardCap = wad.Ether("400") }},
		{"softcap below minimum", func(p *LaunchParams) { p.SoftCap = wad.Ether("9") }},
		{"rate too low", func(p *LaunchParams) { p.FixedRateWad = big.NewInt(1) }},
		{"rate too high", func(p *LaunchParams) { p.FixedRateWad = wad.Ether("1000000001") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.modify(&p)
			_, err := f.engine.LaunchToken(f.ctx, regAddr, p)
			assert.ErrorIs(t, err, liftoff.ErrInvalidParameters)
		})
	}
	assert.Equal(t, uint64(0), f.engine.TotalRaises())

	id := f.launch(t, base)
	assert.Equal(t, uint64(0), id)
	view, err := f.engine.GetRaise(id)
	require.NoError(t, err)
	assert.Equal(t, StateScheduled, view.State)
	meta, ok := f.ledger.Token(view.DeployedToken)
	require.True(t, ok)
	assert.Equal(t, "LIFT", meta.Symbol)
	assert.Equal(t, engineAddr, meta.Owner)
}

func TestIgniteUndoSparkClaim(t *testing.T) {
	f := newFixture(t)
	id := f.launch(t, f.params(24*time.Hour, "500", "2000"))

	_, err := f.engine.Ignite(f.ctx, ignitors[0], id, ignitors[0], wad.Ether("300"))
	assert.ErrorIs(t, err, liftoff.ErrNotIgniting)

	f.clock.Add(time.Hour)
	deposits := []string{"300", "200", "500", "500"}
	for i, amt := range deposits {
		accepted, err := f.engine.Ignite(f.ctx, ignitors[i], id, ignitors[i], wad.Ether(amt))
		require.NoError(t, err)
		assert.Equal(t, wad.Ether(amt).String(), accepted.String())
	}

	refunded, err := f.engine.UndoIgnite(f.ctx, ignitors[3], id)
	require.NoError(t, err)
	assert.Equal(t, wad.Ether("500").String(), refunded.String())
	assert.Equal(t, wad.Ether("5000").String(), f.ledger.BalanceOf(reserveAsset, ignitors[3]).String())

	_, err = f.engine.UndoIgnite(f.ctx, ignitors[3], id)
	assert.ErrorIs(t, err, liftoff.ErrInvalidParameters)

	view, err := f.engine.GetRaise(id)
	require.NoError(t, err)
	assert.Equal(t, wad.Ether("1000").String(), view.TotalIgnited.String())
	assert.Equal(t, StateIgniting, view.State)

	err = f.engine.Spark(f.ctx, id)
	assert.ErrorIs(t, err, liftoff.ErrNotSparkReady)
	_, err = f.engine.ClaimReward(f.ctx, id, ignitors[0])
	assert.ErrorIs(t, err, liftoff.ErrNotSparked)

	f.clock.Add(24 * time.Hour)
	state, err := f.engine.State(id)
	require.NoError(t, err)
	assert.Equal(t, StateSparkReady, state)

	require.NoError(t, f.engine.Spark(f.ctx, id))
	assert.True(t, f.ins.IsRegistered(id))
	assert.Equal(t, []uint64{id}, f.engine.RaisesInState(StateSparked))

	err = f.engine.Spark(f.ctx, id)
	assert.ErrorIs(t, err, liftoff.ErrNotSparkReady)

	view, err = f.engine.GetRaise(id)
	require.NoError(t, err)
	assert.Equal(t, wad.Ether("10000").String(), view.RewardSupply.String())
	assert.Equal(t, view.TotalSupply.String(), f.ledger.TotalSupply(view.DeployedToken).String())
	pair, ok := f.exchange.GetPair(view.DeployedToken, reserveAsset)
	require.True(t, ok)
	assert.Equal(t, pair, view.PairAddress)
	assert.Equal(t, "0", f.ledger.BalanceOf(reserveAsset, engineAddr).String())
	assert.Equal(t, wad.Ether("826").String(), f.ledger.BalanceOf(reserveAsset, insAddr).String())

	snap, err := f.engine.GetRaiseForInsurance(id)
	require.NoError(t, err)
	assert.True(t, snap.Sparked)
	assert.Equal(t, wad.Ether("826").String(), snap.Escrowed.String())

	// 奖励按存款占比分配
	rewards := []string{"3000", "2000", "5000"}
	for i, want := range rewards {
		got, err := f.engine.ClaimReward(f.ctx, id, ignitors[i])
		require.NoError(t, err)
		assert.Equal(t, wad.Ether(want).String(), got.String())
		assert.Equal(t, wad.Ether(want).String(), f.ledger.BalanceOf(view.DeployedToken, ignitors[i]).String())
	}
	assert.Equal(t, "0", f.ledger.BalanceOf(view.DeployedToken, engineAddr).String())

	_, err = f.engine.ClaimReward(f.ctx, id, ignitors[0])
	assert.ErrorIs(t, err, liftoff.ErrAlreadyClaimed)
	_, err = f.engine.ClaimReward(f.ctx, id, ignitors[3])
	assert.ErrorIs(t, err, liftoff.ErrNoRewards)
	_, err = f.engine.ClaimRefund(f.ctx, id, ignitors[1])
	assert.ErrorIs(t, err, liftoff.ErrNotRefunding)

	ig, err := f.engine.Ignited(id, ignitors[0])
	require.NoError(t, err)
	assert.Equal(t, IgnitorClaimed, ig.Status)
}

func TestIgniteClampsToHardCap(t *testing.T) {
	f := newFixture(t)
	id := f.launch(t, f.params(24*time.Hour, "500", "1000"))
	f.clock.Add(time.Hour)

	_, err := f.engine.Ignite(f.ctx, ignitors[0], id, ignitors[0], wad.Ether("800"))
	require.NoError(t, err)
	accepted, err := f.engine.Ignite(f.ctx, ignitors[1], id, ignitors[2], wad.Ether("500"))
	require.NoError(t, err)
	assert.Equal(t, wad.Ether("200").String(), accepted.String())
	assert.Equal(t, wad.Ether("4800").String(), f.ledger.BalanceOf(reserveAsset, ignitors[1]).String())

	ig, err := f.engine.Ignited(id, ignitors[2])
	require.NoError(t, err)
	assert.Equal(t, wad.Ether("200").String(), ig.Ignited.String())

	// 达到硬顶后立即可发射
	state, err := f.engine.State(id)
	require.NoError(t, err)
	assert.Equal(t, StateSparkReady, state)
	_, err = f.engine.Ignite(f.ctx, ignitors[3], id, ignitors[3], wad.Ether("1"))
	assert.ErrorIs(t, err, liftoff.ErrNotIgniting)
}

func TestIgnitionSumMatchesTotal(t *testing.T) {
	f := newFixture(t)
	id := f.launch(t, f.params(24*time.Hour, "500", "20000"))
	f.clock.Add(time.Hour)

	amounts := []string{"12.5", "100", "0.000000000000000001", "777", "42"}
	for i, amt := range amounts {
		addr := ignitors[i%len(ignitors)]
		_, err := f.engine.Ignite(f.ctx, addr, id, addr, wad.Ether(amt))
		require.NoError(t, err)
	}
	_, err := f.engine.UndoIgnite(f.ctx, ignitors[1], id)
	require.NoError(t, err)

	all, err := f.engine.Ignitors(id)
	require.NoError(t, err)
	sum := new(big.Int)
	for _, ig := range all {
		sum.Add(sum, ig.Ignited)
	}
	view, err := f.engine.GetRaise(id)
	require.NoError(t, err)
	assert.Equal(t, view.TotalIgnited.String(), sum.String())
	assert.Equal(t, view.TotalIgnited.String(), f.ledger.BalanceOf(reserveAsset, engineAddr).String())
}

func TestRefund(t *testing.T) {
	f := newFixture(t)
	id := f.launch(t, f.params(24*time.Hour, "1000", "2000"))
	f.clock.Add(time.Hour)

	_, err := f.engine.Ignite(f.ctx, ignitors[0], id, ignitors[0], wad.Ether("300"))
	require.NoError(t, err)

	_, err = f.engine.ClaimRefund(f.ctx, id, ignitors[0])
	assert.ErrorIs(t, err, liftoff.ErrNotRefunding)

	f.clock.Add(24 * time.Hour)
	state, err := f.engine.State(id)
	require.NoError(t, err)
	assert.Equal(t, StateRefunding, state)

	err = f.engine.Spark(f.ctx, id)
	assert.ErrorIs(t, err, liftoff.ErrNotSparkReady)

	amount, err := f.engine.ClaimRefund(f.ctx, id, ignitors[0])
	require.NoError(t, err)
	assert.Equal(t, wad.Ether("300").String(), amount.String())
	assert.Equal(t, wad.Ether("5000").String(), f.ledger.BalanceOf(reserveAsset, ignitors[0]).String())

	_, err = f.engine.ClaimRefund(f.ctx, id, ignitors[0])
	assert.ErrorIs(t, err, liftoff.ErrAlreadyRefunded)
	_, err = f.engine.ClaimRefund(f.ctx, id, ignitors[1])
	assert.ErrorIs(t, err, liftoff.ErrNoRefund)
}

func TestUpdateEndTime(t *testing.T) {
	f := newFixture(t)
	p := f.params(24*time.Hour, "500", "2000")
	id := f.launch(t, p)

	_, err := f.engine.UpdateEndTime(f.ctx, dev, time.Hour, id)
	assert.ErrorIs(t, err, liftoff.ErrNotOwner)

	end, err := f.engine.UpdateEndTime(f.ctx, owner, 12*time.Hour, id)
	require.NoError(t, err)
	assert.Equal(t, p.EndTime.Add(12*time.Hour), end)

	_, err = f.engine.UpdateEndTime(f.ctx, owner, -48*time.Hour, id)
	assert.ErrorIs(t, err, liftoff.ErrInvalidParameters)

	_, err = f.engine.UpdateEndTime(f.ctx, owner, time.Hour, 9)
	assert.ErrorIs(t, err, liftoff.ErrRaiseNotFound)
}

func TestUpdateEndTimeAfterWindow(t *testing.T) {
	f := newFixture(t)
	failed := f.launch(t, f.params(24*time.Hour, "1000", "2000"))
	other := f.launch(t, f.params(24*time.Hour, "500", "2000"))
	capped := f.launch(t, f.params(24*time.Hour, "500", "1000"))
	f.clock.Add(time.Hour)

	_, err := f.engine.Ignite(f.ctx, ignitors[0], failed, ignitors[0], wad.Ether("300"))
	require.NoError(t, err)
	_, err = f.engine.Ignite(f.ctx, ignitors[1], other, ignitors[1], wad.Ether("500"))
	require.NoError(t, err)
	_, err = f.engine.Ignite(f.ctx, ignitors[2], capped, ignitors[2], wad.Ether("1000"))
	require.NoError(t, err)

	// 达到硬顶的募资仍可调整, 状态不变
	_, err = f.engine.UpdateEndTime(f.ctx, owner, time.Hour, capped)
	require.NoError(t, err)
	state, err := f.engine.State(capped)
	require.NoError(t, err)
	assert.Equal(t, StateSparkReady, state)

	f.clock.Add(24 * time.Hour)

	// 退款状态为终态, 领取退款前后都不能重新开放
	_, err = f.engine.UpdateEndTime(f.ctx, owner, 48*time.Hour, failed)
	assert.ErrorIs(t, err, liftoff.ErrNotIgniting)
	_, err = f.engine.ClaimRefund(f.ctx, failed, ignitors[0])
	require.NoError(t, err)
	_, err = f.engine.UpdateEndTime(f.ctx, owner, 48*time.Hour, failed)
	assert.ErrorIs(t, err, liftoff.ErrNotIgniting)

	state, err = f.engine.State(failed)
	require.NoError(t, err)
	assert.Equal(t, StateRefunding, state)
	_, err = f.engine.UndoIgnite(f.ctx, ignitors[0], failed)
	assert.ErrorIs(t, err, liftoff.ErrNotIgniting)

	assert.Equal(t, wad.Ether("5000").String(), f.ledger.BalanceOf(reserveAsset, ignitors[0]).String())
	assert.Equal(t, wad.Ether("1500").String(), f.ledger.BalanceOf(reserveAsset, engineAddr).String())

	require.NoError(t, f.engine.Spark(f.ctx, other))
	_, err = f.engine.UpdateEndTime(f.ctx, owner, time.Hour, other)
	assert.ErrorIs(t, err, liftoff.ErrNotIgniting)
}

func TestRefundedIgnitorCannotReenter(t *testing.T) {
	f := newFixture(t)
	id := f.launch(t, f.params(24*time.Hour, "500", "2000"))
	f.clock.Add(time.Hour)

	_, err := f.engine.Ignite(f.ctx, ignitors[0], id, ignitors[0], wad.Ether("300"))
	require.NoError(t, err)
	f.engine.raises[id].ignitors[ignitors[0]].Status = IgnitorRefunded

	_, err = f.engine.Ignite(f.ctx, ignitors[1], id, ignitors[0], wad.Ether("100"))
	assert.ErrorIs(t, err, liftoff.ErrAlreadyRefunded)
	_, err = f.engine.UndoIgnite(f.ctx, ignitors[0], id)
	assert.ErrorIs(t, err, liftoff.ErrAlreadyRefunded)

	view, err := f.engine.GetRaise(id)
	require.NoError(t, err)
	assert.Equal(t, wad.Ether("300").String(), view.TotalIgnited.String())
	assert.Equal(t, wad.Ether("5000").String(), f.ledger.BalanceOf(reserveAsset, ignitors[1]).String())
	assert.Equal(t, wad.Ether("300").String(), f.ledger.BalanceOf(reserveAsset, engineAddr).String())
}

func TestSparkLeavesNoTraceWhenRegistrationFails(t *testing.T) {
	f := newFixture(t)
	id := f.launch(t, f.params(24*time.Hour, "500", "2000"))
	f.clock.Add(time.Hour)
	_, err := f.engine.Ignite(f.ctx, ignitors[0], id, ignitors[0], wad.Ether("1000"))
	require.NoError(t, err)
	f.clock.Add(24 * time.Hour)

	f.ins.err = liftoff.ErrNotEngine
	err = f.engine.Spark(f.ctx, id)
	assert.ErrorIs(t, err, liftoff.ErrNotEngine)

	view, err := f.engine.GetRaise(id)
	require.NoError(t, err)
	assert.Equal(t, StateSparkReady, view.State)
	assert.Equal(t, "0", view.TotalSupply.String())
	assert.Equal(t, "0", f.ledger.TotalSupply(view.DeployedToken).String())
	_, ok := f.exchange.GetPair(view.DeployedToken, reserveAsset)
	assert.False(t, ok)
	assert.Equal(t, wad.Ether("1000").String(), f.ledger.BalanceOf(reserveAsset, engineAddr).String())
	assert.Equal(t, "0", f.ledger.BalanceOf(reserveAsset, insAddr).String())

	f.ins.err = nil
	require.NoError(t, f.engine.Spark(f.ctx, id))
	state, err := f.engine.State(id)
	require.NoError(t, err)
	assert.Equal(t, StateSparked, state)
	assert.Equal(t, wad.Ether("826").String(), f.ledger.BalanceOf(reserveAsset, insAddr).String())
}

func TestPlanSpark(t *testing.T) {
	r := &raise{totalIgnited: wad.Ether("1000"), fixedRateWad: wad.Ether("10")}
	p, err := planSpark(settings.Defaults(), r)
	require.NoError(t, err)

	assert.Equal(t, wad.Ether("10000").String(), p.rewardSupply.String())
	assert.Equal(t, wad.Ether("150").String(), p.liquidityReserve.String())
	assert.Equal(t, wad.Ether("1500").String(), p.liquidityTokens.String())
	assert.Equal(t, wad.Ether("24").String(), p.buyReserve.String())
	assert.Equal(t, wad.Ether("826").String(), p.restReserve.String())
	assert.Equal(t, wad.Add(wad.Add(p.rewardSupply, p.liquidityTokens), p.restTokens).String(), p.totalSupply.String())

	// 用户份额过高时总量不低于奖励与流动性之和
	cfg := settings.Defaults()
	cfg.TokenUserBP = wad.BP
	p, err = planSpark(cfg, r)
	require.NoError(t, err)
	assert.Equal(t, wad.Ether("11500").String(), p.totalSupply.String())
	assert.Equal(t, "0", p.restTokens.String())
}
