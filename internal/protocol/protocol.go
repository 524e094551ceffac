// Package protocol 组装协议各模块
package protocol

import (
	"fmt"
	"math/big"

	"github.com/benbjohnson/clock"
	"github.com/blues/liftoff/internal/config"
	"github.com/blues/liftoff/internal/engine"
	"github.com/blues/liftoff/internal/event"
	"github.com/blues/liftoff/internal/exchange"
	"github.com/blues/liftoff/internal/insurance"
	"github.com/blues/liftoff/internal/ledger"
	"github.com/blues/liftoff/internal/logger"
	"github.com/blues/liftoff/internal/partnership"
	"github.com/blues/liftoff/internal/registration"
	"github.com/blues/liftoff/internal/settings"
	"github.com/ethereum/go-ethereum/common"
)

// Options 组装参数
type Options struct {
	Owner         common.Address
	Settings      settings.Settings
	Window        registration.Window
	ReserveSymbol string
	Clock         clock.Clock
}

// Protocol 已连接好的协议实例
type Protocol struct {
	Owner        common.Address
	Clock        clock.Clock
	Events       *event.Manager
	Ledger       *ledger.Ledger
	Settings     *settings.Store
	Exchange     *exchange.ConstantProduct
	Engine       *engine.Engine
	Insurance    *insurance.Insurance
	Partnerships *partnership.Ledger
	Registration *registration.Registration
}

// New 创建协议实例
func New(opts Options) (*Protocol, error) {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	store, err := settings.NewStore(opts.Owner, opts.Settings)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	cfg := store.Snapshot()

	l := ledger.New()
	symbol := opts.ReserveSymbol
	if symbol == "" {
		symbol = "BUSD"
	}
	if err := l.RegisterAsset(cfg.ReserveAsset, opts.Owner, symbol, symbol); err != nil {
		return nil, err
	}

	p := &Protocol{
		Owner:    opts.Owner,
		Clock:    clk,
		Events:   event.NewManager(),
		Ledger:   l,
		Settings: store,
		Exchange: exchange.NewConstantProduct(l),
	}
	p.Engine = engine.New(engine.Options{
		Owner:    opts.Owner,
		Settings: store,
		Ledger:   l,
		Exchange: p.Exchange,
		Clock:    clk,
		Sink:     p.Events,
	})
	p.Partnerships = partnership.New(opts.Owner, p.Engine, partnership.LimitFunc(func() uint64 {
		return store.Snapshot().ProjectDevBP
	}))
	p.Insurance = insurance.New(insurance.Options{
		Owner:    opts.Owner,
		Settings: store,
		Ledger:   l,
		Exchange: p.Exchange,
		Raises:   p.Engine,
		Partners: p.Partnerships,
		Clock:    clk,
		Sink:     p.Events,
	})
	p.Engine.SetInsurance(p.Insurance)
	p.Registration = registration.New(opts.Owner, cfg.Registration, p.Engine, clk, opts.Window)

	logger.Info("Protocol assembled: owner %s, engine %s, insurance %s, reserve %s (%s)",
		opts.Owner.Hex(), cfg.Engine.Hex(), cfg.Insurance.Hex(), cfg.ReserveAsset.Hex(), symbol)
	return p, nil
}

// OptionsFromConfig 由配置文件生成组装参数
func OptionsFromConfig(c *config.Config) Options {
	pc := c.Protocol
	s := settings.Settings{
		Insurance:       common.HexToAddress(pc.Insurance),
		Registration:    common.HexToAddress(pc.Registration),
		Engine:          common.HexToAddress(pc.Engine),
		Partnerships:    common.HexToAddress(pc.Partnerships),
		ReserveAsset:    common.HexToAddress(pc.ReserveAsset),
		Exchange:        common.HexToAddress(pc.Exchange),
		LidTreasury:     common.HexToAddress(pc.LidTreasury),
		LidPoolManager:  common.HexToAddress(pc.LidPoolManager),
		BusdLockBP:      c.Settings.BusdLockBP,
		TokenUserBP:     c.Settings.TokenUserBP,
		InsurancePeriod: c.Settings.InsurancePeriod,
		BaseFeeBP:       c.Settings.BaseFeeBP,
		EthBuyBP:        c.Settings.EthBuyBP,
		ProjectDevBP:    c.Settings.ProjectDevBP,
		MainFeeBP:       c.Settings.MainFeeBP,
		LidPoolBP:       c.Settings.LidPoolBP,
	}
	return Options{
		Owner:    common.HexToAddress(pc.Owner),
		Settings: s,
		Window: registration.Window{
			MinTimeToLaunch: c.Registration.MinTimeToLaunch,
			MaxTimeToLaunch: c.Registration.MaxTimeToLaunch,
			SoftCapTimer:    c.Registration.SoftCapTimer,
		},
		ReserveSymbol: pc.ReserveSymbol,
	}
}

// Fund 由储备资产 owner 铸造储备给 to
func (p *Protocol) Fund(caller, to common.Address, amount *big.Int) error {
	if err := p.Ledger.Mint(caller, p.Settings.Snapshot().ReserveAsset, to, amount); err != nil {
		return err
	}
	logger.Info("Reserve funded to %s: %s", to.Hex(), amount)
	return nil
}
