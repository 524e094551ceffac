// Package settings 协议参数登记表: 地址与基点分配
package settings

import (
	"fmt"
	"sync"
	"time"

	"github.com/blues/liftoff/internal/liftoff"
	"github.com/blues/liftoff/internal/wad"
	"github.com/ethereum/go-ethereum/common"
)

// Settings 参数快照, 引擎只读使用
type Settings struct {
	Insurance      common.Address `json:"insurance"`
	Registration   common.Address `json:"registration"`
	Engine         common.Address `json:"engine"`
	Partnerships   common.Address `json:"partnerships"`
	ReserveAsset   common.Address `json:"reserve_asset"`
	Exchange       common.Address `json:"exchange"`
	LidTreasury    common.Address `json:"lid_treasury"`
	LidPoolManager common.Address `json:"lid_pool_manager"`

	BusdLockBP      uint64        `json:"busd_lock_bp"`
	TokenUserBP     uint64        `json:"token_user_bp"`
	InsurancePeriod time.Duration `json:"insurance_period"`
	BaseFeeBP       uint64        `json:"base_fee_bp"`
	EthBuyBP        uint64        `json:"eth_buy_bp"`
	ProjectDevBP    uint64        `json:"project_dev_bp"`
	MainFeeBP       uint64        `json:"main_fee_bp"`
	LidPoolBP       uint64        `json:"lid_pool_bp"`
}

// Defaults 默认分配: 6 项储备分配合计 10000
func Defaults() Settings {
	return Settings{
		BusdLockBP:      240,
		TokenUserBP:     7000,
		InsurancePeriod: 7 * 24 * time.Hour,
		BaseFeeBP:       200,
		EthBuyBP:        1500,
		ProjectDevBP:    7200,
		MainFeeBP:       317,
		LidPoolBP:       543,
	}
}

// MinInsurancePeriod 保险期下限, 保证每个周期非空
const MinInsurancePeriod = 10 * time.Second

// Validate 校验参数
func (s Settings) Validate() error {
	sum := s.BusdLockBP + s.BaseFeeBP + s.EthBuyBP + s.ProjectDevBP + s.MainFeeBP + s.LidPoolBP
	if sum != wad.BP {
		return liftoff.Invalid("must allocate 100% of raised reserve")
	}
	if s.TokenUserBP == 0 || s.TokenUserBP > wad.BP {
		return liftoff.Invalid("token user share must be within (0, 10000]")
	}
	if s.InsurancePeriod < MinInsurancePeriod {
		return liftoff.Invalid(fmt.Sprintf("insurance period must be at least %s", MinInsurancePeriod))
	}
	return nil
}

// CycleLength 单个归属周期长度
func (s Settings) CycleLength() time.Duration {
	return s.InsurancePeriod / 10
}

// Store 带权限校验的参数存储
type Store struct {
	mu       sync.RWMutex
	owner    common.Address
	settings Settings
}

// NewStore 创建参数存储
func NewStore(owner common.Address, initial Settings) (*Store, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &Store{owner: owner, settings: initial}, nil
}

// Owner 返回拥有者
func (s *Store) Owner() common.Address {
	return s.owner
}

// Snapshot 返回当前参数副本
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *Store) update(caller common.Address, fn func(next *Settings)) error {
	if caller != s.owner {
		return liftoff.ErrNotOwner
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	s.settings = next
	return nil
}

// SetBusdBP 设置储备分配, 6 项之和必须为 10000
func (s *Store) SetBusdBP(caller common.Address, busdLock, baseFee, ethBuy, projectDev, mainFee, lidPool uint64) error {
	return s.update(caller, func(next *Settings) {
		next.BusdLockBP = busdLock
		next.BaseFeeBP = baseFee
		next.EthBuyBP = ethBuy
		next.ProjectDevBP = projectDev
		next.MainFeeBP = mainFee
		next.LidPoolBP = lidPool
	})
}

// SetTokenUserBP 设置投资者代币占比
func (s *Store) SetTokenUserBP(caller common.Address, bp uint64) error {
	return s.update(caller, func(next *Settings) { next.TokenUserBP = bp })
}

// SetInsurancePeriod 设置保险期
func (s *Store) SetInsurancePeriod(caller common.Address, period time.Duration) error {
	return s.update(caller, func(next *Settings) { next.InsurancePeriod = period })
}

// SetAllUints 一次设置全部数值参数
func (s *Store) SetAllUints(caller common.Address, tokenUserBP uint64, period time.Duration,
	busdLock, baseFee, ethBuy, projectDev, mainFee, lidPool uint64) error {
	return s.update(caller, func(next *Settings) {
		next.TokenUserBP = tokenUserBP
		next.InsurancePeriod = period
		next.BusdLockBP = busdLock
		next.BaseFeeBP = baseFee
		next.EthBuyBP = ethBuy
		next.ProjectDevBP = projectDev
		next.MainFeeBP = mainFee
		next.LidPoolBP = lidPool
	})
}

// Addresses 协议角色地址
type Addresses struct {
	Insurance      common.Address
	Registration   common.Address
	Engine         common.Address
	Partnerships   common.Address
	ReserveAsset   common.Address
	Exchange       common.Address
	LidTreasury    common.Address
	LidPoolManager common.Address
}

// SetAllAddresses 一次设置全部地址
func (s *Store) SetAllAddresses(caller common.Address, a Addresses) error {
	return s.update(caller, func(next *Settings) {
		next.Insurance = a.Insurance
		next.Registration = a.Registration
		next.Engine = a.Engine
		next.Partnerships = a.Partnerships
		next.ReserveAsset = a.ReserveAsset
		next.Exchange = a.Exchange
		next.LidTreasury = a.LidTreasury
		next.LidPoolManager = a.LidPoolManager
	})
}

// SetLidTreasury 设置协议金库地址
func (s *Store) SetLidTreasury(caller, addr common.Address) error {
	return s.update(caller, func(next *Settings) { next.LidTreasury = addr })
}

// SetLidPoolManager 设置流动性池管理地址
func (s *Store) SetLidPoolManager(caller, addr common.Address) error {
	return s.update(caller, func(next *Settings) { next.LidPoolManager = addr })
}

// SetRegistration 设置登记模块地址
func (s *Store) SetRegistration(caller, addr common.Address) error {
	return s.update(caller, func(next *Settings) { next.Registration = addr })
}
