package engine

import (
	"math/big"
	"time"

	"github.com/blues/liftoff/internal/wad"
	"github.com/ethereum/go-ethereum/common"
)

// RaiseState 募资状态
type RaiseState int

const (
	StateScheduled  RaiseState = iota // 未开始
	StateIgniting                     // 募资中
	StateSparkReady                   // 可发射
	StateSparked                      // 已发射
	StateRefunding                    // 未达软顶, 退款中
)

func (s RaiseState) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateIgniting:
		return "igniting"
	case StateSparkReady:
		return "spark_ready"
	case StateSparked:
		return "sparked"
	case StateRefunding:
		return "refunding"
	default:
		return "unknown"
	}
}

// IgnitorStatus 投资者状态, 领取奖励与退款互斥
type IgnitorStatus int

const (
	IgnitorActive IgnitorStatus = iota
	IgnitorClaimed
	IgnitorRefunded
)

func (s IgnitorStatus) String() string {
	switch s {
	case IgnitorActive:
		return "active"
	case IgnitorClaimed:
		return "claimed"
	case IgnitorRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// Ignitor 单个投资者记录
type Ignitor struct {
	Ignited *big.Int      `json:"ignited"`
	Status  IgnitorStatus `json:"status"`
}

// LaunchParams 发起募资参数
type LaunchParams struct {
	StartTime    time.Time
	EndTime      time.Time
	SoftCap      *big.Int
	HardCap      *big.Int
	FixedRateWad *big.Int
	Name         string
	Symbol       string
	ProjectDev   common.Address
}

type phase int

const (
	phaseOpen phase = iota
	phaseSparked
)

type raise struct {
	id           uint64
	startTime    time.Time
	endTime      time.Time
	softCap      *big.Int
	hardCap      *big.Int
	fixedRateWad *big.Int
	name         string
	symbol       string
	projectDev   common.Address

	totalIgnited *big.Int
	ignitors     map[common.Address]*Ignitor

	phase         phase
	totalSupply   *big.Int
	rewardSupply  *big.Int
	deployedToken common.Address
	pairAddress   common.Address
	escrowed      *big.Int
}

func (r *raise) state(now time.Time) RaiseState {
	switch {
	case r.phase == phaseSparked:
		return StateSparked
	case now.Before(r.startTime):
		return StateScheduled
	case r.totalIgnited.Cmp(r.hardCap) >= 0:
		return StateSparkReady
	case now.Before(r.endTime):
		return StateIgniting
	case r.totalIgnited.Cmp(r.softCap) >= 0:
		return StateSparkReady
	default:
		return StateRefunding
	}
}

func (r *raise) ignitor(addr common.Address) *Ignitor {
	ig, ok := r.ignitors[addr]
	if !ok {
		ig = &Ignitor{Ignited: new(big.Int)}
		r.ignitors[addr] = ig
	}
	return ig
}

// RaiseView 募资记录只读视图
type RaiseView struct {
	Id            uint64         `json:"id"`
	StartTime     time.Time      `json:"start_time"`
	EndTime       time.Time      `json:"end_time"`
	SoftCap       *big.Int       `json:"soft_cap"`
	HardCap       *big.Int       `json:"hard_cap"`
	FixedRateWad  *big.Int       `json:"fixed_rate_wad"`
	TotalIgnited  *big.Int       `json:"total_ignited"`
	TotalSupply   *big.Int       `json:"total_supply"`
	RewardSupply  *big.Int       `json:"reward_supply"`
	Name          string         `json:"name"`
	Symbol        string         `json:"symbol"`
	ProjectDev    common.Address `json:"project_dev"`
	DeployedToken common.Address `json:"deployed_token"`
	PairAddress   common.Address `json:"pair_address"`
	State         RaiseState     `json:"state"`
	Ignitors      int            `json:"ignitors"`
}

// Snapshot 发射后交给保险引擎的冻结快照
type Snapshot struct {
	Id            uint64
	TotalIgnited  *big.Int
	RewardSupply  *big.Int
	Escrowed      *big.Int // 发射时转入保险的储备
	ProjectDev    common.Address
	DeployedToken common.Address
	PairAddress   common.Address
	Sparked       bool
}

func (r *raise) view(now time.Time) RaiseView {
	return RaiseView{
		Id:            r.id,
		StartTime:     r.startTime,
		EndTime:       r.endTime,
		SoftCap:       wad.Copy(r.softCap),
		HardCap:       wad.Copy(r.hardCap),
		FixedRateWad:  wad.Copy(r.fixedRateWad),
		TotalIgnited:  wad.Copy(r.totalIgnited),
		TotalSupply:   wad.Copy(r.totalSupply),
		RewardSupply:  wad.Copy(r.rewardSupply),
		Name:          r.name,
		Symbol:        r.symbol,
		ProjectDev:    r.projectDev,
		DeployedToken: r.deployedToken,
		PairAddress:   r.pairAddress,
		State:         r.state(now),
		Ignitors:      len(r.ignitors),
	}
}
