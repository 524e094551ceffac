package insurance

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/blues/liftoff/internal/liftoff"
	"github.com/blues/liftoff/internal/wad"
	"github.com/ethereum/go-ethereum/common"
)

// View 保险记录只读视图
type View struct {
	Id               uint64         `json:"id"`
	Status           Status         `json:"status"`
	Token            common.Address `json:"token"`
	Pair             common.Address `json:"pair"`
	ProjectDev       common.Address `json:"project_dev"`
	StartTime        time.Time      `json:"start_time"`
	TotalIgnited     *big.Int       `json:"total_ignited"`
	TokensPerEthWad  *big.Int       `json:"tokens_per_eth_wad"`
	BaseBusd         *big.Int       `json:"base_busd"`
	BaseTokenLidPool *big.Int       `json:"base_token_lid_pool"`
	BaseFee          *big.Int       `json:"base_fee"`
	BaseFeeClaimed   bool           `json:"base_fee_claimed"`
	Reserve          *big.Int       `json:"reserve"`
	RedeemedBusd     *big.Int       `json:"redeemed_busd"`
	ClaimedBusd      *big.Int       `json:"claimed_busd"`
	ClaimedToken     *big.Int       `json:"claimed_token"`
	LastClaimedCycle uint64         `json:"last_claimed_cycle"`
	Cycles           uint64         `json:"cycles"`
}

// IsRegistered 是否已登记
func (ins *Insurance) IsRegistered(id uint64) bool {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	_, ok := ins.records[id]
	return ok
}

// IsInitialized 是否已创建
func (ins *Insurance) IsInitialized(id uint64) bool {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	rec, ok := ins.records[id]
	return ok && rec.initialized()
}

// CanCreate 是否可以创建保险
func (ins *Insurance) CanCreate(id uint64) bool {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	rec, ok := ins.records[id]
	return CanCreateInsurance(ok && rec.initialized(), ok)
}

// GetInsurance 查询保险记录
func (ins *Insurance) GetInsurance(id uint64) (View, error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	rec, ok := ins.records[id]
	if !ok {
		return View{}, fmt.Errorf("insurance %d: %w", id, liftoff.ErrRaiseNotFound)
	}
	v := View{
		Id:               rec.id,
		Status:           rec.status,
		Token:            rec.token,
		Pair:             rec.pair,
		ProjectDev:       rec.projectDev,
		StartTime:        rec.startTime,
		TotalIgnited:     wad.Copy(rec.totalIgnited),
		TokensPerEthWad:  wad.Copy(rec.tokensPerEthWad),
		BaseBusd:         wad.Copy(rec.baseBusd),
		BaseTokenLidPool: wad.Copy(rec.baseTokenLidPool),
		BaseFee:          wad.Copy(rec.baseFee),
		BaseFeeClaimed:   rec.baseFeeClaimed,
		Reserve:          wad.Copy(rec.reserve),
		RedeemedBusd:     wad.Copy(rec.redeemedBusd),
		ClaimedBusd:      wad.Copy(rec.claimedBusd),
		ClaimedToken:     wad.Copy(rec.claimedToken),
		LastClaimedCycle: rec.lastClaimedCycle,
	}
	if rec.initialized() {
		v.Cycles = Cycles(ins.clock.Now(), rec.startTime, ins.settings.Snapshot().InsurancePeriod)
	}
	return v, nil
}

// Bonus 查询 contributor 的额外保险余额
func (ins *Insurance) Bonus(id uint64, contributor common.Address) *big.Int {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	rec, ok := ins.records[id]
	if !ok || rec.bonus[contributor] == nil {
		return new(big.Int)
	}
	return wad.Copy(rec.bonus[contributor])
}

// ClaimableNow 当前周期可领取的储备与代币
func (ins *Insurance) ClaimableNow(id uint64) (*big.Int, *big.Int, error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	rec, ok := ins.records[id]
	if !ok || !rec.initialized() {
		return nil, nil, liftoff.ErrInsuranceNotInitialized
	}
	if rec.status == StatusUnwound {
		return new(big.Int), new(big.Int), nil
	}
	cycles := Cycles(ins.clock.Now(), rec.startTime, ins.settings.Snapshot().InsurancePeriod)
	busd := wad.Min(TotalBusdClaimable(rec.totalIgnited, rec.redeemedBusd, rec.claimedBusd, cycles), rec.reserve)
	return busd, TotalTokenClaimable(rec.baseTokenLidPool, cycles, rec.claimedToken), nil
}

// Pending 已登记但未创建的保险 id
func (ins *Insurance) Pending() []uint64 {
	return ins.idsWhere(func(r *record) bool { return r.status == StatusRegistered })
}

// Claimable 到达新周期或基础费用未领取的保险 id
func (ins *Insurance) Claimable() []uint64 {
	now := ins.clock.Now()
	return ins.idsWhere(func(r *record) bool {
		if !r.initialized() {
			return false
		}
		if !r.baseFeeClaimed {
			return true
		}
		period := ins.settings.Snapshot().InsurancePeriod
		return r.status == StatusInitialized && Cycles(now, r.startTime, period) > r.lastClaimedCycle
	})
}

func (ins *Insurance) idsWhere(fn func(r *record) bool) []uint64 {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	var ids []uint64
	for id, r := range ins.records {
		if fn(r) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
