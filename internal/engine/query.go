package engine

import (
	"math/big"
	"time"

	"github.com/blues/liftoff/internal/wad"
	"github.com/ethereum/go-ethereum/common"
)

// GetRaise 查询募资记录
func (e *Engine) GetRaise(id uint64) (RaiseView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.raiseLocked(id)
	if err != nil {
		return RaiseView{}, err
	}
	return r.view(e.clock.Now()), nil
}

// GetRaiseForInsurance 保险引擎读取的冻结快照
func (e *Engine) GetRaiseForInsurance(id uint64) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.raiseLocked(id)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Id:            r.id,
		TotalIgnited:  wad.Copy(r.totalIgnited),
		RewardSupply:  wad.Copy(r.rewardSupply),
		Escrowed:      wad.Copy(r.escrowed),
		ProjectDev:    r.projectDev,
		DeployedToken: r.deployedToken,
		PairAddress:   r.pairAddress,
		Sparked:       r.phase == phaseSparked,
	}, nil
}

// GetProjectDev 查询项目方
func (e *Engine) GetProjectDev(id uint64) (common.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.raiseLocked(id)
	if err != nil {
		return common.Address{}, err
	}
	return r.projectDev, nil
}

// GetStartTime 查询开始时间
func (e *Engine) GetStartTime(id uint64) (time.Time, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.raiseLocked(id)
	if err != nil {
		return time.Time{}, err
	}
	return r.startTime, nil
}

// TotalRaises 已发起的募资数量
func (e *Engine) TotalRaises() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(len(e.raises))
}

// State 查询当前状态
func (e *Engine) State(id uint64) (RaiseState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.raiseLocked(id)
	if err != nil {
		return 0, err
	}
	return r.state(e.clock.Now()), nil
}

// Ignited 查询投资者记录
func (e *Engine) Ignited(id uint64, addr common.Address) (Ignitor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.raiseLocked(id)
	if err != nil {
		return Ignitor{}, err
	}
	ig, ok := r.ignitors[addr]
	if !ok {
		return Ignitor{Ignited: new(big.Int)}, nil
	}
	return Ignitor{Ignited: wad.Copy(ig.Ignited), Status: ig.Status}, nil
}

// Ignitors 查询全部投资者
func (e *Engine) Ignitors(id uint64) (map[common.Address]Ignitor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.raiseLocked(id)
	if err != nil {
		return nil, err
	}
	out := make(map[common.Address]Ignitor, len(r.ignitors))
	for addr, ig := range r.ignitors {
		out[addr] = Ignitor{Ignited: wad.Copy(ig.Ignited), Status: ig.Status}
	}
	return out, nil
}

// RaisesInState 返回处于指定状态的募资 id
func (e *Engine) RaisesInState(state RaiseState) []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	var ids []uint64
	for _, r := range e.raises {
		if r.state(now) == state {
			ids = append(ids, r.id)
		}
	}
	return ids
}
