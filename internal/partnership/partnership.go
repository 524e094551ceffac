// Package partnership 合作方分成登记
package partnership

import (
	"fmt"
	"sync"

	"github.com/blues/liftoff/internal/liftoff"
	"github.com/blues/liftoff/internal/logger"
	"github.com/ethereum/go-ethereum/common"
)

// Partner 合作方
type Partner struct {
	Id      uint64         `json:"id"`
	Address common.Address `json:"address"`
	Info    string         `json:"info"`
}

// RequestStatus 分成申请状态
type RequestStatus int

const (
	RequestPending RequestStatus = iota
	RequestActive
	RequestCancelled
)

func (s RequestStatus) String() string {
	switch s {
	case RequestPending:
		return "pending"
	case RequestActive:
		return "active"
	case RequestCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Request 合作方对某次募资的分成申请
type Request struct {
	Id        uint64        `json:"id"`
	PartnerId uint64        `json:"partner_id"`
	RaiseId   uint64        `json:"raise_id"`
	FeeBP     uint64        `json:"fee_bp"`
	Status    RequestStatus `json:"status"`
}

// Share 生效中的分成
type Share struct {
	Address common.Address
	BP      uint64
}

// ProjectDevs 查询项目方地址
type ProjectDevs interface {
	GetProjectDev(raiseId uint64) (common.Address, error)
}

// Limits 分成上限来源
type Limits interface {
	MaxPartnerBP() uint64
}

// LimitFunc 函数适配 Limits
type LimitFunc func() uint64

// MaxPartnerBP 实现 Limits
func (f LimitFunc) MaxPartnerBP() uint64 { return f() }

// Ledger 分成登记表
type Ledger struct {
	mu       sync.RWMutex
	owner    common.Address
	devs     ProjectDevs
	limits   Limits
	partners map[uint64]Partner
	requests map[uint64][]Request
}

// New 创建分成登记表
func New(owner common.Address, devs ProjectDevs, limits Limits) *Ledger {
	return &Ledger{
		owner:    owner,
		devs:     devs,
		limits:   limits,
		partners: make(map[uint64]Partner),
		requests: make(map[uint64][]Request),
	}
}

// SetPartner 登记或更新合作方, 仅 owner
func (l *Ledger) SetPartner(caller common.Address, id uint64, addr common.Address, info string) error {
	if caller != l.owner {
		return liftoff.ErrNotOwner
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.partners[id] = Partner{Id: id, Address: addr, Info: info}
	logger.Info("Partner %d set to %s", id, addr.Hex())
	return nil
}

// GetPartner 查询合作方
func (l *Ledger) GetPartner(id uint64) (Partner, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.partners[id]
	if !ok {
		return Partner{}, liftoff.ErrPartnerNotFound
	}
	return p, nil
}

// RequestPartnership 合作方申请分成
func (l *Ledger) RequestPartnership(caller common.Address, partnerId, raiseId, feeBP uint64) (uint64, error) {
	if _, err := l.devs.GetProjectDev(raiseId); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.partners[partnerId]
	if !ok {
		return 0, liftoff.ErrPartnerNotFound
	}
	if caller != p.Address && caller != l.owner {
		return 0, liftoff.ErrNotPartner
	}
	if feeBP == 0 || feeBP > l.limits.MaxPartnerBP() {
		return 0, liftoff.Invalid("partner fee out of range")
	}

	id := uint64(len(l.requests[raiseId]))
	l.requests[raiseId] = append(l.requests[raiseId], Request{
		Id:        id,
		PartnerId: partnerId,
		RaiseId:   raiseId,
		FeeBP:     feeBP,
		Status:    RequestPending,
	})
	logger.Info("Partnership requested: raise %d, partner %d, fee %d bp", raiseId, partnerId, feeBP)
	return id, nil
}

// AcceptPartnership 项目方接受分成申请, 生效分成合计不得超过项目方份额
func (l *Ledger) AcceptPartnership(caller common.Address, raiseId, requestId uint64) error {
	dev, err := l.devs.GetProjectDev(raiseId)
	if err != nil {
		return err
	}
	if caller != dev {
		return liftoff.ErrNotProjectDev
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	req, err := l.requestLocked(raiseId, requestId)
	if err != nil {
		return err
	}
	if req.Status != RequestPending {
		return fmt.Errorf("accept partnership %s: %w", req.Status, liftoff.ErrRequestNotPending)
	}

	var active uint64
	for _, r := range l.requests[raiseId] {
		if r.Status == RequestActive {
			active += r.FeeBP
		}
	}
	if active+req.FeeBP > l.limits.MaxPartnerBP() {
		return liftoff.Invalid("partner shares exceed project dev share")
	}

	req.Status = RequestActive
	logger.Info("Partnership accepted: raise %d, request %d", raiseId, requestId)
	return nil
}

// CancelPartnership 项目方或合作方取消分成
func (l *Ledger) CancelPartnership(caller common.Address, raiseId, requestId uint64) error {
	dev, err := l.devs.GetProjectDev(raiseId)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	req, err := l.requestLocked(raiseId, requestId)
	if err != nil {
		return err
	}
	partner := l.partners[req.PartnerId]
	if caller != dev && caller != partner.Address {
		return liftoff.ErrNotPartner
	}
	if req.Status == RequestCancelled {
		return fmt.Errorf("cancel partnership: %w", liftoff.ErrAlreadyCancelled)
	}

	req.Status = RequestCancelled
	logger.Info("Partnership cancelled: raise %d, request %d", raiseId, requestId)
	return nil
}

// Requests 查询某次募资的全部申请
func (l *Ledger) Requests(raiseId uint64) []Request {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Request, len(l.requests[raiseId]))
	copy(out, l.requests[raiseId])
	return out
}

// GetActivePartnerShares 返回生效中的分成表
func (l *Ledger) GetActivePartnerShares(raiseId uint64) []Share {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var shares []Share
	for _, r := range l.requests[raiseId] {
		if r.Status != RequestActive {
			continue
		}
		shares = append(shares, Share{Address: l.partners[r.PartnerId].Address, BP: r.FeeBP})
	}
	return shares
}

func (l *Ledger) requestLocked(raiseId, requestId uint64) (*Request, error) {
	reqs := l.requests[raiseId]
	if requestId >= uint64(len(reqs)) {
		return nil, fmt.Errorf("request %d of raise %d: %w", requestId, raiseId, liftoff.ErrPartnerNotFound)
	}
	return &reqs[requestId], nil
}
