package event

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/blues/liftoff/internal/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Type 事件类型
type Type string

const (
	RaiseLaunched       Type = "RaiseLaunched"
	Ignited             Type = "Ignited"
	IgniteUndone        Type = "IgniteUndone"
	Sparked             Type = "Sparked"
	RewardClaimed       Type = "RewardClaimed"
	RefundClaimed       Type = "RefundClaimed"
	EndTimeUpdated      Type = "EndTimeUpdated"
	InsuranceRegistered Type = "InsuranceRegistered"
	InsuranceCreated    Type = "InsuranceCreated"
	Redeemed            Type = "Redeemed"
	BaseFeeClaimed      Type = "BaseFeeClaimed"
	InsuranceClaimed    Type = "InsuranceClaimed"
	InsuranceUnwound    Type = "InsuranceUnwound"
	BonusIncreased      Type = "BonusIncreased"
	BonusDecreased      Type = "BonusDecreased"
)

// Event 已提交的状态变更
type Event struct {
	Id      string                 `json:"id"`
	Type    Type                   `json:"type"`
	RaiseId uint64                 `json:"raise_id"`
	Actor   common.Address         `json:"actor"`
	Amount  *big.Int               `json:"amount,omitempty"`
	Time    time.Time              `json:"time"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// New 创建事件
func New(t Type, raiseId uint64, actor common.Address, amount *big.Int, at time.Time) *Event {
	return &Event{
		Id:      uuid.NewString(),
		Type:    t,
		RaiseId: raiseId,
		Actor:   actor,
		Amount:  amount,
		Time:    at,
		Data:    make(map[string]interface{}),
	}
}

// With 附加字段
func (e *Event) With(key string, value interface{}) *Event {
	e.Data[key] = value
	return e
}

// Sink 事件出口, 引擎在提交后调用
type Sink interface {
	Emit(ctx context.Context, e *Event)
}

// NopSink 丢弃所有事件
type NopSink struct{}

// Emit 实现 Sink
func (NopSink) Emit(context.Context, *Event) {}

// Processor 事件处理器接口
type Processor interface {
	Process(ctx context.Context, e *Event) error
	GetName() string
}

// Manager 事件处理器管理器, 同一类型可挂多个处理器
type Manager struct {
	mu         sync.RWMutex
	processors map[Type][]Processor
	wildcard   []Processor
}

// NewManager 创建处理器管理器
func NewManager() *Manager {
	return &Manager{
		processors: make(map[Type][]Processor),
	}
}

// Register 为指定事件类型注册处理器, 不传类型则接收全部事件
func (m *Manager) Register(p Processor, types ...Type) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(types) == 0 {
		m.wildcard = append(m.wildcard, p)
		logger.Info("Registered processor %s for all events", p.GetName())
		return
	}
	for _, t := range types {
		m.processors[t] = append(m.processors[t], p)
		logger.Info("Registered processor %s for event type: %s", p.GetName(), t)
	}
}

// Emit 依次分发给处理器, 处理失败只记录日志
func (m *Manager) Emit(ctx context.Context, e *Event) {
	m.mu.RLock()
	targets := make([]Processor, 0, len(m.wildcard)+len(m.processors[e.Type]))
	targets = append(targets, m.wildcard...)
	targets = append(targets, m.processors[e.Type]...)
	m.mu.RUnlock()

	for _, p := range targets {
		if err := p.Process(ctx, e); err != nil {
			logger.Error("Processor %s failed on %s for raise %d: %v", p.GetName(), e.Type, e.RaiseId, err)
		}
	}
}

// GetSupportedEventTypes 获取已注册的事件类型
func (m *Manager) GetSupportedEventTypes() []Type {
	m.mu.RLock()
	defer m.mu.RUnlock()

	types := make([]Type, 0, len(m.processors))
	for t := range m.processors {
		types = append(types, t)
	}
	return types
}
