package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// IgnitionRecordModel 存款与撤资记录
type IgnitionRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EventId      string          `json:"event_id" gorm:"uniqueIndex;not null"`
	RaiseId      uint64          `json:"raise_id" gorm:"index;not null"`
	Address      string          `json:"address" gorm:"index;not null"`
	Payer        string          `json:"payer"`
	Action       IgnitionAction  `json:"action" gorm:"not null"`
	Amount       decimal.Decimal `json:"amount" gorm:"type:numeric(78,18);not null"`
	TotalIgnited decimal.Decimal `json:"total_ignited" gorm:"type:numeric(78,18)"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// IgnitionAction 存款动作
type IgnitionAction string

const (
	IgnitionActionIgnite IgnitionAction = "ignite" // 存入
	IgnitionActionUndo   IgnitionAction = "undo"   // 撤回
)

// TableName 自定义表名
func (IgnitionRecordModel) TableName() string {
	return "ignition_record"
}
