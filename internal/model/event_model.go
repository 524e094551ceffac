package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventModel 协议事件流水
type EventModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EventId    string          `json:"event_id" gorm:"uniqueIndex;not null"`
	EventType  string          `json:"event_type" gorm:"index;not null"`
	RaiseId    uint64          `json:"raise_id" gorm:"index;not null"`
	Actor      string          `json:"actor"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:numeric(78,18);default:0"`
	Data       string          `json:"data" gorm:"type:text"`
	OccurredAt time.Time       `json:"occurred_at" gorm:"index"`
}

// TableName 自定义表名
func (EventModel) TableName() string {
	return "event"
}
