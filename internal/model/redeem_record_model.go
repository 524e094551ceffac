package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RedeemRecordModel 赎回记录
type RedeemRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EventId    string          `json:"event_id" gorm:"uniqueIndex;not null"`
	RaiseId    uint64          `json:"raise_id" gorm:"index;not null"`
	Address    string          `json:"address" gorm:"index;not null"`
	Tokens     decimal.Decimal `json:"tokens" gorm:"type:numeric(78,18);not null"`
	Value      decimal.Decimal `json:"value" gorm:"type:numeric(78,18);not null"`
	FromBonus  decimal.Decimal `json:"from_bonus" gorm:"type:numeric(78,18);default:0"`
	Market     bool            `json:"market" gorm:"default:false"` // 解除后按市价卖出
	OccurredAt time.Time       `json:"occurred_at"`
}

// TableName 自定义表名
func (RedeemRecordModel) TableName() string {
	return "redeem_record"
}
