package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RewardClaimModel 代币奖励领取记录
type RewardClaimModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EventId    string          `json:"event_id" gorm:"uniqueIndex;not null"`
	RaiseId    uint64          `json:"raise_id" gorm:"index;not null"`
	Address    string          `json:"address" gorm:"index;not null"`
	Token      string          `json:"token"`
	Ignited    decimal.Decimal `json:"ignited" gorm:"type:numeric(78,18)"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:numeric(78,18);not null"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// TableName 自定义表名
func (RewardClaimModel) TableName() string {
	return "reward_claim"
}
