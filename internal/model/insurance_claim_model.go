package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InsuranceClaimModel 保险领取记录
type InsuranceClaimModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EventId    string          `json:"event_id" gorm:"uniqueIndex;not null"`
	RaiseId    uint64          `json:"raise_id" gorm:"index;not null"`
	Kind       ClaimKind       `json:"kind" gorm:"not null"`
	Cycle      uint64          `json:"cycle"`
	Busd       decimal.Decimal `json:"busd" gorm:"type:numeric(78,18);not null"`
	Paid       decimal.Decimal `json:"paid" gorm:"type:numeric(78,18);default:0"`
	Tokens     decimal.Decimal `json:"tokens" gorm:"type:numeric(78,18);default:0"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// ClaimKind 领取类型
type ClaimKind string

const (
	ClaimKindBaseFee ClaimKind = "base_fee" // 协议基础费用
	ClaimKindCycle   ClaimKind = "cycle"    // 周期释放
)

// TableName 自定义表名
func (InsuranceClaimModel) TableName() string {
	return "insurance_claim"
}
