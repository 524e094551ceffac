package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InsuranceModel 保险记录, 随事件累计更新
type InsuranceModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RaiseId          uint64          `json:"raise_id" gorm:"uniqueIndex;not null"`
	Status           InsuranceStatus `json:"status" gorm:"default:'registered'"`
	StartTime        *time.Time      `json:"start_time"`
	TotalIgnited     decimal.Decimal `json:"total_ignited" gorm:"type:numeric(78,18);default:0"`
	TokensPerEth     decimal.Decimal `json:"tokens_per_eth" gorm:"type:numeric(78,18);default:0"`
	BaseBusd         decimal.Decimal `json:"base_busd" gorm:"type:numeric(78,18);default:0"`
	BaseTokenLidPool decimal.Decimal `json:"base_token_lid_pool" gorm:"type:numeric(78,18);default:0"`
	BaseFee          decimal.Decimal `json:"base_fee" gorm:"type:numeric(78,18);default:0"`
	RedeemedBusd     decimal.Decimal `json:"redeemed_busd" gorm:"type:numeric(78,18);default:0"`
	ClaimedBusd      decimal.Decimal `json:"claimed_busd" gorm:"type:numeric(78,18);default:0"`
	ClaimedToken     decimal.Decimal `json:"claimed_token" gorm:"type:numeric(78,18);default:0"`
	LastClaimedCycle uint64          `json:"last_claimed_cycle" gorm:"default:0"`
}

// InsuranceStatus 保险状态
type InsuranceStatus string

const (
	InsuranceStatusRegistered  InsuranceStatus = "registered"  // 已登记
	InsuranceStatusInitialized InsuranceStatus = "initialized" // 生效中
	InsuranceStatusUnwound     InsuranceStatus = "unwound"     // 已解除
)

// TableName 自定义表名
func (InsuranceModel) TableName() string {
	return "insurance"
}
