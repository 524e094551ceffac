package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RaiseModel 募资记录
type RaiseModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RaiseId    uint64 `json:"raise_id" gorm:"uniqueIndex;not null"`
	Name       string `json:"name" gorm:"not null"`
	Symbol     string `json:"symbol" gorm:"not null"`
	ProjectDev string `json:"project_dev" gorm:"index;not null"`

	// 募资参数
	StartTime time.Time       `json:"start_time" gorm:"not null"`
	EndTime   time.Time       `json:"end_time" gorm:"not null"`
	SoftCap   decimal.Decimal `json:"soft_cap" gorm:"type:numeric(78,18);not null"`
	HardCap   decimal.Decimal `json:"hard_cap" gorm:"type:numeric(78,18);not null"`
	FixedRate decimal.Decimal `json:"fixed_rate" gorm:"type:numeric(78,18);not null"`

	// 发射结果
	TotalIgnited decimal.Decimal `json:"total_ignited" gorm:"type:numeric(78,18);default:0"`
	TotalSupply  decimal.Decimal `json:"total_supply" gorm:"type:numeric(78,18);default:0"`
	RewardSupply decimal.Decimal `json:"reward_supply" gorm:"type:numeric(78,18);default:0"`
	Token        string          `json:"token"`
	Pair         string          `json:"pair"`

	Status RaiseStatus `json:"status" gorm:"default:'launched'"`
}

// RaiseStatus 募资状态
type RaiseStatus string

const (
	RaiseStatusLaunched RaiseStatus = "launched" // 已发起
	RaiseStatusSparked  RaiseStatus = "sparked"  // 已发射
	RaiseStatusRefunded RaiseStatus = "refunded" // 有退款发生
)

// TableName 自定义表名
func (RaiseModel) TableName() string {
	return "raise"
}
