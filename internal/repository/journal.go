package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/blues/liftoff/internal/event"
	"github.com/blues/liftoff/internal/logger"
	"github.com/blues/liftoff/internal/model"
	"github.com/blues/liftoff/internal/wad"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Journal 将已提交的协议事件写入数据库, 实现 event.Processor
type Journal struct {
	db *gorm.DB
}

// NewJournal 创建事件流水处理器
func NewJournal(db *gorm.DB) *Journal {
	return &Journal{db: db}
}

// GetName 处理器名称
func (j *Journal) GetName() string {
	return "journal"
}

// Process 在同一事务内写入事件行, 明细行与汇总更新
func (j *Journal) Process(ctx context.Context, e *event.Event) error {
	row, err := eventRow(e)
	if err != nil {
		return err
	}

	err = j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("写入事件失败: %w", err)
		}
		for _, rec := range recordsFor(e) {
			if err := tx.Create(rec).Error; err != nil {
				return fmt.Errorf("写入明细失败: %w", err)
			}
		}
		if updates := raiseUpdates(e); len(updates) > 0 {
			if err := tx.Model(&model.RaiseModel{}).Where("raise_id = ?", e.RaiseId).Updates(updates).Error; err != nil {
				return fmt.Errorf("更新募资记录失败: %w", err)
			}
		}
		if updates := insuranceUpdates(e); len(updates) > 0 {
			if err := tx.Model(&model.InsuranceModel{}).Where("raise_id = ?", e.RaiseId).Updates(updates).Error; err != nil {
				return fmt.Errorf("更新保险记录失败: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Debug("Journalled %s for raise %d", e.Type, e.RaiseId)
	return nil
}

func eventRow(e *event.Event) (*model.EventModel, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("encode event %s data: %w", e.Id, err)
	}
	return &model.EventModel{
		EventId:    e.Id,
		EventType:  string(e.Type),
		RaiseId:    e.RaiseId,
		Actor:      e.Actor.Hex(),
		Amount:     wad.Decimal(e.Amount),
		Data:       string(data),
		OccurredAt: e.Time,
	}, nil
}

// recordsFor 事件对应的新增明细行
func recordsFor(e *event.Event) []interface{} {
	switch e.Type {
	case event.RaiseLaunched:
		return []interface{}{&model.RaiseModel{
			RaiseId:    e.RaiseId,
			Name:       str(e, "name"),
			Symbol:     str(e, "symbol"),
			ProjectDev: e.Actor.Hex(),
			StartTime:  at(e, "start_time"),
			EndTime:    at(e, "end_time"),
			SoftCap:    amount(e, "soft_cap"),
			HardCap:    amount(e, "hard_cap"),
			FixedRate:  amount(e, "fixed_rate"),
			Token:      addr(e, "token"),
			Status:     model.RaiseStatusLaunched,
		}}
	case event.Ignited, event.IgniteUndone:
		action := model.IgnitionActionIgnite
		if e.Type == event.IgniteUndone {
			action = model.IgnitionActionUndo
		}
		return []interface{}{&model.IgnitionRecordModel{
			EventId:      e.Id,
			RaiseId:      e.RaiseId,
			Address:      e.Actor.Hex(),
			Payer:        addr(e, "payer"),
			Action:       action,
			Amount:       wad.Decimal(e.Amount),
			TotalIgnited: amount(e, "total_ignited"),
			OccurredAt:   e.Time,
		}}
	case event.RewardClaimed:
		return []interface{}{&model.RewardClaimModel{
			EventId:    e.Id,
			RaiseId:    e.RaiseId,
			Address:    e.Actor.Hex(),
			Token:      addr(e, "token"),
			Ignited:    amount(e, "ignited"),
			Amount:     wad.Decimal(e.Amount),
			OccurredAt: e.Time,
		}}
	case event.RefundClaimed:
		return []interface{}{&model.RefundRecordModel{
			EventId:    e.Id,
			RaiseId:    e.RaiseId,
			Address:    e.Actor.Hex(),
			Amount:     wad.Decimal(e.Amount),
			OccurredAt: e.Time,
		}}
	case event.InsuranceRegistered:
		return []interface{}{&model.InsuranceModel{
			RaiseId: e.RaiseId,
			Status:  model.InsuranceStatusRegistered,
		}}
	case event.Redeemed:
		market, _ := e.Data["market"].(bool)
		return []interface{}{&model.RedeemRecordModel{
			EventId:    e.Id,
			RaiseId:    e.RaiseId,
			Address:    e.Actor.Hex(),
			Tokens:     amount(e, "tokens"),
			Value:      wad.Decimal(e.Amount),
			FromBonus:  amount(e, "from_bonus"),
			Market:     market,
			OccurredAt: e.Time,
		}}
	case event.BaseFeeClaimed:
		return []interface{}{&model.InsuranceClaimModel{
			EventId:    e.Id,
			RaiseId:    e.RaiseId,
			Kind:       model.ClaimKindBaseFee,
			Busd:       wad.Decimal(e.Amount),
			Paid:       wad.Decimal(e.Amount),
			OccurredAt: e.Time,
		}}
	case event.InsuranceClaimed:
		cycle, _ := e.Data["cycle"].(uint64)
		return []interface{}{&model.InsuranceClaimModel{
			EventId:    e.Id,
			RaiseId:    e.RaiseId,
			Kind:       model.ClaimKindCycle,
			Cycle:      cycle,
			Busd:       wad.Decimal(e.Amount),
			Paid:       amount(e, "paid"),
			Tokens:     amount(e, "tokens"),
			OccurredAt: e.Time,
		}}
	}
	return nil
}

// raiseUpdates 募资汇总行的更新
func raiseUpdates(e *event.Event) map[string]interface{} {
	switch e.Type {
	case event.Ignited, event.IgniteUndone:
		return map[string]interface{}{"total_ignited": amount(e, "total_ignited")}
	case event.Sparked:
		return map[string]interface{}{
			"status":        model.RaiseStatusSparked,
			"total_ignited": wad.Decimal(e.Amount),
			"total_supply":  amount(e, "total_supply"),
			"reward_supply": amount(e, "reward_supply"),
			"pair":          addr(e, "pair"),
		}
	case event.RefundClaimed:
		return map[string]interface{}{"status": model.RaiseStatusRefunded}
	case event.EndTimeUpdated:
		return map[string]interface{}{"end_time": at(e, "end_time")}
	}
	return nil
}

// insuranceUpdates 保险汇总行的更新
func insuranceUpdates(e *event.Event) map[string]interface{} {
	switch e.Type {
	case event.InsuranceCreated:
		start := e.Time
		return map[string]interface{}{
			"status":              model.InsuranceStatusInitialized,
			"start_time":          &start,
			"total_ignited":       wad.Decimal(e.Amount),
			"tokens_per_eth":      amount(e, "tokens_per_eth"),
			"base_busd":           amount(e, "base_busd"),
			"base_token_lid_pool": amount(e, "base_token_lid_pool"),
			"base_fee":            amount(e, "base_fee"),
		}
	case event.Redeemed:
		if market, _ := e.Data["market"].(bool); market {
			return nil
		}
		return map[string]interface{}{"redeemed_busd": amount(e, "redeemed_total")}
	case event.InsuranceClaimed:
		cycle, _ := e.Data["cycle"].(uint64)
		return map[string]interface{}{
			"claimed_busd":       gorm.Expr("claimed_busd + ?", wad.Decimal(e.Amount)),
			"claimed_token":      gorm.Expr("claimed_token + ?", amount(e, "tokens")),
			"last_claimed_cycle": cycle,
		}
	case event.InsuranceUnwound:
		return map[string]interface{}{"status": model.InsuranceStatusUnwound}
	}
	return nil
}

func amount(e *event.Event, key string) decimal.Decimal {
	v, _ := e.Data[key].(*big.Int)
	return wad.Decimal(v)
}

func str(e *event.Event, key string) string {
	v, _ := e.Data[key].(string)
	return v
}

func addr(e *event.Event, key string) string {
	v, ok := e.Data[key].(common.Address)
	if !ok {
		return ""
	}
	return v.Hex()
}

func at(e *event.Event, key string) time.Time {
	v, _ := e.Data[key].(time.Time)
	return v
}
