package logic

import (
	"errors"
	"fmt"

	"github.com/blues/liftoff/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RaiseLogic 募资流水查询
type RaiseLogic struct {
	db *gorm.DB
}

// NewRaiseLogic 创建募资流水查询
func NewRaiseLogic(db *gorm.DB) *RaiseLogic {
	return &RaiseLogic{db: db}
}

// GetRaises 分页获取募资列表, status 为空时不过滤
func (r *RaiseLogic) GetRaises(status string, page, pageSize int) ([]model.RaiseModel, int64, error) {
	var raises []model.RaiseModel
	var total int64

	query := r.db.Model(&model.RaiseModel{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	// 获取总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取募资总数失败: %w", err)
	}

	// 分页查询
	offset := (page - 1) * pageSize
	if err := query.Order("raise_id DESC").Offset(offset).Limit(pageSize).Find(&raises).Error; err != nil {
		return nil, 0, fmt.Errorf("获取募资列表失败: %w", err)
	}

	return raises, total, nil
}

// GetRaise 获取单个募资记录
func (r *RaiseLogic) GetRaise(raiseId uint64) (*model.RaiseModel, error) {
	var raise model.RaiseModel
	if err := r.db.Where("raise_id = ?", raiseId).First(&raise).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("募资记录不存在: %w", err)
		}
		return nil, fmt.Errorf("获取募资记录失败: %w", err)
	}
	return &raise, nil
}

// GetIgnitions 分页获取募资的存款流水
func (r *RaiseLogic) GetIgnitions(raiseId uint64, page, pageSize int) ([]model.IgnitionRecordModel, int64, error) {
	return paginate[model.IgnitionRecordModel](r.db.Where("raise_id = ?", raiseId), page, pageSize)
}

// GetUserIgnitions 分页获取地址的存款流水
func (r *RaiseLogic) GetUserIgnitions(address string, page, pageSize int) ([]model.IgnitionRecordModel, int64, error) {
	return paginate[model.IgnitionRecordModel](r.db.Where("address = ?", address), page, pageSize)
}

// GetRewardClaims 分页获取奖励领取记录
func (r *RaiseLogic) GetRewardClaims(raiseId uint64, page, pageSize int) ([]model.RewardClaimModel, int64, error) {
	return paginate[model.RewardClaimModel](r.db.Where("raise_id = ?", raiseId), page, pageSize)
}

// GetRefunds 分页获取退款记录
func (r *RaiseLogic) GetRefunds(raiseId uint64, page, pageSize int) ([]model.RefundRecordModel, int64, error) {
	return paginate[model.RefundRecordModel](r.db.Where("raise_id = ?", raiseId), page, pageSize)
}

// GetRaiseStats 获取募资统计信息
func (r *RaiseLogic) GetRaiseStats(raiseId uint64) (map[string]interface{}, error) {
	var stats struct {
		Ignitions    int64
		Ignitors     int64
		RewardClaims int64
		Refunds      int64
		Refunded     decimal.Decimal
	}

	// 存款次数
	if err := r.db.Model(&model.IgnitionRecordModel{}).
		Where("raise_id = ? AND action = ?", raiseId, model.IgnitionActionIgnite).
		Count(&stats.Ignitions).Error; err != nil {
		return nil, fmt.Errorf("获取存款次数失败: %w", err)
	}

	// 投资者数量
	if err := r.db.Model(&model.IgnitionRecordModel{}).
		Where("raise_id = ?", raiseId).
		Distinct("address").
		Count(&stats.Ignitors).Error; err != nil {
		return nil, fmt.Errorf("获取投资者数量失败: %w", err)
	}

	// 领取次数
	if err := r.db.Model(&model.RewardClaimModel{}).Where("raise_id = ?", raiseId).Count(&stats.RewardClaims).Error; err != nil {
		return nil, fmt.Errorf("获取领取次数失败: %w", err)
	}

	// 退款次数与金额
	if err := r.db.Model(&model.RefundRecordModel{}).Where("raise_id = ?", raiseId).Count(&stats.Refunds).Error; err != nil {
		return nil, fmt.Errorf("获取退款次数失败: %w", err)
	}
	if err := r.db.Model(&model.RefundRecordModel{}).Where("raise_id = ?", raiseId).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.Refunded).Error; err != nil {
		return nil, fmt.Errorf("获取退款金额失败: %w", err)
	}

	return map[string]interface{}{
		"ignitions":     stats.Ignitions,
		"ignitors":      stats.Ignitors,
		"reward_claims": stats.RewardClaims,
		"refunds":       stats.Refunds,
		"refunded":      stats.Refunded.String(),
	}, nil
}

// paginate 按创建时间倒序分页
func paginate[T any](query *gorm.DB, page, pageSize int) ([]T, int64, error) {
	var rows []T
	var total int64

	if err := query.Model(new(T)).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取记录总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("获取记录失败: %w", err)
	}

	return rows, total, nil
}
