package logic

import (
	"errors"
	"fmt"

	"github.com/blues/liftoff/internal/model"
	"gorm.io/gorm"
)

// InsuranceLogic 保险流水查询
type InsuranceLogic struct {
	db *gorm.DB
}

// NewInsuranceLogic 创建保险流水查询
func NewInsuranceLogic(db *gorm.DB) *InsuranceLogic {
	return &InsuranceLogic{db: db}
}

// GetInsurance 获取保险记录
func (l *InsuranceLogic) GetInsurance(raiseId uint64) (*model.InsuranceModel, error) {
	var ins model.InsuranceModel
	if err := l.db.Where("raise_id = ?", raiseId).First(&ins).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("保险记录不存在: %w", err)
		}
		return nil, fmt.Errorf("获取保险记录失败: %w", err)
	}
	return &ins, nil
}

// GetRedeems 分页获取赎回记录
func (l *InsuranceLogic) GetRedeems(raiseId uint64, page, pageSize int) ([]model.RedeemRecordModel, int64, error) {
	return paginate[model.RedeemRecordModel](l.db.Where("raise_id = ?", raiseId), page, pageSize)
}

// GetUserRedeems 分页获取地址的赎回记录
func (l *InsuranceLogic) GetUserRedeems(address string, page, pageSize int) ([]model.RedeemRecordModel, int64, error) {
	return paginate[model.RedeemRecordModel](l.db.Where("address = ?", address), page, pageSize)
}

// GetClaims 分页获取保险领取记录
func (l *InsuranceLogic) GetClaims(raiseId uint64, page, pageSize int) ([]model.InsuranceClaimModel, int64, error) {
	return paginate[model.InsuranceClaimModel](l.db.Where("raise_id = ?", raiseId), page, pageSize)
}
