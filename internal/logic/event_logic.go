package logic

import (
	"errors"
	"fmt"

	"github.com/blues/liftoff/internal/model"
	"gorm.io/gorm"
)

// EventLogic 事件流水查询
type EventLogic struct {
	db *gorm.DB
}

// NewEventLogic 创建事件流水查询
func NewEventLogic(db *gorm.DB) *EventLogic {
	return &EventLogic{db: db}
}

// GetEvents 获取事件列表, raiseId 为 nil 或 eventType 为空时不过滤
func (e *EventLogic) GetEvents(raiseId *uint64, eventType string, page, pageSize int) ([]model.EventModel, int64, error) {
	var events []model.EventModel
	var total int64

	// 构建查询条件
	query := e.db.Model(&model.EventModel{})
	if raiseId != nil {
		query = query.Where("raise_id = ?", *raiseId)
	}
	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	// 获取总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取事件总数失败: %w", err)
	}

	// 分页查询
	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("occurred_at DESC").Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("获取事件列表失败: %w", err)
	}

	return events, total, nil
}

// GetEvent 获取单个事件
func (e *EventLogic) GetEvent(eventId string) (*model.EventModel, error) {
	var event model.EventModel
	if err := e.db.Where("event_id = ?", eventId).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("事件不存在: %w", err)
		}
		return nil, fmt.Errorf("获取事件失败: %w", err)
	}
	return &event, nil
}
