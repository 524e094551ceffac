package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/blues/liftoff/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RecordHandler 事件流水查询处理器
type RecordHandler struct {
	raiseLogic     *logic.RaiseLogic
	insuranceLogic *logic.InsuranceLogic
	eventLogic     *logic.EventLogic
}

// NewRecordHandler 创建流水查询处理器
func NewRecordHandler(db *gorm.DB) *RecordHandler {
	return &RecordHandler{
		raiseLogic:     logic.NewRaiseLogic(db),
		insuranceLogic: logic.NewInsuranceLogic(db),
		eventLogic:     logic.NewEventLogic(db),
	}
}

func recordRaiseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的募资ID"})
		return 0, false
	}
	return id, true
}

func lookupFailed(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func listed(c *gin.Context, data interface{}, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, gin.H{
		"data":       data,
		"pagination": pagination(page, pageSize, total),
	})
}

// GetRaiseRecords 获取已入库的募资列表
func (h *RecordHandler) GetRaiseRecords(c *gin.Context) {
	page, pageSize := pageParams(c)
	raises, total, err := h.raiseLogic.GetRaises(c.Query("status"), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	listed(c, raises, total, page, pageSize)
}

// GetRaiseRecord 获取已入库的募资详情
func (h *RecordHandler) GetRaiseRecord(c *gin.Context) {
	id, ok := recordRaiseID(c)
	if !ok {
		return
	}
	raise, err := h.raiseLogic.GetRaise(id)
	if err != nil {
		lookupFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": raise})
}

// GetRaiseStats 获取募资统计
func (h *RecordHandler) GetRaiseStats(c *gin.Context) {
	id, ok := recordRaiseID(c)
	if !ok {
		return
	}
	stats, err := h.raiseLogic.GetRaiseStats(id)
	if err != nil {
		lookupFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// GetIgnitions 获取募资的投入与撤资记录
func (h *RecordHandler) GetIgnitions(c *gin.Context) {
	id, ok := recordRaiseID(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	records, total, err := h.raiseLogic.GetIgnitions(id, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	listed(c, records, total, page, pageSize)
}

// GetUserIgnitions 获取用户的投入记录
func (h *RecordHandler) GetUserIgnitions(c *gin.Context) {
	address := c.Param("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "用户地址不能为空"})
		return
	}
	page, pageSize := pageParams(c)
	records, total, err := h.raiseLogic.GetUserIgnitions(address, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	listed(c, records, total, page, pageSize)
}

// GetRewardClaims 获取奖励领取记录
func (h *RecordHandler) GetRewardClaims(c *gin.Context) {
	id, ok := recordRaiseID(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	records, total, err := h.raiseLogic.GetRewardClaims(id, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	listed(c, records, total, page, pageSize)
}

// GetRefunds 获取退款记录
func (h *RecordHandler) GetRefunds(c *gin.Context) {
	id, ok := recordRaiseID(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	records, total, err := h.raiseLogic.GetRefunds(id, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	listed(c, records, total, page, pageSize)
}

// GetInsuranceRecord 获取已入库的保险汇总
func (h *RecordHandler) GetInsuranceRecord(c *gin.Context) {
	id, ok := recordRaiseID(c)
	if !ok {
		return
	}
	ins, err := h.insuranceLogic.GetInsurance(id)
	if err != nil {
		lookupFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ins})
}

// GetRedeems 获取赎回记录
func (h *RecordHandler) GetRedeems(c *gin.Context) {
	id, ok := recordRaiseID(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	records, total, err := h.insuranceLogic.GetRedeems(id, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	listed(c, records, total, page, pageSize)
}

// GetUserRedeems 获取用户的赎回记录
func (h *RecordHandler) GetUserRedeems(c *gin.Context) {
	address := c.Param("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "用户地址不能为空"})
		return
	}
	page, pageSize := pageParams(c)
	records, total, err := h.insuranceLogic.GetUserRedeems(address, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	listed(c, records, total, page, pageSize)
}

// GetInsuranceClaims 获取保险领取记录
func (h *RecordHandler) GetInsuranceClaims(c *gin.Context) {
	id, ok := recordRaiseID(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	records, total, err := h.insuranceLogic.GetClaims(id, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	listed(c, records, total, page, pageSize)
}

// GetEvents 获取事件流水, 可按募资与类型过滤
func (h *RecordHandler) GetEvents(c *gin.Context) {
	var raiseId *uint64
	if s := c.Query("raise_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的募资ID"})
			return
		}
		raiseId = &id
	}
	page, pageSize := pageParams(c)
	events, total, err := h.eventLogic.GetEvents(raiseId, c.Query("type"), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	listed(c, events, total, page, pageSize)
}

// GetEvent 获取单个事件
func (h *RecordHandler) GetEvent(c *gin.Context) {
	e, err := h.eventLogic.GetEvent(c.Param("event_id"))
	if err != nil {
		lookupFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": e})
}
