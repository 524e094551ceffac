package handler

import (
	"net/http"

	"github.com/blues/liftoff/internal/observability"
	"github.com/blues/liftoff/internal/partnership"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// PartnershipHandler 合作方分成处理器
type PartnershipHandler struct {
	rejecter
	partnerships *partnership.Ledger
}

// NewPartnershipHandler 创建合作方分成处理器
func NewPartnershipHandler(l *partnership.Ledger, metrics *observability.Metrics) *PartnershipHandler {
	return &PartnershipHandler{
		rejecter:     rejecter{metrics: metrics},
		partnerships: l,
	}
}

// SetPartner 登记或更新合作方
func (h *PartnershipHandler) SetPartner(c *gin.Context) {
	var req PartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	id, err := uintParam(c, "pid", "合作方ID")
	if err != nil {
		h.reject(c, "set_partner", err)
		return
	}
	caller, err := callerOf(c)
	if err != nil {
		h.reject(c, "set_partner", err)
		return
	}
	addr, err := parseAddress(req.Address, "partner")
	if err != nil {
		h.reject(c, "set_partner", err)
		return
	}
	if err := h.partnerships.SetPartner(caller, id, addr, req.Info); err != nil {
		h.reject(c, "set_partner", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "合作方已更新", partnership.Partner{Id: id, Address: addr, Info: req.Info})
}

// GetPartner 查询合作方
func (h *PartnershipHandler) GetPartner(c *gin.Context) {
	id, err := uintParam(c, "pid", "合作方ID")
	if err != nil {
		h.reject(c, "get_partner", err)
		return
	}
	p, err := h.partnerships.GetPartner(id)
	if err != nil {
		h.reject(c, "get_partner", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"id":      p.Id,
		"address": p.Address.Hex(),
		"info":    p.Info,
	}})
}

// GetRequests 查询某次募资的分成申请
func (h *PartnershipHandler) GetRequests(c *gin.Context) {
	id, err := raiseID(c)
	if err != nil {
		h.reject(c, "get_partnerships", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ToRequestResponseList(h.partnerships.Requests(id))})
}

// RequestPartnership 合作方申请分成
func (h *PartnershipHandler) RequestPartnership(c *gin.Context) {
	var req PartnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	id, err := raiseID(c)
	if err != nil {
		h.reject(c, "request_partnership", err)
		return
	}
	caller, err := callerOf(c)
	if err != nil {
		h.reject(c, "request_partnership", err)
		return
	}
	requestId, err := h.partnerships.RequestPartnership(caller, req.PartnerId, id, req.FeeBP)
	if err != nil {
		h.reject(c, "request_partnership", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "分成申请已提交", gin.H{"request_id": requestId})
}

// AcceptPartnership 项目方接受分成申请
func (h *PartnershipHandler) AcceptPartnership(c *gin.Context) {
	h.transition(c, "accept_partnership", h.partnerships.AcceptPartnership, "分成已生效")
}

// CancelPartnership 取消分成
func (h *PartnershipHandler) CancelPartnership(c *gin.Context) {
	h.transition(c, "cancel_partnership", h.partnerships.CancelPartnership, "分成已取消")
}

func (h *PartnershipHandler) transition(c *gin.Context, operation string,
	fn func(caller common.Address, raiseId, requestId uint64) error, message string) {
	id, err := raiseID(c)
	if err != nil {
		h.reject(c, operation, err)
		return
	}
	requestId, err := uintParam(c, "rid", "申请ID")
	if err != nil {
		h.reject(c, operation, err)
		return
	}
	caller, err := callerOf(c)
	if err != nil {
		h.reject(c, operation, err)
		return
	}
	if err := fn(caller, id, requestId); err != nil {
		h.reject(c, operation, err)
		return
	}
	SuccessResponse(c, http.StatusOK, message, gin.H{"request_id": requestId})
}
