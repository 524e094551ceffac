package handler

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/blues/liftoff/internal/engine"
	"github.com/blues/liftoff/internal/liftoff"
	"github.com/blues/liftoff/internal/observability"
	"github.com/blues/liftoff/internal/registration"
	"github.com/blues/liftoff/internal/wad"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// RaiseHandler 募资处理器
type RaiseHandler struct {
	rejecter
	engine       *engine.Engine
	registration *registration.Registration
}

// NewRaiseHandler 创建募资处理器
func NewRaiseHandler(eng *engine.Engine, reg *registration.Registration, metrics *observability.Metrics) *RaiseHandler {
	return &RaiseHandler{
		rejecter:     rejecter{metrics: metrics},
		engine:       eng,
		registration: reg,
	}
}

// RegisterProject 登记项目并发起募资
func (h *RaiseHandler) RegisterProject(c *gin.Context) {
	var req RegisterProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := callerOf(c)
	if err != nil {
		h.reject(c, "register_project", err)
		return
	}

	p := registration.Project{
		Info:       req.Info,
		LaunchTime: req.LaunchTime,
		Name:       req.Name,
		Symbol:     req.Symbol,
	}
	if p.SoftCap, err = parseAmount(req.SoftCap); err == nil {
		if p.HardCap, err = parseAmount(req.HardCap); err == nil {
			p.FixedRateWad, err = parseAmount(req.FixedRate)
		}
	}
	if err != nil {
		h.reject(c, "register_project", err)
		return
	}

	id, err := h.registration.RegisterProject(c.Request.Context(), caller, p)
	if err != nil {
		h.reject(c, "register_project", err)
		return
	}
	view, err := h.engine.GetRaise(id)
	if err != nil {
		h.reject(c, "register_project", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "项目登记成功", ToRaiseResponse(view, req.Info))
}

// GetRaises 获取募资列表, 可按状态过滤
func (h *RaiseHandler) GetRaises(c *gin.Context) {
	state := c.Query("state")
	total := h.engine.TotalRaises()
	raises := make([]RaiseResponse, 0, total)
	for id := uint64(0); id < total; id++ {
		view, err := h.engine.GetRaise(id)
		if err != nil {
			h.reject(c, "get_raises", err)
			return
		}
		if state != "" && view.State.String() != state {
			continue
		}
		info, _ := h.registration.Info(id)
		raises = append(raises, ToRaiseResponse(view, info))
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  raises,
		"total": len(raises),
	})
}

// GetRaise 获取单个募资详情
func (h *RaiseHandler) GetRaise(c *gin.Context) {
	id, err := raiseID(c)
	if err != nil {
		h.reject(c, "get_raise", err)
		return
	}
	view, err := h.engine.GetRaise(id)
	if err != nil {
		h.reject(c, "get_raise", err)
		return
	}
	info, _ := h.registration.Info(id)
	c.JSON(http.StatusOK, gin.H{"data": ToRaiseResponse(view, info)})
}

// GetIgnitors 获取募资的全部投资者
func (h *RaiseHandler) GetIgnitors(c *gin.Context) {
	id, err := raiseID(c)
	if err != nil {
		h.reject(c, "get_ignitors", err)
		return
	}
	ignitors, err := h.engine.Ignitors(id)
	if err != nil {
		h.reject(c, "get_ignitors", err)
		return
	}
	list := make([]IgnitorResponse, 0, len(ignitors))
	for addr, ig := range ignitors {
		list = append(list, ToIgnitorResponse(addr, ig))
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// GetIgnitor 获取单个投资者记录
func (h *RaiseHandler) GetIgnitor(c *gin.Context) {
	id, err := raiseID(c)
	if err != nil {
		h.reject(c, "get_ignitor", err)
		return
	}
	addr, err := parseAddress(c.Param("address"), "ignitor")
	if err != nil {
		h.reject(c, "get_ignitor", err)
		return
	}
	ig, err := h.engine.Ignited(id, addr)
	if err != nil {
		h.reject(c, "get_ignitor", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ToIgnitorResponse(addr, ig)})
}

// Ignite 投入储备资产
func (h *RaiseHandler) Ignite(c *gin.Context) {
	var req IgniteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	id, caller, err := h.target(c)
	if err != nil {
		h.reject(c, "ignite", err)
		return
	}
	depositor, err := optionalAddress(req.Depositor, "depositor", caller)
	if err != nil {
		h.reject(c, "ignite", err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.reject(c, "ignite", err)
		return
	}

	accepted, err := h.engine.Ignite(c.Request.Context(), caller, id, depositor, amount)
	if err != nil {
		h.reject(c, "ignite", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "募资成功", gin.H{"accepted": wad.Format(accepted)})
}

// UndoIgnite 撤回全部投入
func (h *RaiseHandler) UndoIgnite(c *gin.Context) {
	id, caller, err := h.target(c)
	if err != nil {
		h.reject(c, "undo_ignite", err)
		return
	}
	returned, err := h.engine.UndoIgnite(c.Request.Context(), caller, id)
	if err != nil {
		h.reject(c, "undo_ignite", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "撤资成功", gin.H{"returned": wad.Format(returned)})
}

// Spark 发射, 任何人可调用
func (h *RaiseHandler) Spark(c *gin.Context) {
	id, err := raiseID(c)
	if err != nil {
		h.reject(c, "spark", err)
		return
	}
	if err := h.engine.Spark(c.Request.Context(), id); err != nil {
		h.reject(c, "spark", err)
		return
	}
	view, err := h.engine.GetRaise(id)
	if err != nil {
		h.reject(c, "spark", err)
		return
	}
	info, _ := h.registration.Info(id)
	SuccessResponse(c, http.StatusOK, "发射成功", ToRaiseResponse(view, info))
}

// ClaimReward 领取代币奖励
func (h *RaiseHandler) ClaimReward(c *gin.Context) {
	h.claim(c, "claim_reward", h.engine.ClaimReward, "领取奖励成功")
}

// ClaimRefund 领取退款
func (h *RaiseHandler) ClaimRefund(c *gin.Context) {
	h.claim(c, "claim_refund", h.engine.ClaimRefund, "退款成功")
}

func (h *RaiseHandler) claim(c *gin.Context, operation string,
	fn func(ctx context.Context, id uint64, depositor common.Address) (*big.Int, error), message string) {
	var req DepositorRequest
	// 请求体可为空
	_ = c.ShouldBindJSON(&req)

	id, caller, err := h.target(c)
	if err != nil {
		h.reject(c, operation, err)
		return
	}
	depositor, err := optionalAddress(req.Depositor, "depositor", caller)
	if err != nil {
		h.reject(c, operation, err)
		return
	}
	amount, err := fn(c.Request.Context(), id, depositor)
	if err != nil {
		h.reject(c, operation, err)
		return
	}
	SuccessResponse(c, http.StatusOK, message, gin.H{
		"depositor": depositor.Hex(),
		"amount":    wad.Format(amount),
	})
}

// UpdateEndTime 调整结束时间, 仅 owner
func (h *RaiseHandler) UpdateEndTime(c *gin.Context) {
	var req EndTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	id, caller, err := h.target(c)
	if err != nil {
		h.reject(c, "update_end_time", err)
		return
	}
	delta, err := time.ParseDuration(req.Delta)
	if err != nil {
		h.reject(c, "update_end_time", liftoff.Invalid(err.Error()))
		return
	}
	end, err := h.engine.UpdateEndTime(c.Request.Context(), caller, delta, id)
	if err != nil {
		h.reject(c, "update_end_time", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "结束时间已更新", gin.H{"end_time": end})
}

// target 解析募资 id 与调用方
func (h *RaiseHandler) target(c *gin.Context) (uint64, common.Address, error) {
	id, err := raiseID(c)
	if err != nil {
		return 0, common.Address{}, err
	}
	caller, err := callerOf(c)
	if err != nil {
		return 0, common.Address{}, err
	}
	return id, caller, nil
}
