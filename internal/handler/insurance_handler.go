package handler

import (
	"net/http"

	"github.com/blues/liftoff/internal/insurance"
	"github.com/blues/liftoff/internal/observability"
	"github.com/blues/liftoff/internal/wad"
	"github.com/gin-gonic/gin"
)

// InsuranceHandler 保险处理器
type InsuranceHandler struct {
	rejecter
	insurance *insurance.Insurance
}

// NewInsuranceHandler 创建保险处理器
func NewInsuranceHandler(ins *insurance.Insurance, metrics *observability.Metrics) *InsuranceHandler {
	return &InsuranceHandler{
		rejecter:  rejecter{metrics: metrics},
		insurance: ins,
	}
}

// GetInsurance 获取保险详情
func (h *InsuranceHandler) GetInsurance(c *gin.Context) {
	id, err := raiseID(c)
	if err != nil {
		h.reject(c, "get_insurance", err)
		return
	}
	view, err := h.insurance.GetInsurance(id)
	if err != nil {
		h.reject(c, "get_insurance", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ToInsuranceResponse(view)})
}

// CreateInsurance 初始化保险, 任何人可调用
func (h *InsuranceHandler) CreateInsurance(c *gin.Context) {
	id, err := raiseID(c)
	if err != nil {
		h.reject(c, "create_insurance", err)
		return
	}
	if err := h.insurance.CreateInsurance(c.Request.Context(), id); err != nil {
		h.reject(c, "create_insurance", err)
		return
	}
	view, err := h.insurance.GetInsurance(id)
	if err != nil {
		h.reject(c, "create_insurance", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "保险已创建", ToInsuranceResponse(view))
}

// Redeem 以代币赎回储备
func (h *InsuranceHandler) Redeem(c *gin.Context) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	id, err := raiseID(c)
	if err != nil {
		h.reject(c, "redeem", err)
		return
	}
	caller, err := callerOf(c)
	if err != nil {
		h.reject(c, "redeem", err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.reject(c, "redeem", err)
		return
	}

	value, err := h.insurance.Redeem(c.Request.Context(), caller, id, amount)
	if err != nil {
		h.reject(c, "redeem", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "赎回成功", gin.H{
		"tokens": wad.Format(amount),
		"value":  wad.Format(value),
	})
}

// GetRedeemValue 按固定价格试算赎回价值
func (h *InsuranceHandler) GetRedeemValue(c *gin.Context) {
	id, err := raiseID(c)
	if err != nil {
		h.reject(c, "redeem_value", err)
		return
	}
	amount, err := parseAmount(c.Query("amount"))
	if err != nil {
		h.reject(c, "redeem_value", err)
		return
	}
	view, err := h.insurance.GetInsurance(id)
	if err != nil {
		h.reject(c, "redeem_value", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"tokens": wad.Format(amount),
		"value":  wad.Format(h.insurance.GetRedeemValue(amount, view.TokensPerEthWad)),
	}})
}

// Claim 领取基础费用或当期释放, 任何人可调用
func (h *InsuranceHandler) Claim(c *gin.Context) {
	id, err := raiseID(c)
	if err != nil {
		h.reject(c, "insurance_claim", err)
		return
	}
	result, err := h.insurance.Claim(c.Request.Context(), id)
	if err != nil {
		h.reject(c, "insurance_claim", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "领取成功", ToClaimResponse(result))
}

// GetClaimable 当前可领取的储备与代币
func (h *InsuranceHandler) GetClaimable(c *gin.Context) {
	id, err := raiseID(c)
	if err != nil {
		h.reject(c, "claimable", err)
		return
	}
	busd, tokens, err := h.insurance.ClaimableNow(id)
	if err != nil {
		h.reject(c, "claimable", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"busd":   wad.Format(busd),
		"tokens": wad.Format(tokens),
	}})
}

// GetBonus 查询贡献者的保险奖励
func (h *InsuranceHandler) GetBonus(c *gin.Context) {
	id, err := raiseID(c)
	if err != nil {
		h.reject(c, "get_bonus", err)
		return
	}
	contributor, err := parseAddress(c.Param("address"), "contributor")
	if err != nil {
		h.reject(c, "get_bonus", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"contributor": contributor.Hex(),
		"bonus":       wad.Format(h.insurance.Bonus(id, contributor)),
	}})
}

// IncreaseBonus 增加保险奖励, 仅 owner
func (h *InsuranceHandler) IncreaseBonus(c *gin.Context) {
	h.adjustBonus(c, "increase_bonus", true)
}

// DecreaseBonus 减少保险奖励, 仅 owner
func (h *InsuranceHandler) DecreaseBonus(c *gin.Context) {
	h.adjustBonus(c, "decrease_bonus", false)
}

func (h *InsuranceHandler) adjustBonus(c *gin.Context, operation string, increase bool) {
	var req BonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	id, err := raiseID(c)
	if err != nil {
		h.reject(c, operation, err)
		return
	}
	caller, err := callerOf(c)
	if err != nil {
		h.reject(c, operation, err)
		return
	}
	contributor, err := parseAddress(req.Contributor, "contributor")
	if err != nil {
		h.reject(c, operation, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.reject(c, operation, err)
		return
	}

	ctx := c.Request.Context()
	if increase {
		err = h.insurance.IncreaseInsuranceBonus(ctx, caller, id, contributor, amount)
	} else {
		err = h.insurance.DecreaseInsuranceBonus(ctx, caller, id, contributor, amount)
	}
	if err != nil {
		h.reject(c, operation, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "保险奖励已更新", gin.H{
		"contributor": contributor.Hex(),
		"bonus":       wad.Format(h.insurance.Bonus(id, contributor)),
	})
}
