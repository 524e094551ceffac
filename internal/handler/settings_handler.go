package handler

import (
	"net/http"
	"time"

	"github.com/blues/liftoff/internal/liftoff"
	"github.com/blues/liftoff/internal/observability"
	"github.com/blues/liftoff/internal/protocol"
	"github.com/blues/liftoff/internal/registration"
	"github.com/blues/liftoff/internal/settings"
	"github.com/blues/liftoff/internal/wad"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// SettingsHandler 协议参数, 登记窗口与储备资产处理器
type SettingsHandler struct {
	rejecter
	protocol *protocol.Protocol
}

// NewSettingsHandler 创建参数处理器
func NewSettingsHandler(p *protocol.Protocol, metrics *observability.Metrics) *SettingsHandler {
	return &SettingsHandler{
		rejecter: rejecter{metrics: metrics},
		protocol: p,
	}
}

// GetSettings 获取当前参数
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": ToSettingsResponse(h.protocol.Settings.Snapshot())})
}

// SetBusdBP 设置储备分配
func (h *SettingsHandler) SetBusdBP(c *gin.Context) {
	var req BPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := callerOf(c)
	if err != nil {
		h.reject(c, "set_busd_bp", err)
		return
	}
	err = h.protocol.Settings.SetBusdBP(caller, req.BusdLockBP, req.BaseFeeBP, req.EthBuyBP,
		req.ProjectDevBP, req.MainFeeBP, req.LidPoolBP)
	if err != nil {
		h.reject(c, "set_busd_bp", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "参数已更新", ToSettingsResponse(h.protocol.Settings.Snapshot()))
}

// SetAllUints 一次设置全部数值参数
func (h *SettingsHandler) SetAllUints(c *gin.Context) {
	var req UintsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := callerOf(c)
	if err != nil {
		h.reject(c, "set_all_uints", err)
		return
	}
	period, err := time.ParseDuration(req.InsurancePeriod)
	if err != nil {
		h.reject(c, "set_all_uints", liftoff.Invalid(err.Error()))
		return
	}
	err = h.protocol.Settings.SetAllUints(caller, req.TokenUserBP, period, req.BusdLockBP, req.BaseFeeBP,
		req.EthBuyBP, req.ProjectDevBP, req.MainFeeBP, req.LidPoolBP)
	if err != nil {
		h.reject(c, "set_all_uints", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "参数已更新", ToSettingsResponse(h.protocol.Settings.Snapshot()))
}

// SetAllAddresses 一次设置全部角色地址
func (h *SettingsHandler) SetAllAddresses(c *gin.Context) {
	var req AddressesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := callerOf(c)
	if err != nil {
		h.reject(c, "set_all_addresses", err)
		return
	}

	var a settings.Addresses
	fields := []struct {
		raw, name string
		dst       *common.Address
	}{
		{req.Insurance, "insurance", &a.Insurance},
		{req.Registration, "registration", &a.Registration},
		{req.Engine, "engine", &a.Engine},
		{req.Partnerships, "partnerships", &a.Partnerships},
		{req.ReserveAsset, "reserve asset", &a.ReserveAsset},
		{req.Exchange, "exchange", &a.Exchange},
		{req.LidTreasury, "lid treasury", &a.LidTreasury},
		{req.LidPoolManager, "lid pool manager", &a.LidPoolManager},
	}
	for _, f := range fields {
		if *f.dst, err = parseAddress(f.raw, f.name); err != nil {
			h.reject(c, "set_all_addresses", err)
			return
		}
	}

	if err := h.protocol.Settings.SetAllAddresses(caller, a); err != nil {
		h.reject(c, "set_all_addresses", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "地址已更新", ToSettingsResponse(h.protocol.Settings.Snapshot()))
}

// GetWindow 获取登记窗口
func (h *SettingsHandler) GetWindow(c *gin.Context) {
	w := h.protocol.Registration.Window()
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"min_time_to_launch": w.MinTimeToLaunch.String(),
		"max_time_to_launch": w.MaxTimeToLaunch.String(),
		"soft_cap_timer":     w.SoftCapTimer.String(),
	}})
}

// SetWindow 调整登记窗口
func (h *SettingsHandler) SetWindow(c *gin.Context) {
	var req WindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := callerOf(c)
	if err != nil {
		h.reject(c, "set_window", err)
		return
	}
	var w registration.Window
	if w.MinTimeToLaunch, err = time.ParseDuration(req.MinTimeToLaunch); err == nil {
		if w.MaxTimeToLaunch, err = time.ParseDuration(req.MaxTimeToLaunch); err == nil {
			w.SoftCapTimer, err = time.ParseDuration(req.SoftCapTimer)
		}
	}
	if err != nil {
		h.reject(c, "set_window", liftoff.Invalid(err.Error()))
		return
	}
	if err := h.protocol.Registration.SetWindow(caller, w); err != nil {
		h.reject(c, "set_window", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "登记窗口已更新", nil)
}

// GetBalance 查询代币余额
func (h *SettingsHandler) GetBalance(c *gin.Context) {
	token, err := parseAddress(c.Param("token"), "token")
	if err != nil {
		h.reject(c, "get_balance", err)
		return
	}
	holder, err := parseAddress(c.Param("address"), "holder")
	if err != nil {
		h.reject(c, "get_balance", err)
		return
	}
	meta, ok := h.protocol.Ledger.Token(token)
	if !ok {
		h.reject(c, "get_balance", liftoff.Invalid("unknown token"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"token":   token.Hex(),
		"symbol":  meta.Symbol,
		"holder":  holder.Hex(),
		"balance": wad.Format(h.protocol.Ledger.BalanceOf(token, holder)),
	}})
}

// Fund 铸造储备资产, 仅储备资产 owner
func (h *SettingsHandler) Fund(c *gin.Context) {
	var req FundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := callerOf(c)
	if err != nil {
		h.reject(c, "fund", err)
		return
	}
	to, err := parseAddress(req.To, "recipient")
	if err != nil {
		h.reject(c, "fund", err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.reject(c, "fund", err)
		return
	}
	if err := h.protocol.Fund(caller, to, amount); err != nil {
		h.reject(c, "fund", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "储备已发放", gin.H{"to": to.Hex(), "amount": wad.Format(amount)})
}
