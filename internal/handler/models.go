package handler

import (
	"time"

	"github.com/blues/liftoff/internal/engine"
	"github.com/blues/liftoff/internal/insurance"
	"github.com/blues/liftoff/internal/partnership"
	"github.com/blues/liftoff/internal/settings"
	"github.com/blues/liftoff/internal/wad"
	"github.com/ethereum/go-ethereum/common"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 请求模型, 金额均为十进制字符串

// RegisterProjectRequest 登记项目
type RegisterProjectRequest struct {
	Info       string    `json:"info"`
	LaunchTime time.Time `json:"launch_time" binding:"required"`
	SoftCap    string    `json:"soft_cap" binding:"required"`
	HardCap    string    `json:"hard_cap" binding:"required"`
	FixedRate  string    `json:"fixed_rate" binding:"required"`
	Name       string    `json:"name" binding:"required"`
	Symbol     string    `json:"symbol" binding:"required"`
}

// IgniteRequest 募资, depositor 为空时记入调用方
type IgniteRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Depositor string `json:"depositor"`
}

// DepositorRequest 代投资者领取
type DepositorRequest struct {
	Depositor string `json:"depositor"`
}

// EndTimeRequest 调整结束时间, delta 形如 "2h" 或 "-30m"
type EndTimeRequest struct {
	Delta string `json:"delta" binding:"required"`
}

// AmountRequest 单一金额
type AmountRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// BonusRequest 调整保险奖励
type BonusRequest struct {
	Contributor string `json:"contributor" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
}

// PartnerRequest 设置合作方
type PartnerRequest struct {
	Address string `json:"address" binding:"required"`
	Info    string `json:"info"`
}

// PartnershipRequest 申请分成
type PartnershipRequest struct {
	PartnerId uint64 `json:"partner_id"`
	FeeBP     uint64 `json:"fee_bp" binding:"required"`
}

// FundRequest 铸造储备资产
type FundRequest struct {
	To     string `json:"to" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// BPRequest 储备分配基点
type BPRequest struct {
	BusdLockBP   uint64 `json:"busd_lock_bp"`
	BaseFeeBP    uint64 `json:"base_fee_bp"`
	EthBuyBP     uint64 `json:"eth_buy_bp"`
	ProjectDevBP uint64 `json:"project_dev_bp"`
	MainFeeBP    uint64 `json:"main_fee_bp"`
	LidPoolBP    uint64 `json:"lid_pool_bp"`
}

// UintsRequest 全部数值参数
type UintsRequest struct {
	BPRequest
	TokenUserBP     uint64 `json:"token_user_bp"`
	InsurancePeriod string `json:"insurance_period" binding:"required"`
}

// AddressesRequest 全部角色地址
type AddressesRequest struct {
	Insurance      string `json:"insurance"`
	Registration   string `json:"registration"`
	Engine         string `json:"engine"`
	Partnerships   string `json:"partnerships"`
	ReserveAsset   string `json:"reserve_asset"`
	Exchange       string `json:"exchange"`
	LidTreasury    string `json:"lid_treasury"`
	LidPoolManager string `json:"lid_pool_manager"`
}

// WindowRequest 登记窗口
type WindowRequest struct {
	MinTimeToLaunch string `json:"min_time_to_launch" binding:"required"`
	MaxTimeToLaunch string `json:"max_time_to_launch" binding:"required"`
	SoftCapTimer    string `json:"soft_cap_timer" binding:"required"`
}

// 响应模型

// RaiseResponse 募资响应模型
type RaiseResponse struct {
	Id            uint64    `json:"id"`
	Name          string    `json:"name"`
	Symbol        string    `json:"symbol"`
	Info          string    `json:"info,omitempty"`
	State         string    `json:"state"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	SoftCap       string    `json:"soft_cap"`
	HardCap       string    `json:"hard_cap"`
	FixedRate     string    `json:"fixed_rate"`
	TotalIgnited  string    `json:"total_ignited"`
	TotalSupply   string    `json:"total_supply"`
	RewardSupply  string    `json:"reward_supply"`
	ProjectDev    string    `json:"project_dev"`
	DeployedToken string    `json:"deployed_token"`
	PairAddress   string    `json:"pair_address,omitempty"`
	Ignitors      int       `json:"ignitors"`
}

// IgnitorResponse 投资者响应模型
type IgnitorResponse struct {
	Address string `json:"address"`
	Ignited string `json:"ignited"`
	Status  string `json:"status"`
}

// InsuranceResponse 保险响应模型
type InsuranceResponse struct {
	RaiseId          uint64    `json:"raise_id"`
	Status           string    `json:"status"`
	Token            string    `json:"token,omitempty"`
	Pair             string    `json:"pair,omitempty"`
	ProjectDev       string    `json:"project_dev,omitempty"`
	StartTime        time.Time `json:"start_time"`
	TotalIgnited     string    `json:"total_ignited"`
	TokensPerEth     string    `json:"tokens_per_eth"`
	BaseBusd         string    `json:"base_busd"`
	BaseTokenLidPool string    `json:"base_token_lid_pool"`
	BaseFee          string    `json:"base_fee"`
	BaseFeeClaimed   bool      `json:"base_fee_claimed"`
	Reserve          string    `json:"reserve"`
	RedeemedBusd     string    `json:"redeemed_busd"`
	ClaimedBusd      string    `json:"claimed_busd"`
	ClaimedToken     string    `json:"claimed_token"`
	LastClaimedCycle uint64    `json:"last_claimed_cycle"`
	Cycles           uint64    `json:"cycles"`
}

// ClaimResponse 保险领取结果
type ClaimResponse struct {
	BaseFee     string            `json:"base_fee,omitempty"`
	Cycle       uint64            `json:"cycle,omitempty"`
	Busd        string            `json:"busd,omitempty"`
	Tokens      string            `json:"tokens,omitempty"`
	Allocations map[string]string `json:"allocations,omitempty"`
}

// SettingsResponse 参数响应模型
type SettingsResponse struct {
	Insurance       string `json:"insurance"`
	Registration    string `json:"registration"`
	Engine          string `json:"engine"`
	Partnerships    string `json:"partnerships"`
	ReserveAsset    string `json:"reserve_asset"`
	Exchange        string `json:"exchange"`
	LidTreasury     string `json:"lid_treasury"`
	LidPoolManager  string `json:"lid_pool_manager"`
	BusdLockBP      uint64 `json:"busd_lock_bp"`
	TokenUserBP     uint64 `json:"token_user_bp"`
	InsurancePeriod string `json:"insurance_period"`
	BaseFeeBP       uint64 `json:"base_fee_bp"`
	EthBuyBP        uint64 `json:"eth_buy_bp"`
	ProjectDevBP    uint64 `json:"project_dev_bp"`
	MainFeeBP       uint64 `json:"main_fee_bp"`
	LidPoolBP       uint64 `json:"lid_pool_bp"`
}

// RequestResponse 分成申请响应模型
type RequestResponse struct {
	Id        uint64 `json:"id"`
	PartnerId uint64 `json:"partner_id"`
	RaiseId   uint64 `json:"raise_id"`
	FeeBP     uint64 `json:"fee_bp"`
	Status    string `json:"status"`
}

// 转换函数

// ToRaiseResponse 将引擎视图转换为响应模型
func ToRaiseResponse(v engine.RaiseView, info string) RaiseResponse {
	resp := RaiseResponse{
		Id:            v.Id,
		Name:          v.Name,
		Symbol:        v.Symbol,
		Info:          info,
		State:         v.State.String(),
		StartTime:     v.StartTime,
		EndTime:       v.EndTime,
		SoftCap:       wad.Format(v.SoftCap),
		HardCap:       wad.Format(v.HardCap),
		FixedRate:     wad.Format(v.FixedRateWad),
		TotalIgnited:  wad.Format(v.TotalIgnited),
		TotalSupply:   wad.Format(v.TotalSupply),
		RewardSupply:  wad.Format(v.RewardSupply),
		ProjectDev:    v.ProjectDev.Hex(),
		DeployedToken: v.DeployedToken.Hex(),
		Ignitors:      v.Ignitors,
	}
	if v.PairAddress != (common.Address{}) {
		resp.PairAddress = v.PairAddress.Hex()
	}
	return resp
}

// ToIgnitorResponse 将投资者记录转换为响应模型
func ToIgnitorResponse(addr common.Address, ig engine.Ignitor) IgnitorResponse {
	return IgnitorResponse{
		Address: addr.Hex(),
		Ignited: wad.Format(ig.Ignited),
		Status:  ig.Status.String(),
	}
}

// ToInsuranceResponse 将保险视图转换为响应模型
func ToInsuranceResponse(v insurance.View) InsuranceResponse {
	resp := InsuranceResponse{
		RaiseId:          v.Id,
		Status:           v.Status.String(),
		StartTime:        v.StartTime,
		TotalIgnited:     wad.Format(v.TotalIgnited),
		TokensPerEth:     wad.Format(v.TokensPerEthWad),
		BaseBusd:         wad.Format(v.BaseBusd),
		BaseTokenLidPool: wad.Format(v.BaseTokenLidPool),
		BaseFee:          wad.Format(v.BaseFee),
		BaseFeeClaimed:   v.BaseFeeClaimed,
		Reserve:          wad.Format(v.Reserve),
		RedeemedBusd:     wad.Format(v.RedeemedBusd),
		ClaimedBusd:      wad.Format(v.ClaimedBusd),
		ClaimedToken:     wad.Format(v.ClaimedToken),
		LastClaimedCycle: v.LastClaimedCycle,
		Cycles:           v.Cycles,
	}
	if v.Token != (common.Address{}) {
		resp.Token = v.Token.Hex()
		resp.Pair = v.Pair.Hex()
		resp.ProjectDev = v.ProjectDev.Hex()
	}
	return resp
}

// ToClaimResponse 将领取结果转换为响应模型
func ToClaimResponse(r insurance.ClaimResult) ClaimResponse {
	resp := ClaimResponse{Cycle: r.Cycle}
	if r.BaseFee != nil {
		resp.BaseFee = wad.Format(r.BaseFee)
	}
	if r.Busd != nil {
		resp.Busd = wad.Format(r.Busd)
	}
	if r.Tokens != nil {
		resp.Tokens = wad.Format(r.Tokens)
	}
	if len(r.Allocations) > 0 {
		resp.Allocations = make(map[string]string, len(r.Allocations))
		for addr, v := range r.Allocations {
			resp.Allocations[addr.Hex()] = wad.Format(v)
		}
	}
	return resp
}

// ToSettingsResponse 将参数快照转换为响应模型
func ToSettingsResponse(s settings.Settings) SettingsResponse {
	return SettingsResponse{
		Insurance:       s.Insurance.Hex(),
		Registration:    s.Registration.Hex(),
		Engine:          s.Engine.Hex(),
		Partnerships:    s.Partnerships.Hex(),
		ReserveAsset:    s.ReserveAsset.Hex(),
		Exchange:        s.Exchange.Hex(),
		LidTreasury:     s.LidTreasury.Hex(),
		LidPoolManager:  s.LidPoolManager.Hex(),
		BusdLockBP:      s.BusdLockBP,
		TokenUserBP:     s.TokenUserBP,
		InsurancePeriod: s.InsurancePeriod.String(),
		BaseFeeBP:       s.BaseFeeBP,
		EthBuyBP:        s.EthBuyBP,
		ProjectDevBP:    s.ProjectDevBP,
		MainFeeBP:       s.MainFeeBP,
		LidPoolBP:       s.LidPoolBP,
	}
}

// ToRequestResponseList 将分成申请列表转换为响应模型
func ToRequestResponseList(reqs []partnership.Request) []RequestResponse {
	result := make([]RequestResponse, len(reqs))
	for i, r := range reqs {
		result[i] = RequestResponse{
			Id:        r.Id,
			PartnerId: r.PartnerId,
			RaiseId:   r.RaiseId,
			FeeBP:     r.FeeBP,
			Status:    r.Status.String(),
		}
	}
	return result
}
