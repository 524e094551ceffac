package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/blues/liftoff/internal/config"
	"github.com/blues/liftoff/internal/handler"
	"github.com/blues/liftoff/internal/observability"
	"github.com/blues/liftoff/internal/protocol"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dev   = common.HexToAddress("0x20")
	alice = common.HexToAddress("0x31")
)

type apiFixture struct {
	t     *testing.T
	clock *clock.Mock
	proto *protocol.Protocol
	r     *gin.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	gin.SetMode(gin.TestMode)

	mock := clock.NewMock()
	mock.Set(time.Unix(1700000000, 0))
	opts := protocol.OptionsFromConfig(config.Load())
	opts.Clock = mock
	p, err := protocol.New(opts)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	p.Events.Register(metrics)

	return &apiFixture{t: t, clock: mock, proto: p, r: Setup(p, nil, nil, metrics, reg)}
}

func (f *apiFixture) do(method, path string, caller common.Address, body interface{}) (int, handler.Response) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != (common.Address{}) {
		req.Header.Set(handler.CallerHeader, caller.Hex())
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)

	var resp handler.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w.Code, resp
}

func field(t *testing.T, resp handler.Response, key string) interface{} {
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "response data is not an object: %#v", resp.Data)
	return data[key]
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"service":"liftoff"`)
}

func TestRaiseLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	owner := f.proto.Owner

	code, _ := f.do(http.MethodPost, "/api/v1/faucet", owner, gin.H{"to": alice.Hex(), "amount": "1000"})
	require.Equal(t, http.StatusOK, code)

	launch := f.clock.Now().Add(48 * time.Hour)
	code, resp := f.do(http.MethodPost, "/api/v1/raises", dev, gin.H{
		"info":        "ipfs://lift",
		"launch_time": launch,
		"soft_cap":    "500",
		"hard_cap":    "1000",
		"fixed_rate":  "10",
		"name":        "Lift Token",
		"symbol":      "LIFT",
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	assert.Equal(t, "scheduled", field(t, resp, "state"))
	assert.Equal(t, "ipfs://lift", field(t, resp, "info"))

	code, resp = f.do(http.MethodPost, "/api/v1/raises/0/ignite", alice, gin.H{"amount": "100"})
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, resp.Success)

	f.clock.Set(launch)
	code, _ = f.do(http.MethodPost, "/api/v1/raises/0/ignite", common.Address{}, gin.H{"amount": "100"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = f.do(http.MethodPost, "/api/v1/raises/0/ignite", alice, gin.H{"amount": "1000"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, "1000", field(t, resp, "accepted"))

	code, resp = f.do(http.MethodPost, "/api/v1/raises/0/spark", alice, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, "sparked", field(t, resp, "state"))

	code, resp = f.do(http.MethodPost, "/api/v1/raises/0/insurance", alice, nil)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	assert.Equal(t, "initialized", field(t, resp, "status"))

	code, resp = f.do(http.MethodPost, "/api/v1/raises/0/claim", alice, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, "10000", field(t, resp, "amount"))

	code, _ = f.do(http.MethodPost, "/api/v1/raises/0/claim", alice, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, resp = f.do(http.MethodPost, "/api/v1/raises/0/insurance/claim", dev, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, "20", field(t, resp, "base_fee"))

	reserve := f.proto.Settings.Snapshot().ReserveAsset
	var body struct {
		Data map[string]string `json:"data"`
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/balances/"+reserve.Hex()+"/"+alice.Hex(), nil)
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "0", body.Data["balance"])
	assert.Equal(t, "BUSD", body.Data["symbol"])
}

func TestErrorStatuses(t *testing.T) {
	f := newAPIFixture(t)

	code, _ := f.do(http.MethodGet, "/api/v1/raises/99", common.Address{}, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(http.MethodGet, "/api/v1/raises/abc", common.Address{}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(http.MethodPut, "/api/v1/settings/busd-bp", alice, gin.H{
		"busd_lock_bp": 240, "base_fee_bp": 200, "eth_buy_bp": 1500,
		"project_dev_bp": 7200, "main_fee_bp": 317, "lid_pool_bp": 543,
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.do(http.MethodPost, "/api/v1/faucet", alice, gin.H{"to": alice.Hex(), "amount": "5"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.do(http.MethodGet, "/api/v1/partners/3", common.Address{}, nil)
	assert.Equal(t, http.StatusNotFound, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `liftoff_api_rejected_total{kind="AuthorizationError",operation="set_busd_bp"} 1`)
}

func TestSettingsAndWindow(t *testing.T) {
	f := newAPIFixture(t)
	owner := f.proto.Owner

	code, resp := f.do(http.MethodPut, "/api/v1/settings/uints", owner, gin.H{
		"token_user_bp": 6000, "insurance_period": "48h",
		"busd_lock_bp": 240, "base_fee_bp": 200, "eth_buy_bp": 1500,
		"project_dev_bp": 7200, "main_fee_bp": 317, "lid_pool_bp": 543,
	})
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, "48h0m0s", field(t, resp, "insurance_period"))
	assert.Equal(t, float64(6000), field(t, resp, "token_user_bp"))

	code, _ = f.do(http.MethodPut, "/api/v1/settings/busd-bp", owner, gin.H{
		"busd_lock_bp": 1, "base_fee_bp": 200, "eth_buy_bp": 1500,
		"project_dev_bp": 7200, "main_fee_bp": 317, "lid_pool_bp": 543,
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = f.do(http.MethodPut, "/api/v1/settings/window", owner, gin.H{
		"min_time_to_launch": "1h", "max_time_to_launch": "72h", "soft_cap_timer": "12h",
	})
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, time.Hour, f.proto.Registration.Window().MinTimeToLaunch)
}

func TestPartnershipFlow(t *testing.T) {
	f := newAPIFixture(t)
	owner := f.proto.Owner
	partner := common.HexToAddress("0x71")

	launch := f.clock.Now().Add(48 * time.Hour)
	code, resp := f.do(http.MethodPost, "/api/v1/raises", dev, gin.H{
		"launch_time": launch, "soft_cap": "500", "hard_cap": "1000",
		"fixed_rate": "10", "name": "Lift Token", "symbol": "LIFT",
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)

	code, _ = f.do(http.MethodPut, "/api/v1/partners/1", owner, gin.H{"address": partner.Hex(), "info": "launchpad"})
	require.Equal(t, http.StatusOK, code)

	code, resp = f.do(http.MethodPost, "/api/v1/raises/0/partnerships", partner, gin.H{"partner_id": 1, "fee_bp": 150})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	assert.Equal(t, float64(0), field(t, resp, "request_id"))

	code, _ = f.do(http.MethodPost, "/api/v1/raises/0/partnerships/0/accept", partner, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = f.do(http.MethodPost, "/api/v1/raises/0/partnerships/0/accept", dev, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)

	shares := f.proto.Partnerships.GetActivePartnerShares(0)
	require.Len(t, shares, 1)
	assert.Equal(t, uint64(150), shares[0].BP)
}
