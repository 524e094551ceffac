package repository

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/blues/liftoff/internal/event"
	"github.com/blues/liftoff/internal/model"
	"github.com/blues/liftoff/internal/wad"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dev   = common.HexToAddress("0x20")
	alice = common.HexToAddress("0x31")
	token = common.HexToAddress("0xabc")
	now   = time.Unix(1700000000, 0)
)

func TestRecordsForLaunch(t *testing.T) {
	e := event.New(event.RaiseLaunched, 4, dev, wad.Ether("2000"), now).
		With("name", "Lift Token").
		With("symbol", "LIFT").
		With("token", token).
		With("start_time", now.Add(time.Hour)).
		With("end_time", now.Add(25*time.Hour)).
		With("soft_cap", wad.Ether("500")).
		With("hard_cap", wad.Ether("2000")).
		With("fixed_rate", wad.Ether("10"))

	recs := recordsFor(e)
	require.Len(t, recs, 1)
	raise, ok := recs[0].(*model.RaiseModel)
	require.True(t, ok)
	assert.Equal(t, uint64(4), raise.RaiseId)
	assert.Equal(t, "LIFT", raise.Symbol)
	assert.Equal(t, dev.Hex(), raise.ProjectDev)
	assert.Equal(t, token.Hex(), raise.Token)
	assert.Equal(t, "500", raise.SoftCap.String())
	assert.Equal(t, now.Add(25*time.Hour), raise.EndTime)
	assert.Equal(t, model.RaiseStatusLaunched, raise.Status)
}

func TestRecordsForIgnition(t *testing.T) {
	e := event.New(event.IgniteUndone, 1, alice, wad.Ether("12.5"), now).
		With("total_ignited", wad.Ether("100"))

	recs := recordsFor(e)
	require.Len(t, recs, 1)
	rec := recs[0].(*model.IgnitionRecordModel)
	assert.Equal(t, model.IgnitionActionUndo, rec.Action)
	assert.Equal(t, "12.5", rec.Amount.String())
	assert.Equal(t, e.Id, rec.EventId)

	updates := raiseUpdates(e)
	assert.Equal(t, "100", updates["total_ignited"].(interface{ String() string }).String())
}

func TestRecordsForRedeem(t *testing.T) {
	e := event.New(event.Redeemed, 2, alice, wad.Ether("96"), now).
		With("tokens", wad.Ether("980")).
		With("from_bonus", big.NewInt(0)).
		With("redeemed_total", wad.Ether("196"))

	rec := recordsFor(e)[0].(*model.RedeemRecordModel)
	assert.Equal(t, "980", rec.Tokens.String())
	assert.Equal(t, "96", rec.Value.String())
	assert.False(t, rec.Market)
	assert.Contains(t, insuranceUpdates(e), "redeemed_busd")

	market := event.New(event.Redeemed, 2, alice, wad.Ether("3"), now).
		With("tokens", wad.Ether("50")).
		With("market", true)
	assert.True(t, recordsFor(market)[0].(*model.RedeemRecordModel).Market)
	assert.Nil(t, insuranceUpdates(market))
}

func TestInsuranceClaimUpdates(t *testing.T) {
	e := event.New(event.InsuranceClaimed, 2, common.Address{}, wad.Ether("100"), now).
		With("cycle", uint64(3)).
		With("paid", wad.Ether("80.6")).
		With("tokens", wad.Ether("12"))

	rec := recordsFor(e)[0].(*model.InsuranceClaimModel)
	assert.Equal(t, model.ClaimKindCycle, rec.Kind)
	assert.Equal(t, uint64(3), rec.Cycle)
	assert.Equal(t, "80.6", rec.Paid.String())

	updates := insuranceUpdates(e)
	assert.Equal(t, uint64(3), updates["last_claimed_cycle"])
	assert.Contains(t, updates, "claimed_busd")
	assert.Contains(t, updates, "claimed_token")

	unwound := event.New(event.InsuranceUnwound, 2, alice, nil, now)
	assert.Equal(t, model.InsuranceStatusUnwound, insuranceUpdates(unwound)["status"])
	assert.Nil(t, recordsFor(unwound))
}

func TestEventRow(t *testing.T) {
	e := event.New(event.Sparked, 9, common.Address{}, wad.Ether("1000"), now).
		With("pair", token).
		With("total_supply", wad.Ether("14285"))

	row, err := eventRow(e)
	require.NoError(t, err)
	assert.Equal(t, "Sparked", row.EventType)
	assert.Equal(t, "1000", row.Amount.String())
	assert.Contains(t, row.Data, strings.ToLower(token.Hex()))
	assert.Contains(t, row.Data, "14285000000000000000000")

	updates := raiseUpdates(e)
	assert.Equal(t, model.RaiseStatusSparked, updates["status"])
	assert.Equal(t, token.Hex(), updates["pair"])
}

func TestModels(t *testing.T) {
	assert.Len(t, Models(), 8)
}
