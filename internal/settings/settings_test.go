package settings

import (
	"errors"
	"testing"
	"time"

	"github.com/blues/liftoff/internal/liftoff"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000f2")
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(owner, Defaults())
	require.NoError(t, err)
	return s
}

func TestDefaultsAllocateEverything(t *testing.T) {
	d := Defaults()
	require.NoError(t, d.Validate())
	assert.Equal(t, uint64(240), d.BusdLockBP)
	assert.Equal(t, 7*24*time.Hour, d.InsurancePeriod)
	assert.Equal(t, 7*24*time.Hour/10, d.CycleLength())
}

func TestSetBusdBP(t *testing.T) {
	s := newStore(t)

	err := s.SetBusdBP(owner, 240, 200, 1500, 7200, 317, 542)
	assert.True(t, errors.Is(err, liftoff.ErrInvalidParameters))
	assert.Contains(t, err.Error(), "must allocate 100%")
	assert.Equal(t, uint64(543), s.Snapshot().LidPoolBP)

	require.NoError(t, s.SetBusdBP(owner, 1000, 100, 1000, 7000, 400, 500))
	snap := s.Snapshot()
	assert.Equal(t, uint64(1000), snap.BusdLockBP)
	assert.Equal(t, uint64(7000), snap.ProjectDevBP)
}

func TestOnlyOwnerMutates(t *testing.T) {
	s := newStore(t)
	assert.True(t, errors.Is(s.SetTokenUserBP(stranger, 5000), liftoff.ErrNotOwner))
	assert.True(t, errors.Is(s.SetLidTreasury(stranger, stranger), liftoff.ErrNotOwner))
	assert.Equal(t, uint64(7000), s.Snapshot().TokenUserBP)
}

func TestSetInsurancePeriodBounds(t *testing.T) {
	s := newStore(t)
	assert.Error(t, s.SetInsurancePeriod(owner, time.Second))
	require.NoError(t, s.SetInsurancePeriod(owner, time.Hour))
	assert.Equal(t, time.Hour, s.Snapshot().InsurancePeriod)

	assert.Error(t, s.SetTokenUserBP(owner, 0))
	assert.Error(t, s.SetTokenUserBP(owner, 10001))
}

func TestSetAllAddresses(t *testing.T) {
	s := newStore(t)
	a := Addresses{
		Insurance:    common.HexToAddress("0x01"),
		Registration: common.HexToAddress("0x02"),
		Engine:       common.HexToAddress("0x03"),
		LidTreasury:  common.HexToAddress("0x04"),
	}
	require.NoError(t, s.SetAllAddresses(owner, a))
	snap := s.Snapshot()
	assert.Equal(t, a.Registration, snap.Registration)
	assert.Equal(t, a.LidTreasury, snap.LidTreasury)

	require.NoError(t, s.SetAllUints(owner, 6000, time.Hour, 240, 200, 1500, 7200, 317, 543))
	assert.Equal(t, uint64(6000), s.Snapshot().TokenUserBP)
}
