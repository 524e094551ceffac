package event

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	name string
	seen []Type
	err  error
}

func (r *recorder) Process(_ context.Context, e *Event) error {
	r.seen = append(r.seen, e.Type)
	return r.err
}

func (r *recorder) GetName() string { return r.name }

func TestManagerDispatch(t *testing.T) {
	m := NewManager()
	all := &recorder{name: "all"}
	sparks := &recorder{name: "sparks", err: errors.New("boom")}
	m.Register(all)
	m.Register(sparks, Sparked)

	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	m.Emit(ctx, New(Ignited, 1, common.HexToAddress("0x01"), big.NewInt(5), now))
	m.Emit(ctx, New(Sparked, 1, common.Address{}, nil, now))

	assert.Equal(t, []Type{Ignited, Sparked}, all.seen)
	assert.Equal(t, []Type{Sparked}, sparks.seen)
	assert.Equal(t, []Type{Sparked}, m.GetSupportedEventTypes())
}

func TestNewEvent(t *testing.T) {
	e := New(Redeemed, 3, common.HexToAddress("0x02"), big.NewInt(7), time.Unix(10, 0)).
		With("tokens", big.NewInt(70))
	require.NotEmpty(t, e.Id)
	assert.Equal(t, uint64(3), e.RaiseId)
	assert.Equal(t, "70", e.Data["tokens"].(*big.Int).String())

	other := New(Redeemed, 3, common.Address{}, nil, time.Unix(10, 0))
	assert.NotEqual(t, e.Id, other.Id)

	NopSink{}.Emit(context.Background(), e)
}
