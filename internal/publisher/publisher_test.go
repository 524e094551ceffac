package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/blues/liftoff/internal/event"
	"github.com/blues/liftoff/internal/wad"
	"github.com/ethereum/go-ethereum/common"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	declared   []string
	published  []amqp.Publishing
	keys       []string
	declareErr error
	publishErr error
	closed     bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if f.declareErr != nil {
		return amqp.Queue{}, f.declareErr
	}
	if durable {
		f.declared = append(f.declared, name)
	}
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestProcessPublishesPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	p, err := New(ch, "liftoff.events")
	require.NoError(t, err)
	assert.Equal(t, []string{"liftoff.events"}, ch.declared)

	now := time.Unix(1700000000, 0).UTC()
	e := event.New(event.Ignited, 3, common.HexToAddress("0x31"), wad.Ether("250"), now).
		With("total_ignited", wad.Ether("1250"))
	require.NoError(t, p.Process(context.Background(), e))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "liftoff.events", ch.keys[0])
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, e.Id, msg.MessageId)
	assert.Equal(t, "Ignited", msg.Type)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, float64(3), decoded["raise_id"])
	assert.Equal(t, "Ignited", decoded["type"])

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublishErrors(t *testing.T) {
	_, err := New(&fakeChannel{declareErr: errors.New("access refused")}, "q")
	assert.ErrorContains(t, err, "access refused")

	ch := &fakeChannel{}
	p, err := New(ch, "q")
	require.NoError(t, err)
	ch.publishErr = amqp.ErrClosed
	err = p.Process(context.Background(), event.New(event.Sparked, 1, common.Address{}, nil, time.Now()))
	assert.ErrorIs(t, err, amqp.ErrClosed)
}
