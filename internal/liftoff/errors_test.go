package liftoff

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindAuthorization, KindOf(ErrNotOwner))
	assert.Equal(t, KindState, KindOf(fmt.Errorf("ignite: %w", ErrNotIgniting)))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestInvalid(t *testing.T) {
	err := Invalid("must end after start")
	assert.True(t, errors.Is(err, ErrInvalidParameters))
	assert.Equal(t, KindInvalidParameters, KindOf(err))
	assert.Contains(t, err.Error(), "must end after start")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "InsufficientFunds", KindInsufficientFunds.String())
	assert.Equal(t, "AlreadyDone", KindAlreadyDone.String())
	assert.Equal(t, "Unknown", Kind(99).String())
}
