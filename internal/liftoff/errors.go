// Package liftoff 定义发射协议各模块共享的错误分类
package liftoff

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthorization
	KindInvalidParameters
	KindState
	KindAlreadyDone
	KindInsufficientFunds
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "AuthorizationError"
	case KindInvalidParameters:
		return "InvalidParameters"
	case KindState:
		return "StateError"
	case KindAlreadyDone:
		return "AlreadyDone"
	case KindInsufficientFunds:
		return "InsufficientFunds"
	case KindNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// Error 带类别的哨兵错误
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

var (
	ErrNotOwner        = newError(KindAuthorization, "caller is not the owner")
	ErrNotRegistration = newError(KindAuthorization, "sender must be registration")
	ErrNotEngine       = newError(KindAuthorization, "sender must be engine")
	ErrNotProjectDev   = newError(KindAuthorization, "sender must be project dev")
	ErrNotPartner      = newError(KindAuthorization, "sender must be partner")

	ErrInvalidParameters = newError(KindInvalidParameters, "invalid parameters")
	ErrRedeemTooSmall    = newError(KindInvalidParameters, "amount must have redeem value")

	ErrNotIgniting             = newError(KindState, "not igniting")
	ErrNotSparkReady           = newError(KindState, "not spark ready")
	ErrNotSparked              = newError(KindState, "token must have been sparked")
	ErrNotRefunding            = newError(KindState, "not refunding")
	ErrInsuranceNotInitialized = newError(KindState, "insurance not initialized")
	ErrCannotClaimYet          = newError(KindState, "cannot claim until after first cycle ends")
	ErrTokenInsuranceUnwound   = newError(KindState, "token insurance is unwound")
	ErrRequestNotPending       = newError(KindState, "partnership request is not pending")

	ErrAlreadyClaimed          = newError(KindAlreadyDone, "ignitor has already claimed")
	ErrAlreadyRefunded         = newError(KindAlreadyDone, "ignitor has already refunded")
	ErrAlreadyRegistered       = newError(KindAlreadyDone, "token already registered")
	ErrCannotCreateInsurance   = newError(KindAlreadyDone, "cannot create insurance")
	ErrAlreadyClaimedThisCycle = newError(KindAlreadyDone, "already claimed for this cycle")
	ErrAlreadyCancelled        = newError(KindAlreadyDone, "partnership already cancelled")
	ErrAlreadyInitialized      = newError(KindAlreadyDone, "insurance already initialized")

	ErrNoRewards              = newError(KindInsufficientFunds, "must have some rewards to claim")
	ErrNoRefund               = newError(KindInsufficientFunds, "must have some ignition to refund")
	ErrRedeemExceedsInsurance = newError(KindInsufficientFunds, "redeem request exceeds available insurance")
	ErrInsufficientBalance    = newError(KindInsufficientFunds, "insufficient balance")
	ErrBonusExceeded          = newError(KindInsufficientFunds, "bonus insurance too low")

	ErrRaiseNotFound   = newError(KindNotFound, "token sale not found")
	ErrPartnerNotFound = newError(KindNotFound, "partner not found")
	ErrPairNotFound    = newError(KindNotFound, "pair not found")
)

// Invalid 返回指明违反规则的参数错误
func Invalid(rule string) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameters, rule)
}

// KindOf 返回错误链上第一个带类别错误的类别
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
