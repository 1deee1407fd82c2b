package types

import "errors"

// Sequencing errors, the caller must resynchronize with the registry.
var (
	ErrNonceMismatch     = errors.New("trusted nonce does not match registry")
	ErrNotGapless        = errors.New("batches must be gapless")
	ErrAlreadyAuthorized = errors.New("nonce is part of an authorized batch")
	ErrInvalidRange      = errors.New("invalid nonce range")
	ErrUnknownNonce      = errors.New("unknown nonce")
	ErrUnknownBatch      = errors.New("unknown batch")
)

// Authorization errors.
var (
	ErrBadSignature       = errors.New("signature does not recover to the operator")
	ErrTicketsNotDistinct = errors.New("tickets must be distinct")
	ErrNotOperator        = errors.New("caller is not the operator")
	ErrNotDepositor       = errors.New("caller is not the depositor")
	ErrInvalidFraudProof  = errors.New("invalid fraud proof")
)

// Timing errors, expected and transient.
var (
	ErrTooEarly = errors.New("safety delay has not passed since authorization")
	ErrTooSoon  = errors.New("max auth delay has not passed since deposit")
)

// Economic and status errors.
var (
	ErrExposureExceeded      = errors.New("trusted amount exceeded")
	ErrInvalidDeposit        = errors.New("invalid deposit")
	ErrTokenNotRegistered    = errors.New("token is not registered")
	ErrTokenPairExists       = errors.New("token pair is already registered")
	ErrAlreadySettled        = errors.New("batch is already settled")
	ErrAlreadyRefunded       = errors.New("batch is already refunded")
	ErrBatchNotAuthorized    = errors.New("batch status must be authorized")
	ErrBatchAlreadyProcessed = errors.New("batch overlaps an already processed range")
)

// IsRetryable reports whether err is a timing error, ie the same call may
// succeed once the corresponding time window has elapsed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTooEarly) || errors.Is(err, ErrTooSoon)
}
