package types

import (
	"fmt"

	"github.com/alphabill-org/alphabill-bridge-base/cbor"
)

type BatchStatus uint8

const (
	BatchAuthorized BatchStatus = iota + 1
	BatchClaimed
	BatchRefunded
)

// BatchAuthorization records a contiguous range of tickets the Operator has
// committed to (or, for refunded ranges created by timeout refunds, a range
// that can no longer be committed to).
type BatchAuthorization struct {
	_            struct{}    `cbor:",toarray"`
	Version      ABVersion   `json:"version"`
	StartNonce   uint64      `json:"startNonce,string"`
	EndNonce     uint64      `json:"endNonce,string"`
	Signature    *Signature  `json:"signature"` // nil for ranges refunded on timeout
	Status       BatchStatus `json:"status"`
	AuthorizedAt uint64      `json:"authorizedAt,string"` // ledger timestamp (seconds)
}

func (s BatchStatus) String() string {
	switch s {
	case BatchAuthorized:
		return "authorized"
	case BatchClaimed:
		return "claimed"
	case BatchRefunded:
		return "refunded"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

func (b *BatchAuthorization) Range() NonceRange {
	return NonceRange{Start: b.StartNonce, End: b.EndNonce}
}

func (b *BatchAuthorization) Contains(nonce uint64) bool {
	return b.Range().Contains(nonce)
}

// StatusError returns the error describing why a batch in the current
// status can't be settled, nil when the batch is authorized.
func (b *BatchAuthorization) StatusError() error {
	switch b.Status {
	case BatchAuthorized:
		return nil
	case BatchClaimed:
		return ErrAlreadySettled
	case BatchRefunded:
		return ErrAlreadyRefunded
	default:
		return fmt.Errorf("unknown batch status %d", b.Status)
	}
}

func (b *BatchAuthorization) Copy() *BatchAuthorization {
	if b == nil {
		return nil
	}
	c := *b
	if b.Signature != nil {
		sig := *b.Signature
		c.Signature = &sig
	}
	return &c
}

func (b *BatchAuthorization) GetVersion() ABVersion {
	if b != nil && b.Version > 0 {
		return b.Version
	}
	return 1
}

func (b *BatchAuthorization) MarshalCBOR() ([]byte, error) {
	type alias BatchAuthorization
	if b.Version == 0 {
		b.Version = b.GetVersion()
	}
	return cbor.MarshalTaggedValue(BatchAuthorizationTag, (*alias)(b))
}

func (b *BatchAuthorization) UnmarshalCBOR(data []byte) error {
	type alias BatchAuthorization
	if err := cbor.UnmarshalTaggedValue(BatchAuthorizationTag, data, (*alias)(b)); err != nil {
		return err
	}
	return EnsureVersion(b, b.Version, 1)
}
