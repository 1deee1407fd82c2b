package types

import (
	"errors"
	"fmt"

	"github.com/alphabill-org/alphabill-bridge-base/cbor"
)

type (
	// SignedBatch carries an Operator signed batch of tickets from the Source
	// Ledger to the Destination Ledger.
	SignedBatch struct {
		_          struct{}  `cbor:",toarray"`
		Version    ABVersion `json:"version"`
		StartNonce uint64    `json:"startNonce,string"`
		Tickets    []Ticket  `json:"tickets"`
		Signature  Signature `json:"signature"`
	}

	// FraudProof shows that the Operator signed a ticket for nonce
	// ConflictStart+ConflictIndex which differs from the ticket in the
	// committed batch starting at CommittedStart.
	FraudProof struct {
		_              struct{}  `cbor:",toarray"`
		Version        ABVersion `json:"version"`
		CommittedStart uint64    `json:"committedStart,string"`
		ConflictStart  uint64    `json:"conflictStart,string"`
		ConflictIndex  uint64    `json:"conflictIndex,string"`
		Tickets        []Ticket  `json:"tickets"`
		Signature      Signature `json:"signature"`
	}
)

func (b *SignedBatch) IsValid() error {
	if b == nil {
		return errors.New("signed batch is nil")
	}
	if len(b.Tickets) == 0 {
		return fmt.Errorf("%w: batch has no tickets", ErrInvalidRange)
	}
	if _, ok := b.rangeEnd(); !ok {
		return fmt.Errorf("%w: nonce overflow", ErrInvalidRange)
	}
	return nil
}

// Range returns the nonce range the batch covers, batch must be valid.
func (b *SignedBatch) Range() NonceRange {
	end, _ := b.rangeEnd()
	return NonceRange{Start: b.StartNonce, End: end}
}

func (b *SignedBatch) rangeEnd() (uint64, bool) {
	n := uint64(len(b.Tickets)) - 1
	end := b.StartNonce + n
	return end, end >= b.StartNonce
}

// Hash returns the canonical hash the Operator signed.
func (b *SignedBatch) Hash() ([]byte, error) {
	return BatchHash(b.StartNonce, b.Tickets)
}

func (b *SignedBatch) GetVersion() ABVersion {
	if b != nil && b.Version > 0 {
		return b.Version
	}
	return 1
}

func (b *SignedBatch) MarshalCBOR() ([]byte, error) {
	type alias SignedBatch
	if b.Version == 0 {
		b.Version = b.GetVersion()
	}
	return cbor.MarshalTaggedValue(SignedBatchTag, (*alias)(b))
}

func (b *SignedBatch) UnmarshalCBOR(data []byte) error {
	type alias SignedBatch
	if err := cbor.UnmarshalTaggedValue(SignedBatchTag, data, (*alias)(b)); err != nil {
		return err
	}
	return EnsureVersion(b, b.Version, 1)
}

func (p *FraudProof) IsValid() error {
	if p == nil {
		return fmt.Errorf("%w: proof is nil", ErrInvalidFraudProof)
	}
	if p.ConflictIndex >= uint64(len(p.Tickets)) {
		return fmt.Errorf("%w: conflict index %d out of range, batch has %d tickets", ErrInvalidFraudProof, p.ConflictIndex, len(p.Tickets))
	}
	if p.DisputedNonce() < p.ConflictStart {
		return fmt.Errorf("%w: nonce overflow", ErrInvalidFraudProof)
	}
	return nil
}

// DisputedNonce returns the nonce both signed batches claim a ticket for.
func (p *FraudProof) DisputedNonce() uint64 {
	return p.ConflictStart + p.ConflictIndex
}

// ConflictingTicket returns the ticket the proof claims for the disputed
// nonce, proof must be valid.
func (p *FraudProof) ConflictingTicket() Ticket {
	return p.Tickets[p.ConflictIndex]
}

func (p *FraudProof) GetVersion() ABVersion {
	if p != nil && p.Version > 0 {
		return p.Version
	}
	return 1
}

func (p *FraudProof) MarshalCBOR() ([]byte, error) {
	type alias FraudProof
	if p.Version == 0 {
		p.Version = p.GetVersion()
	}
	return cbor.MarshalTaggedValue(FraudProofTag, (*alias)(p))
}

func (p *FraudProof) UnmarshalCBOR(data []byte) error {
	type alias FraudProof
	if err := cbor.UnmarshalTaggedValue(FraudProofTag, data, (*alias)(p)); err != nil {
		return err
	}
	return EnsureVersion(p, p.Version, 1)
}

// DecodeRelayMessage decodes CBOR encoded SignedBatch or FraudProof, the
// message type is determined by the CBOR tag.
func DecodeRelayMessage(data []byte) (any, error) {
	tag, err := cbor.PeekTag(data)
	if err != nil {
		return nil, fmt.Errorf("reading message tag: %w", err)
	}
	switch tag {
	case SignedBatchTag:
		msg := &SignedBatch{}
		if err := cbor.Unmarshal(data, msg); err != nil {
			return nil, fmt.Errorf("decoding signed batch: %w", err)
		}
		return msg, nil
	case FraudProofTag:
		msg := &FraudProof{}
		if err := cbor.Unmarshal(data, msg); err != nil {
			return nil, fmt.Errorf("decoding fraud proof: %w", err)
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("unknown relay message tag %d", tag)
	}
}
