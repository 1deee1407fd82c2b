package types

import (
	"fmt"

	"github.com/alphabill-org/alphabill-bridge-base/cbor"
)

type TicketState uint8

const (
	TicketDeposited TicketState = iota + 1
	TicketAuthorized
	TicketSettled
	TicketTimedOutRefunded
	TicketFraudRefunded
)

type (
	// Ticket is the Destination Ledger view of a pending transfer, this is
	// what the Operator signs. The ticket is identified by its nonce which is
	// not part of the struct.
	Ticket struct {
		_         struct{} `cbor:",toarray"`
		Value     uint64   `json:"value,string"`
		Recipient Address  `json:"recipient"`
		Token     Address  `json:"token"` // destination ledger token
	}

	// TicketRecord is the Source Ledger registry entry of a ticket.
	TicketRecord struct {
		_           struct{}    `cbor:",toarray"`
		Version     ABVersion   `json:"version"`
		Nonce       uint64      `json:"nonce,string"`
		Ticket      Ticket      `json:"ticket"`
		Depositor   Address     `json:"depositor"`
		SourceToken Address     `json:"sourceToken"`
		CreatedAt   uint64      `json:"createdAt,string"` // ledger timestamp (seconds) of the deposit
		State       TicketState `json:"state"`
	}
)

func (t Ticket) Equal(o Ticket) bool {
	return t.Value == o.Value && t.Recipient == o.Recipient && t.Token == o.Token
}

func (s TicketState) IsTerminal() bool {
	return s == TicketSettled || s == TicketTimedOutRefunded || s == TicketFraudRefunded
}

func (s TicketState) String() string {
	switch s {
	case TicketDeposited:
		return "deposited"
	case TicketAuthorized:
		return "authorized"
	case TicketSettled:
		return "settled"
	case TicketTimedOutRefunded:
		return "timed-out-refunded"
	case TicketFraudRefunded:
		return "fraud-refunded"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

func (r *TicketRecord) Copy() *TicketRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func (r *TicketRecord) GetVersion() ABVersion {
	if r != nil && r.Version > 0 {
		return r.Version
	}
	return 1
}

func (r *TicketRecord) MarshalCBOR() ([]byte, error) {
	type alias TicketRecord
	if r.Version == 0 {
		r.Version = r.GetVersion()
	}
	return cbor.MarshalTaggedValue(TicketRecordTag, (*alias)(r))
}

func (r *TicketRecord) UnmarshalCBOR(data []byte) error {
	type alias TicketRecord
	if err := cbor.UnmarshalTaggedValue(TicketRecordTag, data, (*alias)(r)); err != nil {
		return err
	}
	return EnsureVersion(r, r.Version, 1)
}
