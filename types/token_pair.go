package types

import (
	"github.com/alphabill-org/alphabill-bridge-base/cbor"
)

// TokenPair maps a Source Ledger token to the Destination Ledger token the
// tickets created for it are paid out in.
type TokenPair struct {
	_                struct{} `cbor:",toarray"`
	SourceToken      Address  `json:"sourceToken"`
	DestinationToken Address  `json:"destinationToken"`
}

func (p *TokenPair) MarshalCBOR() ([]byte, error) {
	type alias TokenPair
	return cbor.MarshalTaggedValue(TokenPairTag, (*alias)(p))
}

func (p *TokenPair) UnmarshalCBOR(data []byte) error {
	type alias TokenPair
	return cbor.UnmarshalTaggedValue(TokenPairTag, data, (*alias)(p))
}
