package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

type (
	// Address identifies an account or a token on either ledger. The core
	// never interprets it, resolving is up to the token collaborator.
	Address = common.Address

	// NonceRange is an inclusive range of ticket nonces.
	NonceRange struct {
		_     struct{} `cbor:",toarray"`
		Start uint64   `json:"start,string"`
		End   uint64   `json:"end,string"`
	}
)

// NativeToken is the address used for the ledger's native currency.
var NativeToken = Address{}

func (r NonceRange) Contains(nonce uint64) bool {
	return r.Start <= nonce && nonce <= r.End
}

func (r NonceRange) Overlaps(o NonceRange) bool {
	return r.Start <= o.End && o.Start <= r.End
}

func (r NonceRange) Len() uint64 {
	return r.End - r.Start + 1
}

func (r NonceRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.Start, r.End)
}
