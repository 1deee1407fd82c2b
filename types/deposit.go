package types

import (
	"fmt"
)

// Deposit is the customer input of the TicketRegistry.
type Deposit struct {
	_ struct{} `cbor:",toarray"`
	// TrustedNonce is the customer's view of the registry's next nonce.
	TrustedNonce uint64 `json:"trustedNonce,string"`
	// TrustedAmount is the upper bound of the total value of tickets starting
	// from TrustedNonce, including this deposit, the customer accepts.
	TrustedAmount uint64  `json:"trustedAmount,string"`
	DepositAmount uint64  `json:"depositAmount,string"`
	Recipient     Address `json:"recipient"` // destination ledger address
	Token         Address `json:"token"`     // source ledger token
}

func (d *Deposit) IsValid() error {
	if d == nil {
		return fmt.Errorf("%w: deposit is nil", ErrInvalidDeposit)
	}
	if d.DepositAmount == 0 {
		return fmt.Errorf("%w: deposit amount is zero", ErrInvalidDeposit)
	}
	if d.Recipient == (Address{}) {
		return fmt.Errorf("%w: recipient is unassigned", ErrInvalidDeposit)
	}
	return nil
}
