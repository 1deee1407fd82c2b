/*
Package token defines the token transfer collaborator of the ledgers.

Token accounting is not part of the bridge, ledgers only need a way to move
value between accounts atomically. Bank is an in-memory implementation used by
tests and tooling.
*/
package token

import (
	"errors"
	"fmt"

	"github.com/alphabill-org/alphabill-bridge-base/types"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInvalidTransfer       = errors.New("invalid transfer")
)

// Transfer moves Amount of Token from From to To. When Spender is assigned
// the transfer is executed on behalf of From and consumes Spender's allowance
// (transferFrom semantics).
type Transfer struct {
	Token   types.Address
	From    types.Address
	To      types.Address
	Amount  uint64
	Spender types.Address
}

// Transferer executes batch of transfers atomically: either all of them
// succeed or none is applied.
type Transferer interface {
	Transfer(transfers ...Transfer) error
}

func (t Transfer) IsValid() error {
	if t.Amount == 0 {
		return fmt.Errorf("%w: amount is zero", ErrInvalidTransfer)
	}
	if t.From == t.To {
		return fmt.Errorf("%w: sender and receiver are the same account %s", ErrInvalidTransfer, t.From)
	}
	return nil
}

func (t Transfer) String() string {
	return fmt.Sprintf("%d of %s from %s to %s", t.Amount, t.Token, t.From, t.To)
}
