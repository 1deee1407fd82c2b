package testutils

import (
	"testing"

	"github.com/alphabill-org/alphabill-bridge-base/token"
	"github.com/alphabill-org/alphabill-bridge-base/types"
)

// Balance is the initial balance of an account in the bank returned by NewBank.
type Balance struct {
	Token  types.Address
	Owner  types.Address
	Amount uint64
}

func NewBank(t *testing.T, balances ...Balance) *token.Bank {
	t.Helper()
	bank := token.NewBank()
	for _, b := range balances {
		if err := bank.Mint(b.Token, b.Owner, b.Amount); err != nil {
			t.Fatal("failed to mint:", err)
		}
	}
	return bank
}

// FailingTransferer returns Err from every transfer.
type FailingTransferer struct {
	Err error
}

func (ft FailingTransferer) Transfer(...token.Transfer) error {
	return ft.Err
}
