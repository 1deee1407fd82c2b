package source

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/alphabill-bridge-base/token"
	"github.com/alphabill-org/alphabill-bridge-base/types"
)

// switchableBank fails transfers while err is set.
type switchableBank struct {
	*token.Bank
	mu  sync.Mutex
	err error
}

func (b *switchableBank) setErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

func (b *switchableBank) Transfer(transfers ...token.Transfer) error {
	b.mu.Lock()
	err := b.err
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.Bank.Transfer(transfers...)
}

func TestClaimReimbursement(t *testing.T) {
	t.Run("single swap", func(t *testing.T) {
		env := newTestEnv(t)
		op := env.operator.Address()
		alice := env.newCustomer(100)
		env.deposit(alice, 1)
		env.authorize(0, 0)

		err := env.ledger.ClaimReimbursement(op, 0)
		require.ErrorIs(t, err, types.ErrTooEarly)
		require.True(t, types.IsRetryable(err))

		env.clock.Advance(DefaultSafetyDelay - time.Second)
		require.ErrorIs(t, env.ledger.ClaimReimbursement(op, 0), types.ErrTooEarly)

		env.clock.Advance(time.Second)
		require.NoError(t, env.ledger.ClaimReimbursement(op, 0))
		require.EqualValues(t, 1, env.bank.BalanceOf(srcToken, op))
		require.Zero(t, env.bank.BalanceOf(srcToken, env.escrow))
		require.Equal(t, types.BatchClaimed, env.batchStatus(0))
		require.Equal(t, types.TicketSettled, env.ticketState(0))

		require.ErrorIs(t, env.ledger.ClaimReimbursement(op, 0), types.ErrAlreadySettled)
		require.EqualValues(t, 1, env.bank.BalanceOf(srcToken, op))
	})

	t.Run("not operator", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.newCustomer(100)
		env.deposit(alice, 1)
		env.authorize(0, 0)
		env.clock.Advance(time.Hour)
		require.ErrorIs(t, env.ledger.ClaimReimbursement(alice, 0), types.ErrNotOperator)
	})

	t.Run("unknown batch", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.newCustomer(100)
		env.deposit(alice, 1)
		env.deposit(alice, 1)
		env.authorize(0, 1)
		env.clock.Advance(time.Hour)
		require.ErrorIs(t, env.ledger.ClaimReimbursement(env.operator.Address(), 1), types.ErrUnknownBatch)
		require.ErrorIs(t, env.ledger.ClaimReimbursement(env.operator.Address(), 2), types.ErrUnknownBatch)
	})

	t.Run("refunded batch", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.newCustomer(100)
		env.deposit(alice, 1)
		env.clock.Advance(time.Hour)
		require.NoError(t, env.ledger.Refund(alice, 0))
		require.ErrorIs(t, env.ledger.ClaimReimbursement(env.operator.Address(), 0), types.ErrAlreadyRefunded)
	})

	t.Run("multiple tokens", func(t *testing.T) {
		env := newTestEnv(t)
		op := env.operator.Address()
		tokenB := common.HexToAddress("0x5001")
		require.NoError(t, env.ledger.RegisterTokenPairs(op, &types.TokenPair{SourceToken: tokenB, DestinationToken: tokenB}))

		alice := env.newCustomer(100)
		require.NoError(t, env.bank.Mint(tokenB, alice, 50))
		env.bank.Approve(tokenB, alice, env.escrow, 50)

		env.deposit(alice, 10)
		_, err := env.ledger.Deposit(alice, &types.Deposit{TrustedNonce: 1, TrustedAmount: 7, DepositAmount: 7, Recipient: alice, Token: tokenB})
		require.NoError(t, err)
		env.deposit(alice, 5)
		env.authorize(0, 2)

		tickets, err := env.ledger.Tickets(0, 2)
		require.NoError(t, err)
		require.Equal(t, tokenB, tickets[1].Token)

		env.clock.Advance(DefaultSafetyDelay)
		require.NoError(t, env.ledger.ClaimReimbursement(op, 0))
		require.EqualValues(t, 15, env.bank.BalanceOf(srcToken, op))
		require.EqualValues(t, 7, env.bank.BalanceOf(tokenB, op))
	})

	t.Run("failed transfer leaves state unchanged", func(t *testing.T) {
		env := newTestEnv(t)
		bank := &switchableBank{Bank: env.bank}
		env.ledger = env.newLedger(bank)
		op := env.operator.Address()
		require.NoError(t, env.ledger.RegisterTokenPairs(op, &types.TokenPair{SourceToken: srcToken, DestinationToken: dstToken}))
		alice := env.newCustomer(100)
		env.deposit(alice, 10)
		env.authorize(0, 0)
		env.clock.Advance(time.Hour)

		version := env.ledger.Version()
		bank.setErr(errors.New("transfer failed"))
		require.EqualError(t, env.ledger.ClaimReimbursement(op, 0), `claiming reimbursement: transferring funds: transfer failed`)
		require.Equal(t, version, env.ledger.Version())
		require.Equal(t, types.BatchAuthorized, env.batchStatus(0))
		require.Equal(t, types.TicketAuthorized, env.ticketState(0))

		bank.setErr(nil)
		require.NoError(t, env.ledger.ClaimReimbursement(op, 0))
	})
}
