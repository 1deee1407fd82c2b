package source

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/alphabill-bridge-base/testutils"
	"github.com/alphabill-org/alphabill-bridge-base/token"
	"github.com/alphabill-org/alphabill-bridge-base/types"
)

func TestDeposit(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.newCustomer(100)
		recipient := testutils.RandomAddress(t)

		nonce, err := env.ledger.Deposit(alice, &types.Deposit{TrustedNonce: 0, TrustedAmount: 10, DepositAmount: 10, Recipient: recipient, Token: srcToken})
		require.NoError(t, err)
		require.EqualValues(t, 0, nonce)
		require.EqualValues(t, 1, env.ledger.NextNonce())

		require.EqualValues(t, 90, env.bank.BalanceOf(srcToken, alice))
		require.EqualValues(t, 10, env.bank.BalanceOf(srcToken, env.ledger.Escrow()))
		require.EqualValues(t, 90, env.bank.Allowance(srcToken, alice, env.ledger.Escrow()))

		tr, err := env.ledger.Ticket(0)
		require.NoError(t, err)
		require.Equal(t, types.Ticket{Value: 10, Recipient: recipient, Token: dstToken}, tr.Ticket)
		require.Equal(t, alice, tr.Depositor)
		require.Equal(t, srcToken, tr.SourceToken)
		require.Equal(t, types.TicketDeposited, tr.State)
	})

	t.Run("nonces are sequential", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.newCustomer(100)
		for i := range uint64(5) {
			require.Equal(t, i, env.deposit(alice, 1))
		}
	})

	t.Run("invalid deposit", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.newCustomer(100)
		_, err := env.ledger.Deposit(alice, nil)
		require.ErrorIs(t, err, types.ErrInvalidDeposit)
		_, err = env.ledger.Deposit(alice, &types.Deposit{TrustedAmount: 10, Recipient: alice, Token: srcToken})
		require.ErrorIs(t, err, types.ErrInvalidDeposit)
		_, err = env.ledger.Deposit(alice, &types.Deposit{TrustedAmount: 10, DepositAmount: 1, Token: srcToken})
		require.ErrorIs(t, err, types.ErrInvalidDeposit)
		require.Zero(t, env.ledger.NextNonce())
	})

	t.Run("token not registered", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.newCustomer(100)
		_, err := env.ledger.Deposit(alice, &types.Deposit{TrustedAmount: 10, DepositAmount: 1, Recipient: alice, Token: dstToken})
		require.ErrorIs(t, err, types.ErrTokenNotRegistered)
	})

	t.Run("nonce mismatch", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.newCustomer(100)
		env.deposit(alice, 1)

		for _, trusted := range []uint64{0, 2} {
			_, err := env.ledger.Deposit(alice, &types.Deposit{TrustedNonce: trusted, TrustedAmount: 100, DepositAmount: 1, Recipient: alice, Token: srcToken})
			require.ErrorIs(t, err, types.ErrNonceMismatch)
		}
		require.EqualValues(t, 1, env.ledger.NextNonce())
	})

	t.Run("trusted nonce window", func(t *testing.T) {
		env := newTestEnv(t, WithTrustedNonceWindow())
		alice := env.newCustomer(100)
		env.deposit(alice, 5)

		deposit := func(trusted, trustedAmount uint64) error {
			_, err := env.ledger.Deposit(alice, &types.Deposit{TrustedNonce: trusted, TrustedAmount: trustedAmount, DepositAmount: 3, Recipient: alice, Token: srcToken})
			return err
		}
		require.ErrorIs(t, deposit(2, 100), types.ErrNonceMismatch)
		// tickets since nonce 0 are worth 5, with the new deposit 8
		require.ErrorIs(t, deposit(0, 7), types.ErrExposureExceeded)
		require.NoError(t, deposit(0, 8))
		// trusting the current next nonce only accounts for the deposit
		require.NoError(t, deposit(2, 3))
		require.EqualValues(t, 3, env.ledger.NextNonce())
	})

	t.Run("exposure exceeded", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.newCustomer(100)
		_, err := env.ledger.Deposit(alice, &types.Deposit{TrustedNonce: 0, TrustedAmount: 9, DepositAmount: 10, Recipient: alice, Token: srcToken})
		require.ErrorIs(t, err, types.ErrExposureExceeded)
	})

	t.Run("exposure overflow", func(t *testing.T) {
		env := newTestEnv(t, WithTrustedNonceWindow())
		alice := env.newCustomer(math.MaxUint64)
		env.deposit(alice, 10)
		_, err := env.ledger.Deposit(alice, &types.Deposit{TrustedNonce: 0, TrustedAmount: math.MaxUint64, DepositAmount: math.MaxUint64 - 5, Recipient: alice, Token: srcToken})
		require.ErrorIs(t, err, types.ErrExposureExceeded)
	})

	t.Run("escrow not approved", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.newCustomer(100)
		env.bank.Approve(srcToken, alice, env.ledger.Escrow(), 0)
		version := env.ledger.Version()

		_, err := env.ledger.Deposit(alice, &types.Deposit{TrustedNonce: 0, TrustedAmount: 10, DepositAmount: 10, Recipient: alice, Token: srcToken})
		require.ErrorIs(t, err, token.ErrInsufficientAllowance)
		require.Zero(t, env.ledger.NextNonce())
		require.Equal(t, version, env.ledger.Version())
		require.EqualValues(t, 100, env.bank.BalanceOf(srcToken, alice))
	})
}

func TestRegisterTokenPairs(t *testing.T) {
	env := newTestEnv(t)
	op := env.operator.Address()
	tokenB := common.HexToAddress("0x5001")
	tokenC := common.HexToAddress("0x5002")

	require.ErrorIs(t, env.ledger.RegisterTokenPairs(testutils.RandomAddress(t), &types.TokenPair{SourceToken: tokenB}), types.ErrNotOperator)
	require.EqualError(t, env.ledger.RegisterTokenPairs(op), `no token pairs to register`)
	require.EqualError(t, env.ledger.RegisterTokenPairs(op, nil), `token pair is nil`)
	require.ErrorIs(t, env.ledger.RegisterTokenPairs(op, &types.TokenPair{SourceToken: srcToken, DestinationToken: tokenB}), types.ErrTokenPairExists)
	require.ErrorIs(t, env.ledger.RegisterTokenPairs(op, &types.TokenPair{SourceToken: tokenB}, &types.TokenPair{SourceToken: tokenB}), types.ErrTokenPairExists)

	version := env.ledger.Version()
	require.NoError(t, env.ledger.RegisterTokenPairs(op,
		&types.TokenPair{SourceToken: tokenB, DestinationToken: tokenC},
		&types.TokenPair{SourceToken: tokenC, DestinationToken: tokenB},
	))
	require.Equal(t, version+1, env.ledger.Version())
	require.Len(t, env.ledger.TokenPairs(), 3)

	p, err := env.ledger.TokenPair(tokenC)
	require.NoError(t, err)
	require.Equal(t, tokenB, p.DestinationToken)
}
