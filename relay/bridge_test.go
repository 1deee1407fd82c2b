package relay

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/alphabill-bridge-base/crypto"
	"github.com/alphabill-org/alphabill-bridge-base/testutils"
	"github.com/alphabill-org/alphabill-bridge-base/token"
	"github.com/alphabill-org/alphabill-bridge-base/txsystem/destination"
	"github.com/alphabill-org/alphabill-bridge-base/txsystem/source"
	"github.com/alphabill-org/alphabill-bridge-base/types"
	"github.com/alphabill-org/alphabill-bridge-base/watchtower"
)

type bridge struct {
	t         *testing.T
	clock     *testutils.ManualClock
	operator  *crypto.PrivateKeySigner
	srcBank   *token.Bank
	dstBank   *token.Bank
	src       *source.Ledger
	dst       *destination.Ledger
	monitor   *watchtower.Monitor
	pipe      *Pipe
	srcToken  types.Address
	dstToken  types.Address
	liquidity types.Address
}

// newBridge wires the ledgers and the watchtower to the relay, the watchtower
// submits fraud proofs directly to the Source Ledger.
func newBridge(t *testing.T) *bridge {
	b := &bridge{
		t:         t,
		clock:     testutils.NewManualClock(),
		operator:  testutils.SignerFromHex(t, testutils.OperatorKey),
		srcBank:   token.NewBank(),
		dstBank:   token.NewBank(),
		srcToken:  common.HexToAddress("0x5000"),
		dstToken:  common.HexToAddress("0xd000"),
		liquidity: testutils.RandomAddress(t),
		pipe:      NewPipe(10),
	}
	var err error
	b.src, err = source.NewLedger(b.operator.Address(), testutils.RandomAddress(t), b.srcBank, source.WithClock(b.clock.Now))
	require.NoError(t, err)
	require.NoError(t, b.src.RegisterTokenPairs(b.operator.Address(), &types.TokenPair{SourceToken: b.srcToken, DestinationToken: b.dstToken}))

	b.dst, err = destination.NewLedger(b.operator.Address(), b.liquidity, b.dstBank)
	require.NoError(t, err)
	require.NoError(t, b.dstBank.Mint(b.dstToken, b.liquidity, 1000))

	b.monitor, err = watchtower.NewMonitor(b.src, func(ctx context.Context, proof *types.FraudProof) error {
		return b.src.RefundOnFraud(proof)
	}, watchtower.WithClock(b.clock.Now))
	require.NoError(t, err)

	runPipe(t, b.pipe, Handlers{
		HandlerFuncs{OnSignedBatch: func(ctx context.Context, sb *types.SignedBatch) error {
			return b.dst.ClaimBatch(sb)
		}},
		b.monitor,
	})
	return b
}

func (b *bridge) deposit(amount uint64) (types.Address, uint64) {
	c := testutils.RandomAddress(b.t)
	require.NoError(b.t, b.srcBank.Mint(b.srcToken, c, amount))
	b.srcBank.Approve(b.srcToken, c, b.src.Escrow(), amount)
	nonce, err := b.src.Deposit(c, &types.Deposit{
		TrustedNonce:  b.src.NextNonce(),
		TrustedAmount: amount,
		DepositAmount: amount,
		Recipient:     c,
		Token:         b.srcToken,
	})
	require.NoError(b.t, err)
	return c, nonce
}

func (b *bridge) authorize(start, end uint64) *types.SignedBatch {
	tickets, err := b.src.Tickets(start, end)
	require.NoError(b.t, err)
	require.NoError(b.t, b.src.AuthorizeWithdrawal(b.operator.Address(), start, end, testutils.SignBatch(b.t, b.operator, start, tickets)))
	sb, err := b.src.SignedBatch(start)
	require.NoError(b.t, err)
	return sb
}

func TestBridge_HonestOperator(t *testing.T) {
	b := newBridge(t)
	alice, _ := b.deposit(100)
	bob, _ := b.deposit(50)

	require.NoError(t, b.pipe.Send(context.Background(), b.authorize(0, 1)))
	require.Eventually(t, func() bool { return b.dst.IsProcessed(0) && b.dst.IsProcessed(1) }, time.Second, 10*time.Millisecond)
	require.EqualValues(t, 100, b.dstBank.BalanceOf(b.dstToken, alice))
	require.EqualValues(t, 50, b.dstBank.BalanceOf(b.dstToken, bob))
	require.EqualValues(t, 850, b.dstBank.BalanceOf(b.dstToken, b.liquidity))

	// replay of the batch is not paid out again
	sb, err := b.src.SignedBatch(0)
	require.NoError(t, err)
	require.ErrorIs(t, b.dst.ClaimBatch(sb), types.ErrBatchAlreadyProcessed)

	require.ErrorIs(t, b.src.ClaimReimbursement(b.operator.Address(), 0), types.ErrTooEarly)
	b.clock.Advance(source.DefaultSafetyDelay)
	require.NoError(t, b.src.ClaimReimbursement(b.operator.Address(), 0))
	require.EqualValues(t, 150, b.srcBank.BalanceOf(b.srcToken, b.operator.Address()))
	require.Zero(t, b.srcBank.BalanceOf(b.srcToken, b.src.Escrow()))

	batch, err := b.src.Batch(0)
	require.NoError(t, err)
	require.Equal(t, types.BatchClaimed, batch.Status)
}

func TestBridge_FraudulentOperator(t *testing.T) {
	b := newBridge(t)
	alice, _ := b.deposit(100)
	bob, _ := b.deposit(50)
	b.authorize(0, 1)

	// the operator pays bob's ticket out to itself on the destination ledger
	tickets, err := b.src.Tickets(0, 1)
	require.NoError(t, err)
	tickets[1].Recipient = b.operator.Address()
	forged, err := crypto.NewSignedBatch(b.operator, 0, tickets)
	require.NoError(t, err)
	require.NoError(t, b.pipe.Send(context.Background(), forged))

	require.Eventually(t, func() bool {
		batch, err := b.src.Batch(0)
		return err == nil && batch.Status == types.BatchRefunded
	}, time.Second, 10*time.Millisecond)
	require.EqualValues(t, 50, b.dstBank.BalanceOf(b.dstToken, b.operator.Address()))

	// both depositors got their deposits back on the source ledger
	require.EqualValues(t, 100, b.srcBank.BalanceOf(b.srcToken, alice))
	require.EqualValues(t, 50, b.srcBank.BalanceOf(b.srcToken, bob))
	for nonce := uint64(0); nonce <= 1; nonce++ {
		r, err := b.src.Ticket(nonce)
		require.NoError(t, err)
		require.Equal(t, types.TicketFraudRefunded, r.State)
	}

	b.clock.Advance(source.DefaultSafetyDelay)
	require.ErrorIs(t, b.src.ClaimReimbursement(b.operator.Address(), 0), types.ErrAlreadyRefunded)
}

func TestBridge_TimeoutRefund(t *testing.T) {
	b := newBridge(t)
	alice, nonce := b.deposit(100)

	refundable, err := b.monitor.Refundable(alice)
	require.NoError(t, err)
	require.Empty(t, refundable)

	b.clock.Advance(source.DefaultMaxAuthDelay)
	refundable, err = b.monitor.Refundable(alice)
	require.NoError(t, err)
	require.Equal(t, []uint64{nonce}, refundable)

	require.NoError(t, b.src.Refund(alice, nonce))
	require.EqualValues(t, 100, b.srcBank.BalanceOf(b.srcToken, alice))

	// the operator can't authorize the refunded ticket anymore
	require.ErrorIs(t, b.src.AuthorizeWithdrawal(b.operator.Address(), nonce, nonce, testutils.SignBatch(t, b.operator, nonce, []types.Ticket{{Value: 100, Recipient: alice, Token: b.dstToken}})), types.ErrNotGapless)
}
