package source

import (
	"fmt"

	"github.com/alphabill-org/alphabill-bridge-base/token"
	"github.com/alphabill-org/alphabill-bridge-base/types"
	"github.com/alphabill-org/alphabill-bridge-base/util"
)

/*
Deposit escrows the deposit amount from the caller and registers a ticket
for it. Returns the nonce assigned to the ticket.

The caller must have approved the escrow account to transfer the deposit
amount. The deposit is rejected when the registry has moved past the
customer's trusted nonce or when the total value of the tickets since the
trusted nonce, including this one, exceeds the trusted amount.
*/
func (l *Ledger) Deposit(caller types.Address, d *types.Deposit) (uint64, error) {
	if err := d.IsValid(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkHalted(); err != nil {
		return 0, err
	}

	pair, ok := l.state.TokenPairs[d.Token]
	if !ok {
		return 0, fmt.Errorf("%w: %s", types.ErrTokenNotRegistered, d.Token)
	}
	nonce := l.state.NextNonce()
	if err := l.checkTrustedNonce(d.TrustedNonce, nonce); err != nil {
		return 0, err
	}
	if err := l.checkExposure(d, nonce); err != nil {
		return 0, err
	}

	now := l.now()
	record := &types.TicketRecord{
		Version: 1,
		Nonce:   nonce,
		Ticket: types.Ticket{
			Value:     d.DepositAmount,
			Recipient: d.Recipient,
			Token:     pair.DestinationToken,
		},
		Depositor:   caller,
		SourceToken: d.Token,
		CreatedAt:   now,
		State:       types.TicketDeposited,
	}
	transfer := token.Transfer{
		Token:   d.Token,
		From:    caller,
		To:      l.escrow,
		Amount:  d.DepositAmount,
		Spender: l.escrow,
	}
	if err := l.commit(now, &types.Changeset{Tickets: []*types.TicketRecord{record}}, []token.Transfer{transfer}); err != nil {
		return 0, fmt.Errorf("depositing: %w", err)
	}
	l.opts.log.Info("ticket deposited", "nonce", nonce, "depositor", caller, "value", d.DepositAmount, "token", d.Token, "recipient", d.Recipient)
	return nonce, nil
}

func (l *Ledger) checkTrustedNonce(trusted, next uint64) error {
	if trusted == next || (l.opts.trustedNonceWindow && trusted < next) {
		return nil
	}
	return fmt.Errorf("%w: trusted nonce %d, next nonce %d", types.ErrNonceMismatch, trusted, next)
}

// checkExposure verifies that the value of the tickets in the range
// [trusted nonce, next) plus the deposit stays within the trusted amount.
func (l *Ledger) checkExposure(d *types.Deposit, next uint64) error {
	pending, ok := util.SumOf(l.state.Tickets[d.TrustedNonce:next], func(r *types.TicketRecord) uint64 { return r.Ticket.Value })
	if ok {
		pending, ok = util.SafeAdd(pending, d.DepositAmount)
	}
	if !ok || pending > d.TrustedAmount {
		return fmt.Errorf("%w: exposure would be %d, trusted amount is %d", types.ErrExposureExceeded, pending, d.TrustedAmount)
	}
	return nil
}

// RegisterTokenPairs registers the destination tokens the tickets created for
// deposits of the source tokens are paid out in. Only the Operator may
// register token pairs, the pair of a source token can't be changed.
func (l *Ledger) RegisterTokenPairs(caller types.Address, pairs ...*types.TokenPair) error {
	if err := l.isOperator(caller); err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("no token pairs to register")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkHalted(); err != nil {
		return err
	}

	cs := &types.Changeset{}
	seen := map[types.Address]struct{}{}
	for _, p := range pairs {
		if p == nil {
			return fmt.Errorf("token pair is nil")
		}
		if _, ok := l.state.TokenPairs[p.SourceToken]; ok {
			return fmt.Errorf("%w: %s", types.ErrTokenPairExists, p.SourceToken)
		}
		if _, ok := seen[p.SourceToken]; ok {
			return fmt.Errorf("%w: %s is listed more than once", types.ErrTokenPairExists, p.SourceToken)
		}
		seen[p.SourceToken] = struct{}{}
		c := *p
		cs.TokenPairs = append(cs.TokenPairs, &c)
	}
	if err := l.commit(l.now(), cs, nil); err != nil {
		return fmt.Errorf("registering token pairs: %w", err)
	}
	for _, p := range cs.TokenPairs {
		l.opts.log.Info("token pair registered", "source", p.SourceToken, "destination", p.DestinationToken)
	}
	return nil
}
