package source

import (
	"fmt"

	"github.com/alphabill-org/alphabill-bridge-base/types"
	"github.com/alphabill-org/alphabill-bridge-base/util"
)

/*
Refund returns the escrowed deposit of the ticket "nonce" to its depositor
when the Operator has not authorized it within the max auth delay.

All the unauthorized tickets preceding the nonce are older, so their delay
has passed too: they are refunded to their own depositors in the same step.
The refunded range is recorded as a batch so it can never be authorized.
*/
func (l *Ledger) Refund(caller types.Address, nonce uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkHalted(); err != nil {
		return err
	}

	ticket, ok := l.state.Ticket(nonce)
	if !ok {
		return fmt.Errorf("%w: %d", types.ErrUnknownNonce, nonce)
	}
	if ticket.Depositor != caller {
		return fmt.Errorf("%w: ticket %d was deposited by %s", types.ErrNotDepositor, nonce, ticket.Depositor)
	}
	now := l.now()
	refundableAt, ok := util.SafeAdd(ticket.CreatedAt, l.MaxAuthDelay())
	if !ok || now < refundableAt {
		return fmt.Errorf("%w: ticket %d can be refunded at %d, now %d", types.ErrTooSoon, nonce, refundableAt, now)
	}
	if b, ok := l.state.BatchOf(nonce); ok {
		if b.Status == types.BatchRefunded {
			return fmt.Errorf("%w: ticket %d is in batch %s", types.ErrAlreadyRefunded, nonce, b.Range())
		}
		return fmt.Errorf("%w: ticket %d is in batch %s", types.ErrAlreadyAuthorized, nonce, b.Range())
	}

	records, err := l.state.TicketRange(types.NonceRange{Start: l.state.Frontier(), End: nonce})
	if err != nil {
		return err
	}
	batch := &types.BatchAuthorization{
		Version:      1,
		StartNonce:   l.state.Frontier(),
		EndNonce:     nonce,
		Status:       types.BatchRefunded,
		AuthorizedAt: now,
	}
	cs := &types.Changeset{
		Tickets: withState(records, types.TicketTimedOutRefunded),
		Batches: []*types.BatchAuthorization{batch},
	}
	if err := l.commit(now, cs, l.refundTransfers(records)); err != nil {
		return fmt.Errorf("refunding: %w", err)
	}
	l.opts.log.Info("tickets refunded on timeout", "range", batch.Range(), "caller", caller)
	return nil
}
