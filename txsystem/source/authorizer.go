package source

import (
	"fmt"

	"github.com/alphabill-org/alphabill-bridge-base/crypto"
	"github.com/alphabill-org/alphabill-bridge-base/types"
)

/*
AuthorizeWithdrawal records the Operator's commitment to pay out the tickets
in the inclusive nonce range [start, end] on the Destination Ledger.

Batches must be gapless, ie "start" must be the first nonce not covered by
any batch. The signature must be the Operator's signature of the canonical
hash of the tickets in the range.
*/
func (l *Ledger) AuthorizeWithdrawal(caller types.Address, start, end uint64, sig types.Signature) error {
	if err := l.isOperator(caller); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkHalted(); err != nil {
		return err
	}

	if frontier := l.state.Frontier(); start != frontier {
		return fmt.Errorf("%w: batch must start at %d, got %d", types.ErrNotGapless, frontier, start)
	}
	records, err := l.state.TicketRange(types.NonceRange{Start: start, End: end})
	if err != nil {
		return err
	}
	if err := crypto.VerifyBatch(l.opts.verifier, start, ticketsOf(records), sig, l.operator); err != nil {
		return fmt.Errorf("verifying batch signature: %w", err)
	}

	now := l.now()
	batch := &types.BatchAuthorization{
		Version:      1,
		StartNonce:   start,
		EndNonce:     end,
		Signature:    &sig,
		Status:       types.BatchAuthorized,
		AuthorizedAt: now,
	}
	cs := &types.Changeset{
		Tickets: withState(records, types.TicketAuthorized),
		Batches: []*types.BatchAuthorization{batch},
	}
	if err := l.commit(now, cs, nil); err != nil {
		return fmt.Errorf("authorizing batch: %w", err)
	}
	l.opts.log.Info("batch authorized", "range", batch.Range(), "tickets", len(records))
	return nil
}
