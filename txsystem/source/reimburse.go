package source

import (
	"fmt"

	"github.com/alphabill-org/alphabill-bridge-base/token"
	"github.com/alphabill-org/alphabill-bridge-base/types"
	"github.com/alphabill-org/alphabill-bridge-base/util"
)

// ClaimReimbursement pays the escrowed value of the tickets in the batch
// starting at "start" to the Operator. The safety delay must have passed
// since the batch was authorized so that fraud proofs can be submitted.
func (l *Ledger) ClaimReimbursement(caller types.Address, start uint64) error {
	if err := l.isOperator(caller); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkHalted(); err != nil {
		return err
	}

	b, ok := l.state.BatchAt(start)
	if !ok {
		return fmt.Errorf("%w: no batch starts at %d", types.ErrUnknownBatch, start)
	}
	if err := b.StatusError(); err != nil {
		return fmt.Errorf("batch %s: %w", b.Range(), err)
	}
	now := l.now()
	claimableAt, ok := util.SafeAdd(b.AuthorizedAt, l.SafetyDelay())
	if !ok || now < claimableAt {
		return fmt.Errorf("%w: batch %s can be claimed at %d, now %d", types.ErrTooEarly, b.Range(), claimableAt, now)
	}

	records, err := l.state.TicketRange(b.Range())
	if err != nil {
		return err
	}
	transfers, err := l.reimbursementTransfers(records)
	if err != nil {
		return err
	}
	claimed := b.Copy()
	claimed.Status = types.BatchClaimed
	cs := &types.Changeset{
		Tickets: withState(records, types.TicketSettled),
		Batches: []*types.BatchAuthorization{claimed},
	}
	if err := l.commit(now, cs, transfers); err != nil {
		return fmt.Errorf("claiming reimbursement: %w", err)
	}
	l.opts.log.Info("reimbursement claimed", "range", claimed.Range(), "transfers", len(transfers))
	return nil
}

// reimbursementTransfers sums the ticket values per source token, in the
// order the tokens first appear in the batch.
func (l *Ledger) reimbursementTransfers(records []*types.TicketRecord) ([]token.Transfer, error) {
	var transfers []token.Transfer
	idx := map[types.Address]int{}
	for _, r := range records {
		i, ok := idx[r.SourceToken]
		if !ok {
			i = len(transfers)
			idx[r.SourceToken] = i
			transfers = append(transfers, token.Transfer{Token: r.SourceToken, From: l.escrow, To: l.operator})
		}
		if transfers[i].Amount, ok = util.SafeAdd(transfers[i].Amount, r.Ticket.Value); !ok {
			return nil, fmt.Errorf("reimbursement of token %s overflows", r.SourceToken)
		}
	}
	return transfers, nil
}
