package source

import (
	"fmt"

	"github.com/alphabill-org/alphabill-bridge-base/crypto"
	"github.com/alphabill-org/alphabill-bridge-base/types"
)

/*
RefundOnFraud processes a proof that the Operator signed two different
tickets for the same nonce: the committed batch covering the disputed nonce
and a conflicting batch (which may start at a different nonce). When the
proof holds, every ticket of the committed batch is refunded to its depositor
and the Operator can not claim reimbursement for the batch.

Anyone may submit a fraud proof.
*/
func (l *Ledger) RefundOnFraud(proof *types.FraudProof) error {
	if err := proof.IsValid(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkHalted(); err != nil {
		return err
	}

	nonce := proof.DisputedNonce()
	b, ok := l.state.BatchOf(nonce)
	if !ok {
		return fmt.Errorf("%w: no batch covers nonce %d", types.ErrInvalidFraudProof, nonce)
	}
	if b.StartNonce != proof.CommittedStart {
		return fmt.Errorf("%w: nonce %d is covered by batch %s, proof refers to batch starting at %d",
			types.ErrInvalidFraudProof, nonce, b.Range(), proof.CommittedStart)
	}
	if b.Status != types.BatchAuthorized {
		return fmt.Errorf("%w: batch %s is %s", types.ErrBatchNotAuthorized, b.Range(), b.Status)
	}
	if err := crypto.VerifyBatch(l.opts.verifier, proof.ConflictStart, proof.Tickets, proof.Signature, l.operator); err != nil {
		return fmt.Errorf("verifying conflicting batch signature: %w", err)
	}
	committed, _ := l.state.Ticket(nonce)
	if proof.ConflictingTicket().Equal(committed.Ticket) {
		return fmt.Errorf("%w: nonce %d", types.ErrTicketsNotDistinct, nonce)
	}

	records, err := l.state.TicketRange(b.Range())
	if err != nil {
		return err
	}
	now := l.now()
	refunded := b.Copy()
	refunded.Status = types.BatchRefunded
	cs := &types.Changeset{
		Tickets: withState(records, types.TicketFraudRefunded),
		Batches: []*types.BatchAuthorization{refunded},
	}
	if err := l.commit(now, cs, l.refundTransfers(records)); err != nil {
		return fmt.Errorf("refunding on fraud: %w", err)
	}
	l.opts.log.Warn("operator fraud proven, batch refunded", "range", refunded.Range(), "nonce", nonce)
	return nil
}
