/*
Package source implements the Source Ledger of the bridge: the ticket
registry, batch authorization, Operator reimbursement, timeout refunds and
fraud proof processing.

All the operations are executed under the ledger lock, each successful
operation moves funds with a single atomic transfer, applies its changeset
to the state and commits the changeset to the store (when configured).
*/
package source

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/alphabill-org/alphabill-bridge-base/token"
	"github.com/alphabill-org/alphabill-bridge-base/types"
	"github.com/alphabill-org/alphabill-bridge-base/util"
)

// ErrHalted is returned by all the operations after committing a changeset
// to the store has failed, the in-memory state is then ahead of the store.
var ErrHalted = errors.New("ledger is halted")

type Ledger struct {
	mu       sync.Mutex
	operator types.Address
	escrow   types.Address
	bank     token.Transferer
	opts     *Options
	state    *State
	halted   error
}

/*
NewLedger creates Source Ledger. Deposits are escrowed to the "escrow" account
of the "bank", the ledger must be the only party able to move funds out of it.

When store is configured the state is restored from it.
*/
func NewLedger(operator, escrow types.Address, bank token.Transferer, opts ...Option) (*Ledger, error) {
	if operator == (types.Address{}) {
		return nil, errors.New("operator address is unassigned")
	}
	if escrow == (types.Address{}) {
		return nil, errors.New("escrow address is unassigned")
	}
	if escrow == operator {
		return nil, errors.New("escrow address must differ from the operator address")
	}
	if bank == nil {
		return nil, errors.New("token transferer is nil")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := o.IsValid(); err != nil {
		return nil, fmt.Errorf("invalid ledger options: %w", err)
	}

	l := &Ledger{
		operator: operator,
		escrow:   escrow,
		bank:     bank,
		opts:     o,
		state:    NewState(),
	}
	if o.store != nil {
		if err := l.restore(); err != nil {
			return nil, fmt.Errorf("restoring ledger state: %w", err)
		}
	}
	return l, nil
}

func (l *Ledger) restore() error {
	cs, err := l.opts.store.Load()
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	if cs == nil {
		return nil
	}
	s, err := stateFromChangeset(cs)
	if err != nil {
		return err
	}
	h, err := s.Hash()
	if err != nil {
		return err
	}
	if !bytes.Equal(h, cs.StateHash) {
		return fmt.Errorf("state hash mismatch, stored %X, calculated %X", cs.StateHash, h)
	}
	l.state = s
	l.opts.log.Info("restored ledger state", "version", s.Version, "tickets", len(s.Tickets), "batches", len(s.Batches))
	return nil
}

// now returns the ledger time in seconds, it never decreases.
func (l *Ledger) now() uint64 {
	now := l.opts.clock().Unix()
	if now < 0 || uint64(now) < l.state.Timestamp {
		return l.state.Timestamp
	}
	return uint64(now)
}

func (l *Ledger) checkHalted() error {
	if l.halted != nil {
		return fmt.Errorf("%w: %w", ErrHalted, l.halted)
	}
	return nil
}

/*
commit executes the transfers and, when they succeed, applies the changeset
to the state. The changeset must have been validated against the current
state and must contain copies of the modified records.
*/
func (l *Ledger) commit(now uint64, cs *types.Changeset, transfers []token.Transfer) error {
	if len(transfers) > 0 {
		if err := l.bank.Transfer(transfers...); err != nil {
			return fmt.Errorf("transferring funds: %w", err)
		}
	}
	cs.Timestamp = now
	if err := l.state.apply(cs); err != nil {
		l.halted = err
		return fmt.Errorf("%w: %w", ErrHalted, err)
	}

	h, err := l.state.Hash()
	if err != nil {
		l.halted = err
		return fmt.Errorf("%w: %w", ErrHalted, err)
	}
	cs.Version = l.state.Version
	cs.StateHash = h

	if l.opts.store != nil {
		if err := l.opts.store.Commit(cs); err != nil {
			l.halted = fmt.Errorf("committing state version %d: %w", cs.Version, err)
			l.opts.log.Error("failed to commit changeset, halting the ledger", "version", cs.Version, "err", err)
			return fmt.Errorf("%w: %w", ErrHalted, l.halted)
		}
	}
	return nil
}

func (l *Ledger) isOperator(caller types.Address) error {
	if caller != l.operator {
		return fmt.Errorf("%w: %s", types.ErrNotOperator, caller)
	}
	return nil
}

// refundTransfers returns transfers returning the escrowed value of the
// tickets to their depositors, aggregated per depositor and token.
func (l *Ledger) refundTransfers(tickets []*types.TicketRecord) []token.Transfer {
	type key struct {
		token     types.Address
		depositor types.Address
	}
	var transfers []token.Transfer
	idx := map[key]int{}
	for _, t := range tickets {
		k := key{token: t.SourceToken, depositor: t.Depositor}
		if i, ok := idx[k]; ok {
			transfers[i].Amount += t.Ticket.Value
			continue
		}
		idx[k] = len(transfers)
		transfers = append(transfers, token.Transfer{Token: t.SourceToken, From: l.escrow, To: t.Depositor, Amount: t.Ticket.Value})
	}
	return transfers
}

func withState(tickets []*types.TicketRecord, state types.TicketState) []*types.TicketRecord {
	res := make([]*types.TicketRecord, len(tickets))
	for i, t := range tickets {
		res[i] = t.Copy()
		res[i].State = state
	}
	return res
}

func (l *Ledger) Operator() types.Address {
	return l.operator
}

func (l *Ledger) Escrow() types.Address {
	return l.escrow
}

// MaxAuthDelay returns the max auth delay in seconds.
func (l *Ledger) MaxAuthDelay() uint64 {
	return seconds(l.opts.maxAuthDelay)
}

// SafetyDelay returns the safety delay in seconds.
func (l *Ledger) SafetyDelay() uint64 {
	return seconds(l.opts.safetyDelay)
}

func (l *Ledger) NextNonce() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.NextNonce()
}

// NextBatchNonce returns the nonce the next authorized batch must start at.
func (l *Ledger) NextBatchNonce() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Frontier()
}

func (l *Ledger) Ticket(nonce uint64) (*types.TicketRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.state.Ticket(nonce)
	if !ok {
		return nil, fmt.Errorf("%w: %d", types.ErrUnknownNonce, nonce)
	}
	return t.Copy(), nil
}

// Tickets returns tickets in the inclusive nonce range [start, end], this is
// what the Operator signs when authorizing the range.
func (l *Ledger) Tickets(start, end uint64) ([]types.Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	records, err := l.state.TicketRange(types.NonceRange{Start: start, End: end})
	if err != nil {
		return nil, err
	}
	return ticketsOf(records), nil
}

// TicketRecords returns copies of the registry records in the inclusive
// nonce range [start, end].
func (l *Ledger) TicketRecords(start, end uint64) ([]*types.TicketRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	records, err := l.state.TicketRange(types.NonceRange{Start: start, End: end})
	if err != nil {
		return nil, err
	}
	res := make([]*types.TicketRecord, len(records))
	for i, r := range records {
		res[i] = r.Copy()
	}
	return res, nil
}

func (l *Ledger) Batch(start uint64) (*types.BatchAuthorization, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.state.BatchAt(start)
	if !ok {
		return nil, fmt.Errorf("%w: no batch starts at %d", types.ErrUnknownBatch, start)
	}
	return b.Copy(), nil
}

// BatchOf returns the batch covering the nonce.
func (l *Ledger) BatchOf(nonce uint64) (*types.BatchAuthorization, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.state.BatchOf(nonce)
	if !ok {
		return nil, fmt.Errorf("%w: no batch covers %d", types.ErrUnknownBatch, nonce)
	}
	return b.Copy(), nil
}

// Batches returns copies of all the batches ordered by start nonce.
func (l *Ledger) Batches() []*types.BatchAuthorization {
	l.mu.Lock()
	defer l.mu.Unlock()
	res := make([]*types.BatchAuthorization, len(l.state.Batches))
	for i, b := range l.state.Batches {
		res[i] = b.Copy()
	}
	return res
}

func (l *Ledger) TokenPair(sourceToken types.Address) (*types.TokenPair, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.state.TokenPairs[sourceToken]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrTokenNotRegistered, sourceToken)
	}
	c := *p
	return &c, nil
}

func (l *Ledger) TokenPairs() []*types.TokenPair {
	l.mu.Lock()
	defer l.mu.Unlock()
	pairs := l.state.sortedTokenPairs()
	for i, p := range pairs {
		c := *p
		pairs[i] = &c
	}
	return pairs
}

func (l *Ledger) Version() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Version
}

func (l *Ledger) StateHash() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Hash()
}

/*
SignedBatch returns the relay message of the batch starting at "start", to be
sent to the Destination Ledger. Only batches authorized by the Operator carry
a signature.
*/
func (l *Ledger) SignedBatch(start uint64) (*types.SignedBatch, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.state.BatchAt(start)
	if !ok {
		return nil, fmt.Errorf("%w: no batch starts at %d", types.ErrUnknownBatch, start)
	}
	if b.Signature == nil {
		return nil, fmt.Errorf("%w: batch %s was refunded without authorization", types.ErrBatchNotAuthorized, b.Range())
	}
	records, err := l.state.TicketRange(b.Range())
	if err != nil {
		return nil, err
	}
	return &types.SignedBatch{
		Version:    1,
		StartNonce: b.StartNonce,
		Tickets:    ticketsOf(records),
		Signature:  *b.Signature,
	}, nil
}

func ticketsOf(records []*types.TicketRecord) []types.Ticket {
	return util.TransformSlice(records, func(r *types.TicketRecord) types.Ticket { return r.Ticket })
}

