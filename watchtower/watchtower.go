/*
Package watchtower implements an off-ledger monitor protecting the customers
of the bridge. It compares the batches signed by the Operator, as seen on the
relay, with the batches committed on the Source Ledger and submits a fraud
proof when the Operator has signed two different tickets for the same nonce.
It also lists the tickets whose depositors may reclaim them.
*/
package watchtower

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"

	"github.com/alphabill-org/alphabill-bridge-base/crypto"
	"github.com/alphabill-org/alphabill-bridge-base/types"
)

type (
	// SourceView is the read only view of the Source Ledger the monitor needs.
	SourceView interface {
		Operator() types.Address
		NextNonce() uint64
		NextBatchNonce() uint64
		BatchOf(nonce uint64) (*types.BatchAuthorization, error)
		Tickets(start, end uint64) ([]types.Ticket, error)
		TicketRecords(start, end uint64) ([]*types.TicketRecord, error)
	}

	// SubmitFunc delivers fraud proof to the Source Ledger.
	SubmitFunc func(ctx context.Context, proof *types.FraudProof) error

	Options struct {
		maxAuthDelay time.Duration
		clock        func() time.Time
		verifier     crypto.Verifier
		cacheSize    int
		log          log.Logger
	}

	Option func(*Options)

	Monitor struct {
		view   SourceView
		submit SubmitFunc
		opts   *Options
		// signed batches which have been fully checked against committed batches
		checked *lru.Cache
	}

	seenKey struct {
		hash common.Hash
		sig  types.Signature
	}
)

func WithMaxAuthDelay(d time.Duration) Option {
	return func(o *Options) {
		o.maxAuthDelay = d
	}
}

func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		o.clock = clock
	}
}

func WithVerifier(v crypto.Verifier) Option {
	return func(o *Options) {
		o.verifier = v
	}
}

// WithCacheSize sets the number of checked batches remembered by the monitor.
func WithCacheSize(size int) Option {
	return func(o *Options) {
		o.cacheSize = size
	}
}

func WithLogger(l log.Logger) Option {
	return func(o *Options) {
		o.log = l
	}
}

// NewMonitor creates watchtower monitoring the Source Ledger "view". Fraud
// proofs are delivered using "submit", which may be nil.
func NewMonitor(view SourceView, submit SubmitFunc, opts ...Option) (*Monitor, error) {
	if view == nil {
		return nil, errors.New("source ledger view is nil")
	}
	o := &Options{
		maxAuthDelay: time.Minute,
		clock:        time.Now,
		cacheSize:    1024,
		log:          log.New("component", "watchtower"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		return nil, errors.New("clock is nil")
	}
	if o.log == nil {
		return nil, errors.New("logger is nil")
	}
	if o.verifier == nil {
		v, err := crypto.NewCachingVerifier(crypto.Secp256k1Verifier{}, o.cacheSize)
		if err != nil {
			return nil, err
		}
		o.verifier = v
	}
	checked, err := lru.New(o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating checked batch cache: %w", err)
	}
	return &Monitor{view: view, submit: submit, opts: o, checked: checked}, nil
}

/*
Observe checks the batch signed by the Operator against the committed
batches. When the batch conflicts with a committed batch which is still
Authorized a fraud proof is created, submitted and returned. Returns nil
proof when no conflict was found.

Batches whose nonces are not all committed yet are checked again when
observed again.
*/
func (m *Monitor) Observe(ctx context.Context, b *types.SignedBatch) (*types.FraudProof, error) {
	if err := b.IsValid(); err != nil {
		return nil, err
	}
	h, err := b.Hash()
	if err != nil {
		return nil, err
	}
	key := seenKey{hash: common.BytesToHash(h), sig: b.Signature}
	if m.checked.Contains(key) {
		return nil, nil
	}
	if err := crypto.VerifySigner(m.opts.verifier, h, b.Signature, m.view.Operator()); err != nil {
		return nil, fmt.Errorf("verifying batch signature: %w", err)
	}

	complete := true
	for i, t := range b.Tickets {
		nonce := b.StartNonce + uint64(i)
		committed, err := m.view.BatchOf(nonce)
		if err != nil {
			if errors.Is(err, types.ErrUnknownBatch) {
				complete = false
				continue
			}
			return nil, fmt.Errorf("reading batch of nonce %d: %w", nonce, err)
		}
		if committed.Status != types.BatchAuthorized {
			continue
		}
		tickets, err := m.view.Tickets(nonce, nonce)
		if err != nil {
			return nil, fmt.Errorf("reading ticket %d: %w", nonce, err)
		}
		if tickets[0].Equal(t) {
			continue
		}

		proof := &types.FraudProof{
			Version:        1,
			CommittedStart: committed.StartNonce,
			ConflictStart:  b.StartNonce,
			ConflictIndex:  uint64(i),
			Tickets:        b.Tickets,
			Signature:      b.Signature,
		}
		m.opts.log.Warn("operator signed conflicting ticket", "nonce", nonce, "committed", committed.Range(), "conflicting", b.Range())
		if m.submit != nil {
			// not cached on failure so the proof is submitted again when the
			// batch is observed again
			if err := m.submit(ctx, proof); err != nil {
				return proof, fmt.Errorf("submitting fraud proof: %w", err)
			}
		}
		m.checked.Add(key, struct{}{})
		return proof, nil
	}
	if complete {
		m.checked.Add(key, struct{}{})
	}
	return nil, nil
}

// Refundable returns nonces of the depositor's tickets which have not been
// authorized within the max auth delay and thus may be refunded.
func (m *Monitor) Refundable(depositor types.Address) ([]uint64, error) {
	start, next := m.view.NextBatchNonce(), m.view.NextNonce()
	if start >= next {
		return nil, nil
	}
	records, err := m.view.TicketRecords(start, next-1)
	if err != nil {
		return nil, fmt.Errorf("reading unauthorized tickets: %w", err)
	}
	now := m.opts.clock().Unix()
	delay := uint64(m.opts.maxAuthDelay / time.Second)
	var res []uint64
	for _, r := range records {
		if r.Depositor == depositor && r.State == types.TicketDeposited && uint64(now) >= r.CreatedAt+delay {
			res = append(res, r.Nonce)
		}
	}
	return res, nil
}

// Run observes batches received from "in" until ctx is cancelled or the
// channel is closed.
func (m *Monitor) Run(ctx context.Context, in <-chan *types.SignedBatch) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-in:
			if !ok {
				return nil
			}
			if _, err := m.Observe(ctx, b); err != nil {
				m.opts.log.Warn("failed to check signed batch", "err", err)
			}
		}
	}
}

// HandleSignedBatch allows the monitor to be attached to the relay.
func (m *Monitor) HandleSignedBatch(ctx context.Context, b *types.SignedBatch) error {
	_, err := m.Observe(ctx, b)
	return err
}

func (m *Monitor) HandleFraudProof(context.Context, *types.FraudProof) error {
	return nil
}
