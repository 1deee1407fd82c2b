/*
Package destination implements the Destination Ledger of the bridge: it pays
out the tickets of the batches signed by the Operator from the Operator's
liquidity account.
*/
package destination

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/alphabill-org/alphabill-bridge-base/crypto"
	"github.com/alphabill-org/alphabill-bridge-base/token"
	"github.com/alphabill-org/alphabill-bridge-base/types"
)

type (
	Options struct {
		verifier crypto.Verifier
		log      log.Logger
	}

	Option func(*Options)

	Ledger struct {
		mu        sync.Mutex
		operator  types.Address
		liquidity types.Address
		bank      token.Transferer
		opts      *Options
		// nonce ranges of the paid out batches, ordered by start nonce
		processed []types.NonceRange
		version   uint64
	}
)

func WithVerifier(v crypto.Verifier) Option {
	return func(o *Options) {
		o.verifier = v
	}
}

func WithLogger(l log.Logger) Option {
	return func(o *Options) {
		o.log = l
	}
}

// NewLedger creates Destination Ledger paying out tickets signed by the
// "operator" from the "liquidity" account.
func NewLedger(operator, liquidity types.Address, bank token.Transferer, opts ...Option) (*Ledger, error) {
	if operator == (types.Address{}) {
		return nil, errors.New("operator address is unassigned")
	}
	if liquidity == (types.Address{}) {
		return nil, errors.New("liquidity account address is unassigned")
	}
	if bank == nil {
		return nil, errors.New("token transferer is nil")
	}
	o := &Options{
		verifier: crypto.Secp256k1Verifier{},
		log:      log.New("ledger", "destination"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.verifier == nil {
		return nil, errors.New("signature verifier is nil")
	}
	if o.log == nil {
		return nil, errors.New("logger is nil")
	}
	return &Ledger{
		operator:  operator,
		liquidity: liquidity,
		bank:      bank,
		opts:      o,
	}, nil
}

/*
ClaimBatch pays out the tickets of the batch signed by the Operator. Each
nonce is paid out at most once: a batch overlapping any already processed
range is rejected. Batches may arrive in any order.
*/
func (l *Ledger) ClaimBatch(b *types.SignedBatch) error {
	if err := b.IsValid(); err != nil {
		return err
	}
	if err := crypto.VerifyBatch(l.opts.verifier, b.StartNonce, b.Tickets, b.Signature, l.operator); err != nil {
		return fmt.Errorf("verifying batch signature: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	r := b.Range()
	idx := sort.Search(len(l.processed), func(i int) bool { return l.processed[i].End >= r.Start })
	if idx < len(l.processed) && l.processed[idx].Overlaps(r) {
		return fmt.Errorf("%w: batch %s overlaps %s", types.ErrBatchAlreadyProcessed, r, l.processed[idx])
	}

	transfers := make([]token.Transfer, 0, len(b.Tickets))
	for _, t := range b.Tickets {
		if t.Value == 0 || t.Recipient == l.liquidity {
			continue
		}
		transfers = append(transfers, token.Transfer{Token: t.Token, From: l.liquidity, To: t.Recipient, Amount: t.Value})
	}
	if len(transfers) > 0 {
		if err := l.bank.Transfer(transfers...); err != nil {
			return fmt.Errorf("paying out batch %s: %w", r, err)
		}
	}
	l.processed = slices.Insert(l.processed, idx, r)
	l.version++
	l.opts.log.Info("batch paid out", "range", r, "tickets", len(b.Tickets))
	return nil
}

// IsProcessed returns true when the ticket with the nonce has been paid out.
func (l *Ledger) IsProcessed(nonce uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := sort.Search(len(l.processed), func(i int) bool { return l.processed[i].End >= nonce })
	return idx < len(l.processed) && l.processed[idx].Contains(nonce)
}

// Processed returns the nonce ranges of the processed batches ordered by
// start nonce.
func (l *Ledger) Processed() []types.NonceRange {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.processed)
}

func (l *Ledger) Operator() types.Address {
	return l.operator
}

func (l *Ledger) Liquidity() types.Address {
	return l.liquidity
}

// Version returns the number of batches processed.
func (l *Ledger) Version() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}
