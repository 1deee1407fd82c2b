package source

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/alphabill-org/alphabill-bridge-base/crypto"
	"github.com/alphabill-org/alphabill-bridge-base/types"
)

const (
	DefaultMaxAuthDelay = 60 * time.Second
	DefaultSafetyDelay  = 600 * time.Second
)

type (
	// Store persists the changesets of the ledger. Load returns the complete
	// state as a changeset or nil when nothing has been committed yet.
	Store interface {
		Commit(cs *types.Changeset) error
		Load() (*types.Changeset, error)
	}

	Options struct {
		maxAuthDelay       time.Duration
		safetyDelay        time.Duration
		trustedNonceWindow bool
		clock              func() time.Time
		verifier           crypto.Verifier
		log                log.Logger
		store              Store
	}

	Option func(*Options)
)

func defaultOptions() *Options {
	return &Options{
		maxAuthDelay: DefaultMaxAuthDelay,
		safetyDelay:  DefaultSafetyDelay,
		clock:        time.Now,
		verifier:     crypto.Secp256k1Verifier{},
		log:          log.New("ledger", "source"),
	}
}

// WithMaxAuthDelay sets the time the Operator has to authorize a ticket
// before its depositor may reclaim it.
func WithMaxAuthDelay(d time.Duration) Option {
	return func(o *Options) {
		o.maxAuthDelay = d
	}
}

// WithSafetyDelay sets the time which must pass after a batch is authorized
// before the Operator may claim reimbursement for it.
func WithSafetyDelay(d time.Duration) Option {
	return func(o *Options) {
		o.safetyDelay = d
	}
}

// WithTrustedNonceWindow allows deposits whose trusted nonce is lower than the
// next nonce, the exposure check then covers all the tickets since the
// trusted nonce.
func WithTrustedNonceWindow() Option {
	return func(o *Options) {
		o.trustedNonceWindow = true
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

func WithLogger(l log.Logger) Option {
	return func(o *Options) {
		o.log = l
	}
}

func WithStore(s Store) Option {
	return func(o *Options) {
		o.store = s
	}
}

func (o *Options) IsValid() error {
	if o.maxAuthDelay < time.Second {
		return fmt.Errorf("max auth delay must be at least one second, got %s", o.maxAuthDelay)
	}
	if o.safetyDelay <= o.maxAuthDelay {
		return fmt.Errorf("safety delay (%s) must be greater than max auth delay (%s)", o.safetyDelay, o.maxAuthDelay)
	}
	if o.clock == nil {
		return fmt.Errorf("clock is nil")
	}
	if o.verifier == nil {
		return fmt.Errorf("signature verifier is nil")
	}
	if o.log == nil {
		return fmt.Errorf("logger is nil")
	}
	return nil
}

func seconds(d time.Duration) uint64 {
	return uint64(d / time.Second)
}
