/*
Package relay carries messages between the ledgers. The ledgers share no
memory, signed batches and fraud proofs travel between them as CBOR encoded
bytes. Delivery is asynchronous, a message may be delayed or lost.
*/
package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/alphabill-org/alphabill-bridge-base/cbor"
	"github.com/alphabill-org/alphabill-bridge-base/types"
)

type (
	// Handler processes messages delivered by the pipe.
	Handler interface {
		HandleSignedBatch(ctx context.Context, b *types.SignedBatch) error
		HandleFraudProof(ctx context.Context, p *types.FraudProof) error
	}

	// HandlerFuncs implements Handler, messages without callback are ignored.
	HandlerFuncs struct {
		OnSignedBatch func(ctx context.Context, b *types.SignedBatch) error
		OnFraudProof  func(ctx context.Context, p *types.FraudProof) error
	}

	Option func(*Pipe)

	Pipe struct {
		ch  chan []byte
		log log.Logger
		// drop returns true when the message must be lost
		drop func(msg []byte) bool
	}
)

func WithLogger(l log.Logger) Option {
	return func(p *Pipe) {
		p.log = l
	}
}

// WithDropFunc sets the function deciding whether a message is lost in transit.
func WithDropFunc(drop func(msg []byte) bool) Option {
	return func(p *Pipe) {
		p.drop = drop
	}
}

// NewPipe returns pipe which buffers up to "capacity" messages.
func NewPipe(capacity int, opts ...Option) *Pipe {
	p := &Pipe{
		ch:  make(chan []byte, capacity),
		log: log.New("component", "relay"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Send encodes the message (*types.SignedBatch or *types.FraudProof) and
// queues it for delivery. Blocks while the buffer is full.
func (p *Pipe) Send(ctx context.Context, msg any) error {
	switch msg.(type) {
	case *types.SignedBatch, *types.FraudProof:
	default:
		return fmt.Errorf("unsupported relay message type %T", msg)
	}
	data, err := cbor.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding relay message: %w", err)
	}
	if p.drop != nil && p.drop(data) {
		p.log.Debug("relay message dropped", "type", fmt.Sprintf("%T", msg))
		return nil
	}
	select {
	case p.ch <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run delivers messages to the handler until ctx is cancelled. Messages which
// can't be decoded and handler errors are logged, they do not stop the pipe.
func (p *Pipe) Run(ctx context.Context, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-p.ch:
			if err := p.deliver(ctx, h, data); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				p.log.Warn("relay message not processed", "err", err)
			}
		}
	}
}

func (p *Pipe) deliver(ctx context.Context, h Handler, data []byte) error {
	msg, err := types.DecodeRelayMessage(data)
	if err != nil {
		return err
	}
	switch m := msg.(type) {
	case *types.SignedBatch:
		if err := h.HandleSignedBatch(ctx, m); err != nil {
			return fmt.Errorf("handling signed batch starting at %d: %w", m.StartNonce, err)
		}
	case *types.FraudProof:
		if err := h.HandleFraudProof(ctx, m); err != nil {
			return fmt.Errorf("handling fraud proof for nonce %d: %w", m.DisputedNonce(), err)
		}
	}
	return nil
}

// Len returns the number of messages waiting for delivery.
func (p *Pipe) Len() int {
	return len(p.ch)
}

func (h HandlerFuncs) HandleSignedBatch(ctx context.Context, b *types.SignedBatch) error {
	if h.OnSignedBatch == nil {
		return nil
	}
	return h.OnSignedBatch(ctx, b)
}

func (h HandlerFuncs) HandleFraudProof(ctx context.Context, p *types.FraudProof) error {
	if h.OnFraudProof == nil {
		return nil
	}
	return h.OnFraudProof(ctx, p)
}

// Handlers delivers every message to all the handlers in order.
type Handlers []Handler

func (hs Handlers) HandleSignedBatch(ctx context.Context, b *types.SignedBatch) error {
	var errs []error
	for _, h := range hs {
		errs = append(errs, h.HandleSignedBatch(ctx, b))
	}
	return errors.Join(errs...)
}

func (hs Handlers) HandleFraudProof(ctx context.Context, p *types.FraudProof) error {
	var errs []error
	for _, h := range hs {
		errs = append(errs, h.HandleFraudProof(ctx, p))
	}
	return errors.Join(errs...)
}
