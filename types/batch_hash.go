package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

var batchArguments abi.Arguments

func init() {
	// tuple(uint256 startNonce, tuple(uint256 value, address l1Recipient, address token)[] tickets)
	batchType, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "startNonce", Type: "uint256"},
		{Name: "tickets", Type: "tuple[]", Components: []abi.ArgumentMarshaling{
			{Name: "value", Type: "uint256"},
			{Name: "l1Recipient", Type: "address"},
			{Name: "token", Type: "address"},
		}},
	})
	if err != nil {
		panic(fmt.Errorf("initializing batch ABI type: %w", err))
	}
	batchArguments = abi.Arguments{{Type: batchType}}
}

type (
	abiTicket struct {
		Value       *big.Int
		L1Recipient Address
		Token       Address
	}

	abiBatch struct {
		StartNonce *big.Int
		Tickets    []abiTicket
	}
)

// EncodeBatch returns the ABI encoding of the (startNonce, tickets) tuple.
// The start nonce binds the batch to its position in the registry so the same
// signature can't be replayed at a different offset.
func EncodeBatch(startNonce uint64, tickets []Ticket) ([]byte, error) {
	b := abiBatch{
		StartNonce: new(big.Int).SetUint64(startNonce),
		Tickets:    make([]abiTicket, len(tickets)),
	}
	for i, t := range tickets {
		b.Tickets[i] = abiTicket{
			Value:       new(big.Int).SetUint64(t.Value),
			L1Recipient: t.Recipient,
			Token:       t.Token,
		}
	}
	buf, err := batchArguments.Pack(b)
	if err != nil {
		return nil, fmt.Errorf("encoding batch: %w", err)
	}
	return buf, nil
}

// BatchHash returns the keccak256 hash of the ABI encoded batch, this is the
// message the Operator signs.
func BatchHash(startNonce uint64, tickets []Ticket) ([]byte, error) {
	if len(tickets) == 0 {
		return nil, fmt.Errorf("%w: batch has no tickets", ErrInvalidRange)
	}
	buf, err := EncodeBatch(startNonce, tickets)
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(buf), nil
}
