/*
Package hash calculates hashes of CBOR encoded values. The values are encoded
with the deterministic encoding mode of the cbor package so that equal values
give equal hashes on every node.
*/
package hash

import (
	"crypto"
	"fmt"
	"hash"

	"github.com/fxamacker/cbor/v2"

	abcbor "github.com/alphabill-org/alphabill-bridge-base/cbor"
)

// Hash writes the CBOR encoding of the values into the hash function.
type Hash struct {
	h   hash.Hash
	enc *cbor.Encoder
	err error
}

func New(alg crypto.Hash) (*Hash, error) {
	if !alg.Available() {
		return nil, fmt.Errorf("hash function %s is not available", alg)
	}
	h := alg.New()
	return &Hash{h: h, enc: abcbor.EncMode().NewEncoder(h)}, nil
}

// Write adds CBOR encoding of v to the hash. After the first error
// subsequent writes are ignored and Sum returns the error.
func (h *Hash) Write(v any) {
	if h.err != nil {
		return
	}
	h.err = h.enc.Encode(v)
}

func (h *Hash) Sum() ([]byte, error) {
	if h.err != nil {
		return nil, h.err
	}
	return h.h.Sum(nil), nil
}

// Sum returns hash of the CBOR encoding of the values, written in order.
func Sum(alg crypto.Hash, values ...any) ([]byte, error) {
	h, err := New(alg)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		h.Write(v)
	}
	return h.Sum()
}
