package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const SignatureLength = 65

// Signature is an ECDSA (r, s, v) triple. V is in the {27, 28} form used
// by the personal message signing convention.
type Signature struct {
	_ struct{} `cbor:",toarray"`
	R [32]byte
	S [32]byte
	V uint8
}

// SignatureFromBytes converts 65 byte [R || S || V] signature, V may be
// either in the {0, 1} or in the {27, 28} form.
func SignatureFromBytes(b []byte) (Signature, error) {
	if len(b) != SignatureLength {
		return Signature{}, fmt.Errorf("invalid signature length %d, expected %d", len(b), SignatureLength)
	}
	sig := Signature{V: b[64]}
	copy(sig.R[:], b[:32])
	copy(sig.S[:], b[32:64])
	if sig.V < 27 {
		sig.V += 27
	}
	if sig.V != 27 && sig.V != 28 {
		return Signature{}, fmt.Errorf("invalid signature recovery id %d", b[64])
	}
	return sig, nil
}

// Bytes returns [R || S || V] with V in the {27, 28} form.
func (s Signature) Bytes() []byte {
	b := make([]byte, SignatureLength)
	copy(b, s.R[:])
	copy(b[32:], s.S[:])
	b[64] = s.V
	return b
}

// RecoveryBytes returns [R || S || V] with V in the {0, 1} form expected by
// the secp256k1 recovery functions.
func (s Signature) RecoveryBytes() ([]byte, error) {
	if s.V != 27 && s.V != 28 {
		return nil, errors.New("invalid signature recovery id")
	}
	b := s.Bytes()
	b[64] -= 27
	return b, nil
}

func (s Signature) String() string {
	return hexutil.Encode(s.Bytes())
}

func (s Signature) MarshalText() ([]byte, error) {
	return hexutil.Bytes(s.Bytes()).MarshalText()
}

func (s *Signature) UnmarshalText(src []byte) error {
	var b hexutil.Bytes
	if err := b.UnmarshalText(src); err != nil {
		return err
	}
	sig, err := SignatureFromBytes(b)
	if err != nil {
		return err
	}
	*s = sig
	return nil
}
