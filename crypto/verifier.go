package crypto

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alphabill-org/alphabill-bridge-base/types"
)

// Verifier recovers the address which signed the hash using the personal
// message convention.
type Verifier interface {
	RecoverSigner(hash []byte, sig types.Signature) (types.Address, error)
}

// Secp256k1Verifier is the default, stateless, Verifier.
type Secp256k1Verifier struct{}

func (Secp256k1Verifier) RecoverSigner(hash []byte, sig types.Signature) (types.Address, error) {
	if len(hash) != 32 {
		return types.Address{}, fmt.Errorf("invalid hash length %d, expected 32", len(hash))
	}
	rb, err := sig.RecoveryBytes()
	if err != nil {
		return types.Address{}, err
	}
	r := new(big.Int).SetBytes(sig.R[:])
	s := new(big.Int).SetBytes(sig.S[:])
	// high s values are rejected so that signatures are not malleable
	if !ethcrypto.ValidateSignatureValues(rb[64], r, s, true) {
		return types.Address{}, errors.New("invalid signature values")
	}
	pub, err := ethcrypto.SigToPub(accounts.TextHash(hash), rb)
	if err != nil {
		return types.Address{}, fmt.Errorf("recovering public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// VerifySigner checks that sig over hash was created by "expected".
// Returned error wraps types.ErrBadSignature.
func VerifySigner(v Verifier, hash []byte, sig types.Signature, expected types.Address) error {
	signer, err := v.RecoverSigner(hash, sig)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrBadSignature, err)
	}
	if signer != expected {
		return fmt.Errorf("%w: signed by %s, expected %s", types.ErrBadSignature, signer, expected)
	}
	return nil
}

// VerifyBatch checks that the tickets starting from nonce "start" were signed
// by "expected".
func VerifyBatch(v Verifier, start uint64, tickets []types.Ticket, sig types.Signature, expected types.Address) error {
	h, err := types.BatchHash(start, tickets)
	if err != nil {
		return fmt.Errorf("hashing batch: %w", err)
	}
	return VerifySigner(v, h, sig, expected)
}
