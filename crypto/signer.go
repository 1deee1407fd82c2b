package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alphabill-org/alphabill-bridge-base/types"
)

// Signer signs 32 byte message hashes using the personal message convention,
// ie the signed digest is keccak256("\x19Ethereum Signed Message:\n32" || hash).
type Signer interface {
	Address() types.Address
	SignHash(hash []byte) (types.Signature, error)
}

type PrivateKeySigner struct {
	key  *ecdsa.PrivateKey
	addr types.Address
}

func NewSigner(key *ecdsa.PrivateKey) (*PrivateKeySigner, error) {
	if key == nil {
		return nil, fmt.Errorf("private key is nil")
	}
	return &PrivateKeySigner{key: key, addr: ethcrypto.PubkeyToAddress(key.PublicKey)}, nil
}

// GenerateSigner creates a signer with a new random secp256k1 key.
func GenerateSigner() (*PrivateKeySigner, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return NewSigner(key)
}

// SignerFromHex creates a signer from hex encoded private key, the "0x"
// prefix is optional.
func SignerFromHex(hexKey string) (*PrivateKeySigner, error) {
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	return NewSigner(key)
}

func (s *PrivateKeySigner) Address() types.Address {
	return s.addr
}

func (s *PrivateKeySigner) SignHash(hash []byte) (types.Signature, error) {
	if len(hash) != 32 {
		return types.Signature{}, fmt.Errorf("invalid hash length %d, expected 32", len(hash))
	}
	sig, err := ethcrypto.Sign(accounts.TextHash(hash), s.key)
	if err != nil {
		return types.Signature{}, fmt.Errorf("signing hash: %w", err)
	}
	return types.SignatureFromBytes(sig)
}

// SignBatch signs the canonical hash of the batch of tickets starting at
// nonce "start".
func SignBatch(signer Signer, start uint64, tickets []types.Ticket) (types.Signature, error) {
	h, err := types.BatchHash(start, tickets)
	if err != nil {
		return types.Signature{}, fmt.Errorf("hashing batch: %w", err)
	}
	return signer.SignHash(h)
}

// NewSignedBatch returns relay message of the batch signed by signer.
func NewSignedBatch(signer Signer, start uint64, tickets []types.Ticket) (*types.SignedBatch, error) {
	sig, err := SignBatch(signer, start, tickets)
	if err != nil {
		return nil, err
	}
	return &types.SignedBatch{
		Version:    1,
		StartNonce: start,
		Tickets:    tickets,
		Signature:  sig,
	}, nil
}
