package crypto

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"

	"github.com/alphabill-org/alphabill-bridge-base/types"
)

type recoveryKey struct {
	hash common.Hash
	sig  [types.SignatureLength]byte
}

// CachingVerifier remembers recently recovered signers. The watchtower and
// the destination ledger see the same signed batch repeatedly (relay
// retransmits) and public key recovery is the expensive part of verification.
type CachingVerifier struct {
	v     Verifier
	cache *lru.Cache
}

func NewCachingVerifier(v Verifier, size int) (*CachingVerifier, error) {
	if v == nil {
		v = Secp256k1Verifier{}
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("creating signer cache: %w", err)
	}
	return &CachingVerifier{v: v, cache: cache}, nil
}

func (cv *CachingVerifier) RecoverSigner(hash []byte, sig types.Signature) (types.Address, error) {
	key := recoveryKey{hash: common.BytesToHash(hash)}
	copy(key.sig[:], sig.Bytes())
	if len(hash) == common.HashLength {
		if addr, ok := cv.cache.Get(key); ok {
			return addr.(types.Address), nil
		}
	}
	addr, err := cv.v.RecoverSigner(hash, sig)
	if err != nil {
		return types.Address{}, err
	}
	cv.cache.Add(key, addr)
	return addr, nil
}

func (cv *CachingVerifier) Len() int {
	return cv.cache.Len()
}
