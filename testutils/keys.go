package testutils

import (
	"crypto/rand"
	"testing"

	"github.com/alphabill-org/alphabill-bridge-base/crypto"
	"github.com/alphabill-org/alphabill-bridge-base/types"
)

// Keys of the accounts used in the end to end scenarios.
const (
	OperatorKey = "0x23ac17b9c3590a8e67a1d1231ebab87dd2d3389d2f1526f842fd1326a0990f42"
	CustomerKey = "0xe1743f0184b85ac1412311be9d6e5d333df23e22efdf615d0135ca2b9ed67938"
)

func NewSigner(t *testing.T) *crypto.PrivateKeySigner {
	t.Helper()
	s, err := crypto.GenerateSigner()
	if err != nil {
		t.Fatal("failed to generate signer:", err)
	}
	return s
}

func SignerFromHex(t *testing.T, key string) *crypto.PrivateKeySigner {
	t.Helper()
	s, err := crypto.SignerFromHex(key)
	if err != nil {
		t.Fatal("failed to create signer:", err)
	}
	return s
}

func RandomAddress(t *testing.T) types.Address {
	t.Helper()
	var a types.Address
	if _, err := rand.Read(a[:]); err != nil {
		t.Fatal("failed to generate address:", err)
	}
	return a
}

// SignBatch returns the signer's signature of the tickets starting at "start".
func SignBatch(t *testing.T, signer crypto.Signer, start uint64, tickets []types.Ticket) types.Signature {
	t.Helper()
	sig, err := crypto.SignBatch(signer, start, tickets)
	if err != nil {
		t.Fatal("failed to sign batch:", err)
	}
	return sig
}
