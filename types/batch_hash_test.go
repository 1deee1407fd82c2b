package types

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestEncodeBatch(t *testing.T) {
	recipient := common.HexToAddress("0x0000000000000000000000000000000000000001")
	token := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	buf, err := EncodeBatch(2, []Ticket{{Value: 100, Recipient: recipient, Token: token}})
	require.NoError(t, err)

	words := []string{
		"0000000000000000000000000000000000000000000000000000000000000020", // offset of the dynamic tuple
		"0000000000000000000000000000000000000000000000000000000000000002", // startNonce
		"0000000000000000000000000000000000000000000000000000000000000040", // offset of the tickets array
		"0000000000000000000000000000000000000000000000000000000000000001", // number of tickets
		"0000000000000000000000000000000000000000000000000000000000000064", // value
		"0000000000000000000000000000000000000000000000000000000000000001", // l1Recipient
		"00000000000000000000000000000000000000000000000000000000000000ff", // token
	}
	require.Equal(t, "0x"+strings.Join(words, ""), hexutil.Encode(buf))
}

func TestBatchHash(t *testing.T) {
	tickets := []Ticket{
		{Value: 1, Recipient: common.HexToAddress("0x2a47Cd5718D67Dc81eAfB24C99d4db159B0e7bCa")},
		{Value: 1, Recipient: common.HexToAddress("0xAAAB35381A38C4fF4967DC29470F0f2637295983")},
	}

	t.Run("hash of the encoding", func(t *testing.T) {
		buf, err := EncodeBatch(0, tickets)
		require.NoError(t, err)
		h, err := BatchHash(0, tickets)
		require.NoError(t, err)
		require.Equal(t, crypto.Keccak256(buf), h)
	})

	t.Run("start nonce is bound", func(t *testing.T) {
		h0, err := BatchHash(0, tickets)
		require.NoError(t, err)
		h1, err := BatchHash(1, tickets)
		require.NoError(t, err)
		require.NotEqual(t, h0, h1)
	})

	t.Run("ticket order matters", func(t *testing.T) {
		h0, err := BatchHash(0, tickets)
		require.NoError(t, err)
		h1, err := BatchHash(0, []Ticket{tickets[1], tickets[0]})
		require.NoError(t, err)
		require.NotEqual(t, h0, h1)
	})

	t.Run("empty batch", func(t *testing.T) {
		h, err := BatchHash(0, nil)
		require.ErrorIs(t, err, ErrInvalidRange)
		require.Nil(t, h)
	})
}
