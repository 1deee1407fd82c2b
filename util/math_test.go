package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddUint64(t *testing.T) {
	t.Parallel()

	t.Run("OK", func(t *testing.T) {
		cases := []struct {
			input  []uint64
			result uint64
		}{
			{nil, 0},
			{[]uint64{}, 0},
			{[]uint64{1}, 1},
			{[]uint64{1, 2}, 3},
			{[]uint64{0, 1, 0}, 1},
			{[]uint64{math.MaxUint64, 0}, math.MaxUint64},
			{[]uint64{math.MaxUint64 - 2, 1, 1}, math.MaxUint64},
		}

		for x, tt := range cases {
			sum, ok := AddUint64(tt.input...)
			require.True(t, ok, "case %d", x)
			require.Equal(t, tt.result, sum, "case %d", x)
		}
	})

	t.Run("overflow", func(t *testing.T) {
		cases := [][]uint64{
			{math.MaxUint64, 1},
			{1, math.MaxUint64},
			{1, 1, math.MaxUint64 - 1},
			{math.MaxUint64, math.MaxUint64, math.MaxUint64},
		}

		for x, tt := range cases {
			sum, ok := AddUint64(tt...)
			require.False(t, ok, "case %d", x)
			require.Zero(t, sum)
		}
	})
}

func TestSumOf(t *testing.T) {
	type ticket struct{ value uint64 }
	value := func(t ticket) uint64 { return t.value }

	sum, ok := SumOf([]ticket{{1}, {2}, {3}}, value)
	require.True(t, ok)
	require.EqualValues(t, 6, sum)

	_, ok = SumOf([]ticket{{1}, {math.MaxUint64}}, value)
	require.False(t, ok)
}

func TestSafeAdd(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b   uint64
		result uint64
		ok     bool
	}{
		{0, 0, 0, true},
		{1, 1, 2, true},
		{math.MaxUint32, math.MaxUint32, 0x01_fffffffe, true},
		{math.MaxUint64 - 1, 1, math.MaxUint64, true},
		{math.MaxUint64, 1, 0, false},
		{math.MaxUint64 - 1, 2, 0, false},
		{math.MaxUint64, math.MaxUint64, 0, false},
	}
	for _, tt := range cases {
		result, ok := SafeAdd(tt.a, tt.b)
		require.Equal(t, tt.ok, ok, "%x + %x", tt.a, tt.b)
		require.Equal(t, tt.result, result, "%x + %x", tt.a, tt.b)
	}
}

func TestSafeSub(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b   uint64
		result uint64
		ok     bool
	}{
		{0, 0, 0, true},
		{2, 1, 1, true},
		{math.MaxUint64, math.MaxUint64, 0, true},
		{0, 1, 0, false},
		{math.MaxUint64 - 1, math.MaxUint64, 0, false},
	}
	for _, tt := range cases {
		result, ok := SafeSub(tt.a, tt.b)
		require.Equal(t, tt.ok, ok, "%x - %x", tt.a, tt.b)
		require.Equal(t, tt.result, result, "%x - %x", tt.a, tt.b)
	}
}
