package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ShuffleSliceCopy(t *testing.T) {
	sample := make([]uint64, 100)
	for i := range sample {
		sample[i] = uint64(i)
	}
	result := ShuffleSliceCopy(sample)
	require.ElementsMatch(t, sample, result)
	require.NotEqual(t, sample, result)
	require.EqualValues(t, 99, sample[99], "source must not be modified")
}

func Test_TransformSlice(t *testing.T) {
	type foo struct {
		name  string
		value int
	}
	pairs := []foo{{"a", 1}, {"c", 3}, {"b", 2}}
	names := TransformSlice(pairs, func(v foo) string { return v.name })
	require.Equal(t, []string{"a", "c", "b"}, names)
}
