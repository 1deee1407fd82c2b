package util

import (
	"math/rand"
)

// ShuffleSliceCopy returns shuffled copy of src.
func ShuffleSliceCopy[T any](src []T) []T {
	dst := make([]T, len(src))
	copy(dst, src)
	rand.Shuffle(len(dst), func(i, j int) { dst[i], dst[j] = dst[j], dst[i] })
	return dst
}

/*
TransformSlice processes input slice s by calling the mapper callback for each
element and returning the slice of values returned by the callback.

Used for extracting single field values from slice of records etc.
*/
func TransformSlice[S ~[]E, E any, V any](s S, mapper func(E) V) []V {
	r := make([]V, len(s))
	for i, v := range s {
		r[i] = mapper(v)
	}
	return r
}
