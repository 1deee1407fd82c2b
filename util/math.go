package util

import "math"

// AddUint64 returns the sum of ns, ok is false when the sum overflows.
func AddUint64(ns ...uint64) (sum uint64, ok bool) {
	for _, n := range ns {
		if sum, ok = SafeAdd(sum, n); !ok {
			return 0, false
		}
	}
	return sum, true
}

// SumOf returns the sum of values extracted from the elements of s.
func SumOf[S ~[]E, E any](s S, value func(E) uint64) (uint64, bool) {
	return AddUint64(TransformSlice(s, value)...)
}

// SafeAdd returns a+b and checks for overflow
func SafeAdd(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// SafeSub returns a-b, ok is false when b is greater than a.
func SafeSub(a, b uint64) (uint64, bool) {
	if a < b {
		return 0, false
	}
	return a - b, true
}
