package engine

import "math"

// Checked arithmetic. Accumulations in the engine must never wrap silently;
// an overflow aborts the whole operation.

func addU64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrMathOverflow
	}
	return a + b, nil
}

func subU64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrMathOverflow
	}
	return a - b, nil
}

func mulU64(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, ErrMathOverflow
	}
	return a * b, nil
}

func addU32(a, b uint32) (uint32, error) {
	if a > math.MaxUint32-b {
		return 0, ErrMathOverflow
	}
	return a + b, nil
}

func subU32(a, b uint32) (uint32, error) {
	if b > a {
		return 0, ErrMathOverflow
	}
	return a - b, nil
}
