package engine

// isClaimed reports whether claim index has its bit set in the bitmap.
// Index N lives at byte N/8, bit N%8.
//
// Fail-safe rule: an index outside the bitmap's allocated length is treated
// as already claimed, so invalid indices are never claimable.
func isClaimed(bitmap []byte, index uint32) bool {
	byteIndex := int(index / 8)
	bitIndex := index % 8

	if byteIndex >= len(bitmap) {
		return true
	}
	return bitmap[byteIndex]&(1<<bitIndex) != 0
}

// setClaimed marks the index as claimed. Out-of-range writes are ignored.
func setClaimed(bitmap []byte, index uint32) {
	byteIndex := int(index / 8)
	bitIndex := index % 8

	if byteIndex < len(bitmap) {
		bitmap[byteIndex] |= 1 << bitIndex
	}
}

// bitmapLen returns the bitmap size in bytes for the given winner count.
func bitmapLen(totalWinners uint32) int {
	return (int(totalWinners) + 7) / 8
}
