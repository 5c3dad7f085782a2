package engine

// Prediction types. The selection set is the source of truth; the type is a
// UI/analytics hint preserved on the record.
const (
	TypeSingleNumber uint8 = 0
	TypeTwoNumbers   uint8 = 1
	TypeHighLow      uint8 = 2
	TypeEvenOdd      uint8 = 3
	TypeMultiNumber  uint8 = 4
)

// MaxSelections bounds the selection set of a single prediction.
const MaxSelections = 8

// DeriveSelections maps a prediction type and an encoded choice to the
// canonical selection set and bitmask.
//
// Digit-encoded types (single, two, multi) treat the decimal digits of
// choice as the selected numbers: 3 -> [3], 37 -> [3,7], 7895 -> [5,7,8,9]
// (canonicalized ascending). Digits must be 1..9, unique, and must not equal
// the blocked number.
//
// Derived types interpret choice as a mode over the eligible set
// {1..9} \ {blocked}: HighLow 0=low (first 4) / 1=high (last 4), EvenOdd
// 0=even / 1=odd.
func DeriveSelections(predictionType uint8, choice uint32, blocked uint8) (uint8, [MaxSelections]uint8, uint16, error) {
	var out [MaxSelections]uint8

	// The blocked number must be a real number 1..9. A pool whose blocked
	// number is still 0 (disabled) is not accepting selections yet.
	if blocked < 1 || blocked > 9 {
		return 0, out, 0, ErrInvalidSelection
	}

	// Build eligible numbers: 1..9 excluding blocked. Always exactly 8.
	eligible := make([]uint8, 0, 8)
	for n := uint8(1); n <= 9; n++ {
		if n == blocked {
			continue
		}
		eligible = append(eligible, n)
	}

	var count uint8

	switch predictionType {
	case TypeSingleNumber:
		c, arr, mask, err := decodeChoiceDigits(choice, blocked)
		if err != nil {
			return 0, out, 0, err
		}
		if c != 1 {
			return 0, out, 0, ErrInvalidSelection
		}
		return c, arr, mask, nil

	case TypeTwoNumbers:
		c, arr, mask, err := decodeChoiceDigits(choice, blocked)
		if err != nil {
			return 0, out, 0, err
		}
		if c != 2 {
			return 0, out, 0, ErrInvalidSelection
		}
		return c, arr, mask, nil

	case TypeMultiNumber:
		c, arr, mask, err := decodeChoiceDigits(choice, blocked)
		if err != nil {
			return 0, out, 0, err
		}
		if c < 3 || c > MaxSelections {
			return 0, out, 0, ErrInvalidSelection
		}
		return c, arr, mask, nil

	case TypeHighLow:
		if choice != 0 && choice != 1 {
			return 0, out, 0, ErrInvalidSelection
		}
		if choice == 0 {
			copy(out[:], eligible[:4]) // LOW = first 4 eligible numbers
		} else {
			copy(out[:], eligible[4:8]) // HIGH = last 4 eligible numbers
		}
		count = 4

	case TypeEvenOdd:
		if choice != 0 && choice != 1 {
			return 0, out, 0, ErrInvalidSelection
		}
		wantOdd := choice == 1
		idx := 0
		for _, v := range eligible {
			if (v%2 == 1) == wantOdd {
				if idx >= MaxSelections {
					return 0, out, 0, ErrInvalidSelection
				}
				out[idx] = v
				idx++
			}
		}
		if idx == 0 {
			return 0, out, 0, ErrInvalidSelection
		}
		count = uint8(idx)

	default:
		return 0, out, 0, ErrInvalidSelection
	}

	// Build mask and validate uniqueness for derived types.
	if count < 1 || count > MaxSelections {
		return 0, out, 0, ErrInvalidSelection
	}
	var mask uint16
	for i := 0; i < int(count); i++ {
		v := out[i]
		if v < 1 || v > 9 || v == blocked {
			return 0, out, 0, ErrInvalidSelection
		}
		bit := uint16(1) << v
		if mask&bit != 0 {
			return 0, out, 0, ErrInvalidSelection
		}
		mask |= bit
	}
	return count, out, mask, nil
}

// decodeChoiceDigits unpacks a digit-encoded choice into a canonical
// ascending selection list and mask.
func decodeChoiceDigits(choice uint32, blocked uint8) (uint8, [MaxSelections]uint8, uint16, error) {
	var out [MaxSelections]uint8

	if choice == 0 {
		return 0, out, 0, ErrInvalidSelection
	}

	var seen [10]bool
	var tmp [MaxSelections]uint8
	var count uint8

	for v := choice; v > 0; v /= 10 {
		d := uint8(v % 10)
		if d < 1 || d > 9 {
			return 0, out, 0, ErrInvalidSelection
		}
		if d == blocked {
			return 0, out, 0, ErrInvalidSelection
		}
		if seen[d] {
			return 0, out, 0, ErrInvalidSelection
		}
		if count >= MaxSelections {
			return 0, out, 0, ErrInvalidSelection
		}
		seen[d] = true
		tmp[count] = d
		count++
	}

	if count < 1 || count > MaxSelections {
		return 0, out, 0, ErrInvalidSelection
	}

	// Canonicalize: ascending order for the active prefix.
	for i := 0; i < int(count); i++ {
		for j := i + 1; j < int(count); j++ {
			if tmp[j] < tmp[i] {
				tmp[i], tmp[j] = tmp[j], tmp[i]
			}
		}
	}

	var mask uint16
	for i := 0; i < int(count); i++ {
		out[i] = tmp[i]
		mask |= uint16(1) << tmp[i]
	}
	return count, out, mask, nil
}
