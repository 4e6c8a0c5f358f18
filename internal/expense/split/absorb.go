package split

import "github.com/shopspring/decimal"

// AbsorberIndex picks the participant that soaks up a manual edit at index
// edited: the next one, wrapping around. ok is false when that would be the
// edited participant itself, which happens with a single participant.
func AbsorberIndex(n, edited int) (index int, ok bool) {
	if n <= 0 || edited < 0 || edited >= n {
		return 0, false
	}
	index = (edited + 1) % n
	return index, index != edited
}

// Absorb returns the amount the absorber must carry so that all amounts add
// up to total, floored at zero. amounts holds every participant's current
// value with unparsable ones already treated as zero.
func Absorb(total decimal.Decimal, amounts []decimal.Decimal, absorber int) decimal.Decimal {
	others := decimal.Zero
	for i, a := range amounts {
		if i == absorber {
			continue
		}
		others = others.Add(a)
	}
	remaining := Round(total.Sub(others))
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// AbsorbRemainder combines AbsorberIndex and Absorb for a manual edit at
// index edited. ok is false when no participant can absorb the edit.
func AbsorbRemainder(total decimal.Decimal, amounts []decimal.Decimal, edited int) (index int, amount decimal.Decimal, ok bool) {
	index, ok = AbsorberIndex(len(amounts), edited)
	if !ok {
		return 0, decimal.Zero, false
	}
	return index, Absorb(total, amounts, index), true
}
