package split

import "github.com/shopspring/decimal"

// EqualStrategy divides an expense equally. Every participant gets the total
// divided by the participant count rounded to cents, and the first
// participant absorbs the rounding remainder so the shares add up exactly.
type EqualStrategy struct{}

func (s *EqualStrategy) Type() SplitType {
	return SplitTypeEqual
}

func (s *EqualStrategy) Validate(totalAmount decimal.Decimal, participants []SplitInput) error {
	if len(participants) == 0 {
		return ErrNoParticipants
	}
	if totalAmount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (s *EqualStrategy) Calculate(totalAmount decimal.Decimal, participants []SplitInput) ([]SplitOutput, error) {
	if err := s.Validate(totalAmount, participants); err != nil {
		return nil, err
	}

	shares := EqualShares(totalAmount, len(participants))
	outputs := make([]SplitOutput, len(participants))
	for i, p := range participants {
		outputs[i] = SplitOutput{Name: p.Name, Amount: shares[i]}
	}
	return outputs, nil
}

// EqualShares returns n shares of total. shares[0] carries the remainder.
// A non-positive n yields no shares.
func EqualShares(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	count := decimal.NewFromInt(int64(n))
	share := Round(total.Div(count))
	remainder := total.Sub(share.Mul(count))

	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = share
	}
	shares[0] = share.Add(remainder)
	return shares
}
