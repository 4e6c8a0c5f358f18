package split

import "github.com/shopspring/decimal"

// PercentageStrategy divides the expense based on the percentage each
// participant carries.
type PercentageStrategy struct{}

func (s *PercentageStrategy) Type() SplitType {
	return SplitTypePercentage
}

func (s *PercentageStrategy) Validate(totalAmount decimal.Decimal, participants []SplitInput) error {
	if len(participants) == 0 {
		return ErrNoParticipants
	}
	if totalAmount.IsNegative() {
		return ErrNegativeAmount
	}

	totalPercentage := decimal.Zero
	for _, p := range participants {
		if p.Percentage == nil {
			return ErrMissingPercentage
		}
		if p.Percentage.IsNegative() || p.Percentage.GreaterThan(hundred) {
			return ErrPercentageOutOfRange
		}
		totalPercentage = totalPercentage.Add(*p.Percentage)
	}

	// 33.33 + 33.33 + 33.33 is accepted.
	if totalPercentage.Sub(hundred).Abs().GreaterThan(decimal.New(1, -2)) {
		return ErrInvalidPercentages
	}
	return nil
}

// Calculate rounds every share to cents and lets the last participant absorb
// whatever the rounding left over.
func (s *PercentageStrategy) Calculate(totalAmount decimal.Decimal, participants []SplitInput) ([]SplitOutput, error) {
	if err := s.Validate(totalAmount, participants); err != nil {
		return nil, err
	}

	outputs := make([]SplitOutput, len(participants))
	for i, p := range participants {
		outputs[i] = SplitOutput{
			Name:   p.Name,
			Amount: Round(totalAmount.Mul(*p.Percentage).Div(hundred)),
		}
	}

	difference := Round(totalAmount).Sub(sum(outputs))
	if !difference.IsZero() {
		last := len(outputs) - 1
		outputs[last].Amount = outputs[last].Amount.Add(difference)
	}
	return outputs, nil
}
