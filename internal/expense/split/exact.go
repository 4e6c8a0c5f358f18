package split

import "github.com/shopspring/decimal"

// ExactStrategy keeps the amounts the caller typed. They must add up to the
// total to the cent.
type ExactStrategy struct{}

func (s *ExactStrategy) Type() SplitType {
	return SplitTypeExact
}

func (s *ExactStrategy) Validate(totalAmount decimal.Decimal, participants []SplitInput) error {
	if len(participants) == 0 {
		return ErrNoParticipants
	}
	if totalAmount.IsNegative() {
		return ErrNegativeAmount
	}

	totalExact := decimal.Zero
	for _, p := range participants {
		if p.Amount == nil {
			return ErrMissingExactAmount
		}
		if p.Amount.IsNegative() {
			return ErrNegativeAmount
		}
		totalExact = totalExact.Add(Round(*p.Amount))
	}

	if !totalExact.Equal(Round(totalAmount)) {
		return ErrInvalidExactAmounts
	}
	return nil
}

func (s *ExactStrategy) Calculate(totalAmount decimal.Decimal, participants []SplitInput) ([]SplitOutput, error) {
	if err := s.Validate(totalAmount, participants); err != nil {
		return nil, err
	}

	outputs := make([]SplitOutput, len(participants))
	for i, p := range participants {
		outputs[i] = SplitOutput{Name: p.Name, Amount: Round(*p.Amount)}
	}
	return outputs, nil
}
