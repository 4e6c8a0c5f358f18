package split

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SplitType defines the type of split strategy
type SplitType string

const (
	SplitTypeEqual      SplitType = "EQUAL"
	SplitTypePercentage SplitType = "PERCENTAGE"
	SplitTypeExact      SplitType = "EXACT"
)

// Places is the number of decimal places money is kept at.
const Places = 2

// SplitInput represents a participant in a split with optional values
type SplitInput struct {
	Name       string           `json:"name"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"` // For PERCENTAGE split
	Amount     *decimal.Decimal `json:"amount,omitempty"`     // For EXACT split
}

// SplitOutput is one participant's share of an expense.
type SplitOutput struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Strategy is the interface that all split strategies must implement
type Strategy interface {
	// Calculate computes the share of every participant. The shares always
	// sum to exactly totalAmount.
	Calculate(totalAmount decimal.Decimal, participants []SplitInput) ([]SplitOutput, error)

	Type() SplitType

	Validate(totalAmount decimal.Decimal, participants []SplitInput) error
}

// Factory creates split strategies based on the requested type
type Factory struct{}

func NewSplitStrategyFactory() *Factory {
	return &Factory{}
}

// Create returns the appropriate strategy implementation based on the type
func (f *Factory) Create(splitType SplitType) (Strategy, error) {
	switch splitType {
	case SplitTypeEqual:
		return &EqualStrategy{}, nil
	case SplitTypePercentage:
		return &PercentageStrategy{}, nil
	case SplitTypeExact:
		return &ExactStrategy{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSplitType, splitType)
	}
}

// CreateFromString accepts the type case-insensitively, as sent by API clients.
func (f *Factory) CreateFromString(splitType string) (Strategy, error) {
	return f.Create(SplitType(strings.ToUpper(strings.TrimSpace(splitType))))
}

var (
	ErrUnknownSplitType     = errors.New("unknown split type")
	ErrNoParticipants       = errors.New("at least one participant is required")
	ErrInvalidPercentages   = errors.New("percentages must sum to 100")
	ErrInvalidExactAmounts  = errors.New("exact amounts must sum to total amount")
	ErrNegativeAmount       = errors.New("amounts cannot be negative")
	ErrMissingPercentage    = errors.New("percentage value required for all participants")
	ErrMissingExactAmount   = errors.New("exact amount required for all participants")
	ErrPercentageOutOfRange = errors.New("percentage must be between 0 and 100")
)

var hundred = decimal.NewFromInt(100)

// Round rounds a money value to cents, half away from zero.
func Round(value decimal.Decimal) decimal.Decimal {
	return value.Round(Places)
}

// ParseAmount parses user-typed money text. Blank or non-numeric text
// reports ok=false.
func ParseAmount(raw string) (value decimal.Decimal, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// Format renders a money value with exactly two decimals.
func Format(value decimal.Decimal) string {
	return value.StringFixed(Places)
}

func sum(outputs []SplitOutput) decimal.Decimal {
	total := decimal.Zero
	for _, o := range outputs {
		total = total.Add(o.Amount)
	}
	return total
}
