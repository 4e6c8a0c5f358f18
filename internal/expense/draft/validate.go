package draft

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Arcturus91/travel-divider/internal/expense/split"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingFields       = errors.New("please fill in all required fields")
	ErrInvalidAmount       = errors.New("please enter a valid amount")
	ErrNoValidParticipants = errors.New("please add at least one participant with name and amount")
	ErrAllocationMismatch  = errors.New("total allocations must equal total amount")
)

// Submission is a draft that passed validation.
type Submission struct {
	Description string
	TotalAmount decimal.Decimal
	Currency    string
	IsShared    bool
	PaidBy      string
	Category    string
	Allocations []split.SplitOutput
}

// IsValidation reports whether err is a submission validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingFields) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNoValidParticipants) ||
		errors.Is(err, ErrAllocationMismatch)
}

// Validate runs the submission checks in order and stops at the first
// failure. Participants missing a name or an amount are left out of the
// returned allocations.
func Validate(description, amount string, participants []Participant) (decimal.Decimal, []split.SplitOutput, error) {
	if strings.TrimSpace(description) == "" || strings.TrimSpace(amount) == "" {
		return decimal.Zero, nil, ErrMissingFields
	}

	total, ok := split.ParseAmount(amount)
	if !ok || !total.IsPositive() {
		return decimal.Zero, nil, ErrInvalidAmount
	}
	total = split.Round(total)

	allocations := make([]split.SplitOutput, 0, len(participants))
	allocated := decimal.Zero
	for _, p := range participants {
		name := split.FormatName(p.Name)
		if name == "" || strings.TrimSpace(p.Amount) == "" {
			continue
		}
		value, ok := split.ParseAmount(p.Amount)
		if !ok || value.IsNegative() {
			return decimal.Zero, nil, fmt.Errorf("%w for %s", ErrInvalidAmount, name)
		}
		value = split.Round(value)
		allocated = allocated.Add(value)
		allocations = append(allocations, split.SplitOutput{Name: name, Amount: value})
	}
	if len(allocations) == 0 {
		return decimal.Zero, nil, ErrNoValidParticipants
	}

	if !allocated.Equal(total) {
		return decimal.Zero, nil, fmt.Errorf("%w: allocations %s, total %s",
			ErrAllocationMismatch, split.Format(allocated), split.Format(total))
	}
	return total, allocations, nil
}
