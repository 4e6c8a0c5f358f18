package expense

import (
	"time"

	"github.com/Arcturus91/travel-divider/internal/expense/split"
	"github.com/shopspring/decimal"
)

const DefaultCategory = "Uncategorized"

// Expense represents an expense in the system
type Expense struct {
	ID              string          `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Description     string          `json:"description"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Currency        string          `json:"currency"`
	IsShared        bool            `json:"is_shared"`
	PaidBy          *string         `json:"paid_by,omitempty"`
	Allocations     []Allocation    `json:"allocations"`
	ReceiptImageKey *string         `json:"receipt_image_key,omitempty"`
	Category        string          `json:"category"`
	TripID          *string         `json:"trip_id,omitempty"`
}

// Allocation is one participant's owed share of an expense.
type Allocation struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Split is an allocation together with its share of the total.
type Split struct {
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Splits derives the percentage view of the allocations.
func (e *Expense) Splits() []Split {
	splits := make([]Split, len(e.Allocations))
	for i, a := range e.Allocations {
		pct := decimal.Zero
		if e.TotalAmount.IsPositive() {
			pct = a.Amount.Div(e.TotalAmount).Mul(decimal.NewFromInt(100)).Round(split.Places)
		}
		splits[i] = Split{Name: a.Name, Amount: a.Amount, Percentage: pct}
	}
	return splits
}

// Allocated sums the allocations.
func (e *Expense) Allocated() decimal.Decimal {
	total := decimal.Zero
	for _, a := range e.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// Participants lists allocation names in order.
func (e *Expense) Participants() []string {
	names := make([]string, len(e.Allocations))
	for i, a := range e.Allocations {
		names[i] = a.Name
	}
	return names
}

// AllocationParticipant is used when creating an expense with splits
type AllocationParticipant struct {
	Name       string           `json:"name"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"` // For PERCENTAGE split
	Amount     *decimal.Decimal `json:"amount,omitempty"`     // For EXACT split
}

func (p *AllocationParticipant) ToSplitInput() split.SplitInput {
	return split.SplitInput{
		Name:       p.Name,
		Percentage: p.Percentage,
		Amount:     p.Amount,
	}
}
