package expense

import (
	"github.com/Arcturus91/travel-divider/internal/expense/draft"
	"github.com/shopspring/decimal"
)

// CreateExpenseRequest represents the request to create an expense.
// SplitType selects how allocations are computed: EQUAL ignores the given
// amounts, PERCENTAGE derives them from percentages and EXACT keeps them.
// When empty it follows IsShared.
type CreateExpenseRequest struct {
	Description     string                   `json:"description"`
	TotalAmount     *decimal.Decimal         `json:"total_amount"`
	Currency        string                   `json:"currency"`
	IsShared        bool                     `json:"is_shared"`
	SplitType       string                   `json:"split_type,omitempty"`
	PaidBy          *string                  `json:"paid_by,omitempty"`
	Allocations     []*AllocationParticipant `json:"allocations"`
	ReceiptImageKey *string                  `json:"receipt_image_key,omitempty"`
	Category        *string                  `json:"category,omitempty"`
	TripID          *string                  `json:"trip_id,omitempty"`
}

// UpdateExpenseRequest carries the fields to change. Nil fields are kept.
type UpdateExpenseRequest struct {
	Description     *string                  `json:"description,omitempty"`
	TotalAmount     *decimal.Decimal         `json:"total_amount,omitempty"`
	Currency        *string                  `json:"currency,omitempty"`
	IsShared        *bool                    `json:"is_shared,omitempty"`
	PaidBy          *string                  `json:"paid_by,omitempty"`
	Allocations     []*AllocationParticipant `json:"allocations,omitempty"`
	ReceiptImageKey *string                  `json:"receipt_image_key,omitempty"`
	Category        *string                  `json:"category,omitempty"`
	TripID          *string                  `json:"trip_id,omitempty"`
}

// RedistributeRequest applies one edit to a draft.
type RedistributeRequest struct {
	Draft  *draft.Draft `json:"draft,omitempty"`
	Action draft.Action `json:"action"`
}

type ExpenseResponse struct {
	ID              string          `json:"id"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
	Description     string          `json:"description"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Currency        string          `json:"currency"`
	IsShared        bool            `json:"is_shared"`
	PaidBy          *string         `json:"paid_by,omitempty"`
	Allocations     []Allocation    `json:"allocations"`
	Splits          []Split         `json:"splits"`
	ReceiptImageKey *string         `json:"receipt_image_key,omitempty"`
	Category        string          `json:"category"`
	TripID          *string         `json:"trip_id,omitempty"`
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// ToResponse converts an Expense model to an ExpenseResponse DTO
func (e *Expense) ToResponse() *ExpenseResponse {
	allocations := e.Allocations
	if allocations == nil {
		allocations = []Allocation{}
	}
	return &ExpenseResponse{
		ID:              e.ID,
		CreatedAt:       e.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:       e.UpdatedAt.UTC().Format(timeLayout),
		Description:     e.Description,
		TotalAmount:     e.TotalAmount,
		Currency:        e.Currency,
		IsShared:        e.IsShared,
		PaidBy:          e.PaidBy,
		Allocations:     allocations,
		Splits:          e.Splits(),
		ReceiptImageKey: e.ReceiptImageKey,
		Category:        e.Category,
		TripID:          e.TripID,
	}
}

// FromSubmission maps a validated draft onto a create request.
func FromSubmission(sub *draft.Submission) *CreateExpenseRequest {
	total := sub.TotalAmount
	req := &CreateExpenseRequest{
		Description: sub.Description,
		TotalAmount: &total,
		Currency:    sub.Currency,
		IsShared:    sub.IsShared,
		SplitType:   "EXACT",
		Allocations: make([]*AllocationParticipant, len(sub.Allocations)),
	}
	for i, a := range sub.Allocations {
		amount := a.Amount
		req.Allocations[i] = &AllocationParticipant{Name: a.Name, Amount: &amount}
	}
	if sub.PaidBy != "" {
		paidBy := sub.PaidBy
		req.PaidBy = &paidBy
	}
	if sub.Category != "" {
		category := sub.Category
		req.Category = &category
	}
	return req
}
