package settlement

import "github.com/shopspring/decimal"

// Member is a roster entry as the calculator sees it.
type Member struct {
	ID   string
	Name string
}

// ParticipantSummary is one participant's position in a currency.
// Positive NetAmount means the participant is owed money.
type ParticipantSummary struct {
	ParticipantID string          `json:"participant_id"`
	Name          string          `json:"name"`
	Paid          decimal.Decimal `json:"paid"`
	Owes          decimal.Decimal `json:"owes"`
	NetAmount     decimal.Decimal `json:"net_amount"`
}

// Payment is one transfer that moves balances toward zero. From and To are
// participant ids, matching ParticipantSummary.ParticipantID.
type Payment struct {
	From     string          `json:"from"`
	To       string          `json:"to"`
	FromName string          `json:"from_name"`
	ToName   string          `json:"to_name"`
	Amount   decimal.Decimal `json:"amount"`
}

// Plan settles the expenses of one currency.
type Plan struct {
	Currency     string               `json:"currency"`
	Total        decimal.Decimal      `json:"total"`
	ExpenseCount int                  `json:"expense_count"`
	Summaries    []ParticipantSummary `json:"summaries"`
	Payments     []Payment            `json:"payments"`
}

// Report holds one plan per currency, ordered by currency code.
type Report struct {
	Plans        []Plan `json:"plans"`
	ExpenseCount int    `json:"expense_count"`
	// Unattributed counts expenses without a payer. They are left out of
	// every plan.
	Unattributed int `json:"unattributed_count"`
}

// Plan returns the plan for currency, or nil.
func (r *Report) Plan(currency string) *Plan {
	for i := range r.Plans {
		if r.Plans[i].Currency == currency {
			return &r.Plans[i]
		}
	}
	return nil
}
