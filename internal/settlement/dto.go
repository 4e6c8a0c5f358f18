package settlement

import "github.com/shopspring/decimal"

// BalanceResponse is one participant's position in a single currency.
type BalanceResponse struct {
	ParticipantID string          `json:"participant_id"`
	Name          string          `json:"name"`
	Currency      string          `json:"currency"`
	Paid          decimal.Decimal `json:"paid"`
	Owes          decimal.Decimal `json:"owes"`
	NetAmount     decimal.Decimal `json:"net_amount"`
	Payments      []Payment       `json:"payments"`
	Messages      []string        `json:"messages"` // e.g. "You owe Ana 12.50 EUR" or "Ben owes you 3.00 EUR"
}
