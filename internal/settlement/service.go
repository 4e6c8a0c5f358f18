package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Arcturus91/travel-divider/internal/expense"
	"github.com/Arcturus91/travel-divider/internal/expense/split"
	"github.com/Arcturus91/travel-divider/internal/roster"
	"github.com/Arcturus91/travel-divider/pkg/metrics"
)

var ErrParticipantNotFound = errors.New("participant has no expenses")

// ExpenseLister is satisfied by *expense.Service.
type ExpenseLister interface {
	ListAll(ctx context.Context, tripID *string) ([]*expense.Expense, error)
}

// RosterLister is satisfied by *roster.Service.
type RosterLister interface {
	List() ([]roster.Participant, error)
}

// Service computes settlement plans from the stored expenses
type Service struct {
	expenses ExpenseLister
	roster   RosterLister
	logger   *slog.Logger
}

func NewService(expenses ExpenseLister, roster RosterLister, logger *slog.Logger) *Service {
	return &Service{expenses: expenses, roster: roster, logger: logger}
}

// Report settles every expense of the trip, or all expenses when tripID
// is nil.
func (s *Service) Report(ctx context.Context, tripID *string) (*Report, error) {
	expenses, err := s.expenses.ListAll(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	participants, err := s.roster.List()
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	members := make([]Member, len(participants))
	for i, p := range participants {
		members[i] = Member{ID: p.ID, Name: p.Name}
	}

	report := Settle(expenses, members)
	if report.Unattributed > 0 {
		s.logger.Debug("expenses without payer left out of settlement", "count", report.Unattributed)
	}
	for _, plan := range report.Plans {
		metrics.SettlementPayments.Observe(float64(len(plan.Payments)))
	}
	return report, nil
}

// Balances describes where one participant stands in every currency they
// took part in.
func (s *Service) Balances(ctx context.Context, tripID *string, name string) ([]BalanceResponse, error) {
	report, err := s.Report(ctx, tripID)
	if err != nil {
		return nil, err
	}

	name = split.FormatName(name)
	balances := []BalanceResponse{}
	for _, plan := range report.Plans {
		for _, sum := range plan.Summaries {
			if sum.Name != name || (sum.Paid.IsZero() && sum.Owes.IsZero()) {
				continue
			}
			balances = append(balances, balanceFor(plan, sum))
		}
	}
	if len(balances) == 0 {
		return nil, ErrParticipantNotFound
	}
	return balances, nil
}

func balanceFor(plan Plan, sum ParticipantSummary) BalanceResponse {
	b := BalanceResponse{
		ParticipantID: sum.ParticipantID,
		Name:          sum.Name,
		Currency:      plan.Currency,
		Paid:          sum.Paid,
		Owes:          sum.Owes,
		NetAmount:     sum.NetAmount,
		Payments:      []Payment{},
		Messages:      []string{},
	}
	for _, p := range plan.Payments {
		switch sum.ParticipantID {
		case p.From:
			b.Payments = append(b.Payments, p)
			b.Messages = append(b.Messages, fmt.Sprintf("You owe %s %s %s", p.ToName, split.Format(p.Amount), plan.Currency))
		case p.To:
			b.Payments = append(b.Payments, p)
			b.Messages = append(b.Messages, fmt.Sprintf("%s owes you %s %s", p.FromName, split.Format(p.Amount), plan.Currency))
		}
	}
	if len(b.Messages) == 0 {
		b.Messages = append(b.Messages, "You are settled up")
	}
	return b
}
