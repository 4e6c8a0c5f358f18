package settlement

import (
	"slices"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Arcturus91/travel-divider/internal/expense"
	"github.com/Arcturus91/travel-divider/internal/expense/split"
)

var cent = decimal.New(1, -split.Places)

// BuildSummaries totals what every participant paid and owes. Members seed
// the result in order with zero balances; names only found in expenses are
// appended in the order they first appear. The payer of an expense is
// credited with its total and every allocation is owed by its participant.
// Expenses without a payer are skipped.
func BuildSummaries(expenses []*expense.Expense, members []Member) []ParticipantSummary {
	summaries := make([]ParticipantSummary, 0, len(members))
	index := make(map[string]int, len(members))

	lookup := func(name string) *ParticipantSummary {
		if i, ok := index[name]; ok {
			return &summaries[i]
		}
		index[name] = len(summaries)
		summaries = append(summaries, ParticipantSummary{ParticipantID: name, Name: name})
		return &summaries[len(summaries)-1]
	}

	for _, m := range members {
		name := split.FormatName(m.Name)
		if name == "" {
			continue
		}
		if _, ok := index[name]; ok {
			continue
		}
		index[name] = len(summaries)
		summaries = append(summaries, ParticipantSummary{ParticipantID: m.ID, Name: name})
	}

	for _, e := range expenses {
		if e.PaidBy == nil || *e.PaidBy == "" {
			continue
		}
		payer := lookup(*e.PaidBy)
		payer.Paid = payer.Paid.Add(e.TotalAmount)
		for _, a := range e.Allocations {
			p := lookup(a.Name)
			p.Owes = p.Owes.Add(a.Amount)
		}
	}

	for i := range summaries {
		summaries[i].NetAmount = summaries[i].Paid.Sub(summaries[i].Owes)
	}
	return summaries
}

type balance struct {
	id     string
	name   string
	amount decimal.Decimal
}

// OptimizePayments turns net balances into transfers with a greedy match of
// the largest debtor against the largest creditor. Balances under a cent
// count as settled. The result has at most n-1 payments and summaries is
// not modified.
func OptimizePayments(summaries []ParticipantSummary) []Payment {
	balances := make([]balance, len(summaries))
	for i, s := range summaries {
		balances[i] = balance{id: s.ParticipantID, name: s.Name, amount: s.NetAmount}
	}
	slices.SortStableFunc(balances, func(a, b balance) int {
		return a.amount.Cmp(b.amount)
	})

	payments := []Payment{}
	i, j := 0, len(balances)-1
	for i < j {
		debtor, creditor := &balances[i], &balances[j]
		if debtor.amount.Abs().LessThan(cent) {
			i++
			continue
		}
		if creditor.amount.Abs().LessThan(cent) {
			j--
			continue
		}
		if !debtor.amount.IsNegative() || !creditor.amount.IsPositive() {
			break
		}

		amount := split.Round(decimal.Min(debtor.amount.Neg(), creditor.amount))
		payments = append(payments, Payment{
			From:     debtor.id,
			To:       creditor.id,
			FromName: debtor.name,
			ToName:   creditor.name,
			Amount:   amount,
		})
		debtor.amount = debtor.amount.Add(amount)
		creditor.amount = creditor.amount.Sub(amount)

		if debtor.amount.Abs().LessThan(cent) {
			i++
		}
		if creditor.amount.Abs().LessThan(cent) {
			j--
		}
	}
	return payments
}

// Settle groups expenses by currency and builds a plan for each. Amounts
// in different currencies are never netted against each other.
func Settle(expenses []*expense.Expense, members []Member) *Report {
	report := &Report{Plans: []Plan{}, ExpenseCount: len(expenses)}

	byCurrency := map[string][]*expense.Expense{}
	for _, e := range expenses {
		if e.PaidBy == nil || *e.PaidBy == "" {
			report.Unattributed++
			continue
		}
		byCurrency[e.Currency] = append(byCurrency[e.Currency], e)
	}

	currencies := make([]string, 0, len(byCurrency))
	for c := range byCurrency {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	for _, c := range currencies {
		group := byCurrency[c]
		total := decimal.Zero
		for _, e := range group {
			total = total.Add(e.TotalAmount)
		}
		summaries := BuildSummaries(group, members)
		report.Plans = append(report.Plans, Plan{
			Currency:     c,
			Total:        total,
			ExpenseCount: len(group),
			Summaries:    summaries,
			Payments:     OptimizePayments(summaries),
		})
	}
	return report
}
