package expense

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Arcturus91/travel-divider/internal/database"
	"github.com/Arcturus91/travel-divider/internal/expense/draft"
	"github.com/Arcturus91/travel-divider/internal/expense/split"
	"github.com/Arcturus91/travel-divider/internal/notification"
	"github.com/Arcturus91/travel-divider/pkg/metrics"
)

var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrInvalidCurrency = errors.New("currency must be a 3-letter code")
	ErrInvalidSplit    = errors.New("invalid split")
	ErrUnknownTrip     = errors.New("trip does not exist")
	ErrReceiptUpload   = errors.New("failed to upload receipt")
	ErrReceiptOrphaned = errors.New("expense was not saved after its receipt was uploaded")
	ErrReceiptCleanup  = errors.New("failed to delete receipt, expense kept")
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// IsValidation reports whether err rejects the request itself, as opposed
// to a failure of the store or the receipt store.
func IsValidation(err error) bool {
	return draft.IsValidation(err) ||
		errors.Is(err, ErrInvalidCurrency) ||
		errors.Is(err, ErrInvalidSplit) ||
		errors.Is(err, ErrUnknownTrip) ||
		errors.Is(err, split.ErrUnknownSplitType)
}

// Store is the persistence the service needs. *Repository implements it.
type Store interface {
	Create(ctx context.Context, expense *Expense) error
	GetByID(ctx context.Context, id string) (*Expense, error)
	List(ctx context.Context, tripID *string, limit, offset int) ([]*Expense, int, error)
	ListAll(ctx context.Context, tripID *string) ([]*Expense, error)
	Update(ctx context.Context, expense *Expense) error
	Delete(ctx context.Context, id string) error
}

// ReceiptStore keeps receipt images. *receipt.Store implements it.
type ReceiptStore interface {
	Put(ctx context.Context, contentType, fileName string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// Notifier records activity for participants. *notification.Service
// implements it.
type Notifier interface {
	ExpenseAdded(ctx context.Context, ev notification.ExpenseEvent) error
	ExpenseUpdated(ctx context.Context, ev notification.ExpenseEvent) error
	ExpenseDeleted(ctx context.Context, ev notification.ExpenseEvent) error
	ReceiptOrphaned(ctx context.Context, ev notification.ExpenseEvent, cause error) error
}

// TripChecker resolves trip ids. *trip.Service implements it.
type TripChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// ReceiptUpload is a receipt image submitted together with an expense.
type ReceiptUpload struct {
	ContentType string
	FileName    string
	Body        io.Reader
}

// Service handles expense business logic
type Service struct {
	store           Store
	receipts        ReceiptStore
	notifier        Notifier
	splitFactory    *split.Factory
	trips           TripChecker
	minParticipants int
	logger          *slog.Logger
}

func NewService(store Store, receipts ReceiptStore, notifier Notifier, splitFactory *split.Factory, minParticipants int, logger *slog.Logger) *Service {
	return &Service{
		store:           store,
		receipts:        receipts,
		notifier:        notifier,
		splitFactory:    splitFactory,
		minParticipants: minParticipants,
		logger:          logger,
	}
}

// WithTrips makes the service reject expenses that name an unknown trip.
func (s *Service) WithTrips(trips TripChecker) *Service {
	s.trips = trips
	return s
}

// CreateExpense validates and stores an expense without a receipt file.
func (s *Service) CreateExpense(ctx context.Context, req *CreateExpenseRequest) (*Expense, error) {
	return s.SubmitExpense(ctx, req, nil)
}

// SubmitExpense validates the request, uploads the receipt if there is one
// and then persists the expense. Nothing is uploaded or stored for a
// request that fails validation. A receipt uploaded for an expense that
// then fails to persist stays in the receipt store and is reported with
// ErrReceiptOrphaned.
func (s *Service) SubmitExpense(ctx context.Context, req *CreateExpenseRequest, receipt *ReceiptUpload) (*Expense, error) {
	expense, err := s.buildExpense(req)
	if err == nil {
		err = s.checkTrip(ctx, expense.TripID)
	}
	if err != nil {
		s.rejected(err)
		return nil, err
	}

	now := database.Now()
	expense.ID = uuid.New().String()
	expense.CreatedAt = now
	expense.UpdatedAt = now

	if receipt != nil {
		key, err := s.receipts.Put(ctx, receipt.ContentType, receipt.FileName, receipt.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReceiptUpload, err)
		}
		expense.ReceiptImageKey = &key
	}

	if err := s.store.Create(ctx, expense); err != nil {
		if receipt != nil {
			ev := event(expense)
			if nerr := s.notifier.ReceiptOrphaned(ctx, ev, err); nerr != nil {
				s.logger.Error("failed to record orphaned receipt", "key", ev.ReceiptKey, "error", nerr)
			}
			s.logger.Error("receipt orphaned", "key", ev.ReceiptKey, "error", err)
			return nil, fmt.Errorf("%w (receipt %s): %w", ErrReceiptOrphaned, ev.ReceiptKey, err)
		}
		return nil, err
	}

	metrics.ExpensesWritten.WithLabelValues("create").Inc()
	s.notify(ctx, "added", s.notifier.ExpenseAdded, expense)
	return expense, nil
}

func (s *Service) GetExpenseByID(ctx context.Context, id string) (*Expense, error) {
	expense, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, ErrExpenseNotFound
	}
	return expense, nil
}

// ListExpenses returns one page of expenses, optionally for one trip.
func (s *Service) ListExpenses(ctx context.Context, tripID *string, page, perPage int) ([]*Expense, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.store.List(ctx, tripID, perPage, offset)
}

// ListAll returns every expense, oldest first.
func (s *Service) ListAll(ctx context.Context, tripID *string) ([]*Expense, error) {
	return s.store.ListAll(ctx, tripID)
}

// UpdateExpense merges the given fields into the stored expense and
// validates the result like a new submission. A shared expense is split
// equally again over its participants.
func (s *Service) UpdateExpense(ctx context.Context, id string, req *UpdateExpenseRequest) (*Expense, error) {
	existing, err := s.GetExpenseByID(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := mergeUpdate(existing, req)
	expense, err := s.buildExpense(merged)
	if err == nil && req.TripID != nil {
		err = s.checkTrip(ctx, expense.TripID)
	}
	if err != nil {
		s.rejected(err)
		return nil, err
	}
	expense.ID = existing.ID
	expense.CreatedAt = existing.CreatedAt
	expense.UpdatedAt = database.Now()
	if !expense.UpdatedAt.After(existing.UpdatedAt) {
		expense.UpdatedAt = existing.UpdatedAt.Add(time.Microsecond)
	}

	if err := s.store.Update(ctx, expense); err != nil {
		return nil, err
	}

	metrics.ExpensesWritten.WithLabelValues("update").Inc()
	s.notify(ctx, "updated", s.notifier.ExpenseUpdated, expense)
	return expense, nil
}

func mergeUpdate(existing *Expense, req *UpdateExpenseRequest) *CreateExpenseRequest {
	total := existing.TotalAmount
	merged := &CreateExpenseRequest{
		Description:     existing.Description,
		TotalAmount:     &total,
		Currency:        existing.Currency,
		IsShared:        existing.IsShared,
		PaidBy:          existing.PaidBy,
		ReceiptImageKey: existing.ReceiptImageKey,
		Category:        &existing.Category,
		TripID:          existing.TripID,
	}

	if req.Description != nil {
		merged.Description = *req.Description
	}
	if req.TotalAmount != nil {
		merged.TotalAmount = req.TotalAmount
	}
	if req.Currency != nil {
		merged.Currency = *req.Currency
	}
	if req.IsShared != nil {
		merged.IsShared = *req.IsShared
	}
	if req.PaidBy != nil {
		merged.PaidBy = req.PaidBy
	}
	if req.ReceiptImageKey != nil {
		merged.ReceiptImageKey = req.ReceiptImageKey
	}
	if req.Category != nil {
		merged.Category = req.Category
	}
	if req.TripID != nil {
		merged.TripID = req.TripID
	}

	if req.Allocations != nil {
		merged.Allocations = req.Allocations
	} else {
		merged.Allocations = make([]*AllocationParticipant, len(existing.Allocations))
		for i, a := range existing.Allocations {
			amount := a.Amount
			merged.Allocations[i] = &AllocationParticipant{Name: a.Name, Amount: &amount}
		}
	}
	return merged
}

// DeleteExpense removes the receipt object first and then the record. When
// the receipt cannot be removed the expense is kept.
func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	existing, err := s.GetExpenseByID(ctx, id)
	if err != nil {
		return err
	}

	if existing.ReceiptImageKey != nil && *existing.ReceiptImageKey != "" {
		if err := s.receipts.Delete(ctx, *existing.ReceiptImageKey); err != nil {
			return fmt.Errorf("%w: %w", ErrReceiptCleanup, err)
		}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	metrics.ExpensesWritten.WithLabelValues("delete").Inc()
	s.notify(ctx, "deleted", s.notifier.ExpenseDeleted, existing)
	return nil
}

// Redistribute applies one edit to a draft. A nil draft starts a new one.
func (s *Service) Redistribute(d *draft.Draft, action draft.Action) (draft.Draft, error) {
	current := draft.New(s.minParticipants)
	if d != nil {
		current = *d
		if current.MinParticipants <= 0 {
			current.MinParticipants = s.minParticipants
		}
	}
	return draft.Apply(current, action)
}

func (s *Service) checkTrip(ctx context.Context, tripID *string) error {
	if s.trips == nil || tripID == nil {
		return nil
	}
	ok, err := s.trips.Exists(ctx, *tripID)
	if err != nil {
		return fmt.Errorf("failed to look up trip: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTrip, *tripID)
	}
	return nil
}

// buildExpense validates req and computes its allocations. The returned
// expense has no identity yet.
func (s *Service) buildExpense(req *CreateExpenseRequest) (*Expense, error) {
	if strings.TrimSpace(req.Description) == "" || req.TotalAmount == nil {
		return nil, draft.ErrMissingFields
	}
	if !req.TotalAmount.IsPositive() {
		return nil, draft.ErrInvalidAmount
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = draft.DefaultCurrency
	}
	if !currencyPattern.MatchString(currency) {
		return nil, ErrInvalidCurrency
	}

	splitType := split.SplitType(strings.ToUpper(strings.TrimSpace(req.SplitType)))
	if splitType == "" {
		splitType = split.SplitTypeExact
		if req.IsShared {
			splitType = split.SplitTypeEqual
		}
	}
	strategy, err := s.splitFactory.Create(splitType)
	if err != nil {
		return nil, err
	}

	rows, err := allocationRows(strategy, split.Round(*req.TotalAmount), req.Allocations)
	if err != nil {
		return nil, err
	}

	total, outputs, err := draft.Validate(req.Description, req.TotalAmount.String(), rows)
	if err != nil {
		return nil, err
	}

	expense := &Expense{
		Description:     strings.TrimSpace(req.Description),
		TotalAmount:     total,
		Currency:        currency,
		IsShared:        req.IsShared || strategy.Type() == split.SplitTypeEqual,
		Allocations:     make([]Allocation, len(outputs)),
		ReceiptImageKey: nonEmpty(req.ReceiptImageKey),
		Category:        DefaultCategory,
		TripID:          nonEmpty(req.TripID),
	}
	for i, o := range outputs {
		expense.Allocations[i] = Allocation{Name: o.Name, Amount: o.Amount}
	}
	if req.PaidBy != nil {
		if paidBy := split.FormatName(*req.PaidBy); paidBy != "" {
			expense.PaidBy = &paidBy
		}
	}
	if req.Category != nil && strings.TrimSpace(*req.Category) != "" {
		expense.Category = strings.TrimSpace(*req.Category)
	}
	return expense, nil
}

// allocationRows turns request allocations into form rows. EXACT keeps the
// given amounts; the other strategies compute them over the named
// participants.
func allocationRows(strategy split.Strategy, total decimal.Decimal, allocations []*AllocationParticipant) ([]draft.Participant, error) {
	if strategy.Type() == split.SplitTypeExact {
		rows := make([]draft.Participant, 0, len(allocations))
		for _, a := range allocations {
			if a == nil {
				continue
			}
			row := draft.Participant{Name: a.Name}
			if a.Amount != nil {
				row.Amount = a.Amount.String()
			}
			rows = append(rows, row)
		}
		return rows, nil
	}

	inputs := make([]split.SplitInput, 0, len(allocations))
	for _, a := range allocations {
		if a == nil || split.FormatName(a.Name) == "" {
			continue
		}
		inputs = append(inputs, a.ToSplitInput())
	}

	outputs, err := strategy.Calculate(total, inputs)
	if err != nil {
		if errors.Is(err, split.ErrNoParticipants) {
			return nil, draft.ErrNoValidParticipants
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidSplit, err)
	}

	rows := make([]draft.Participant, len(outputs))
	for i, o := range outputs {
		rows[i] = draft.Participant{Name: o.Name, Amount: o.Amount.String()}
	}
	return rows, nil
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func (s *Service) rejected(err error) {
	reason := "other"
	switch {
	case errors.Is(err, draft.ErrMissingFields):
		reason = "missing_fields"
	case errors.Is(err, draft.ErrInvalidAmount):
		reason = "invalid_amount"
	case errors.Is(err, draft.ErrNoValidParticipants):
		reason = "no_participants"
	case errors.Is(err, draft.ErrAllocationMismatch):
		reason = "allocation_mismatch"
	case errors.Is(err, ErrInvalidCurrency):
		reason = "invalid_currency"
	case errors.Is(err, ErrInvalidSplit), errors.Is(err, split.ErrUnknownSplitType):
		reason = "invalid_split"
	case errors.Is(err, ErrUnknownTrip):
		reason = "unknown_trip"
	}
	metrics.ExpenseRejections.WithLabelValues(reason).Inc()
}

// notify records activity without failing the operation that caused it.
func (s *Service) notify(ctx context.Context, what string, fn func(context.Context, notification.ExpenseEvent) error, expense *Expense) {
	if err := fn(ctx, event(expense)); err != nil {
		s.logger.Warn("failed to record activity", "event", what, "expense_id", expense.ID, "error", err)
	}
}

func event(e *Expense) notification.ExpenseEvent {
	ev := notification.ExpenseEvent{
		ExpenseID:   e.ID,
		Description: e.Description,
		Total:       e.TotalAmount,
		Currency:    e.Currency,
		Shares:      make([]notification.Share, len(e.Allocations)),
	}
	for i, a := range e.Allocations {
		ev.Shares[i] = notification.Share{Name: a.Name, Amount: a.Amount}
	}
	if e.PaidBy != nil {
		ev.PaidBy = *e.PaidBy
	}
	if e.ReceiptImageKey != nil {
		ev.ReceiptKey = *e.ReceiptImageKey
	}
	return ev
}
