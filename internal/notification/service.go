package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Arcturus91/travel-divider/internal/database"
	"github.com/Arcturus91/travel-divider/internal/expense/split"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotRecipient         = errors.New("not the recipient of this notification")
	ErrMissingRecipient     = errors.New("recipient is required")
)

// Service handles notification business logic
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Create records a notification for one participant.
func (s *Service) Create(ctx context.Context, recipient string, kind NotificationType, message string, entityType, entityID *string) (*Notification, error) {
	n := &Notification{
		ID:                uuid.New().String(),
		Recipient:         recipient,
		Type:              kind,
		Message:           message,
		RelatedEntityType: entityType,
		RelatedEntityID:   entityID,
		CreatedAt:         database.Now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}

func (s *Service) ListByRecipient(ctx context.Context, recipient string, page, perPage int, unreadOnly bool) ([]*Notification, int, error) {
	if recipient == "" {
		return nil, 0, ErrMissingRecipient
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByRecipient(ctx, recipient, perPage, offset, unreadOnly)
}

func (s *Service) MarkAsRead(ctx context.Context, id, recipient string) error {
	n, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.Recipient != recipient {
		return ErrNotRecipient
	}
	return s.repo.MarkAsRead(ctx, id)
}

func (s *Service) MarkAllAsRead(ctx context.Context, recipient string) error {
	if recipient == "" {
		return ErrMissingRecipient
	}
	return s.repo.MarkAllAsRead(ctx, recipient)
}

func (s *Service) GetUnreadCount(ctx context.Context, recipient string) (int, error) {
	if recipient == "" {
		return 0, ErrMissingRecipient
	}
	return s.repo.GetUnreadCount(ctx, recipient)
}

// ExpenseAdded tells every participant with a share what they owe.
func (s *Service) ExpenseAdded(ctx context.Context, ev ExpenseEvent) error {
	lead := fmt.Sprintf("New expense %q", ev.Description)
	if ev.PaidBy != "" {
		lead = fmt.Sprintf("%s paid for %q", ev.PaidBy, ev.Description)
	}
	return s.eachShare(ev, func(sh Share) error {
		msg := fmt.Sprintf("%s (%s %s). Your share is %s %s",
			lead, split.Format(ev.Total), ev.Currency, split.Format(sh.Amount), ev.Currency)
		return s.notifyExpense(ctx, sh.Name, NotificationTypeExpenseAdded, msg, ev.ExpenseID)
	})
}

func (s *Service) ExpenseUpdated(ctx context.Context, ev ExpenseEvent) error {
	return s.eachShare(ev, func(sh Share) error {
		msg := fmt.Sprintf("%q was updated. Your share is now %s %s",
			ev.Description, split.Format(sh.Amount), ev.Currency)
		return s.notifyExpense(ctx, sh.Name, NotificationTypeExpenseUpdated, msg, ev.ExpenseID)
	})
}

func (s *Service) ExpenseDeleted(ctx context.Context, ev ExpenseEvent) error {
	return s.eachShare(ev, func(sh Share) error {
		msg := fmt.Sprintf("%q (%s %s) was deleted", ev.Description, split.Format(ev.Total), ev.Currency)
		return s.notifyExpense(ctx, sh.Name, NotificationTypeExpenseDeleted, msg, ev.ExpenseID)
	})
}

// ReceiptOrphaned records that a receipt was stored for an expense that
// never made it to the database. The payer is told, or every participant
// when nobody paid.
func (s *Service) ReceiptOrphaned(ctx context.Context, ev ExpenseEvent, cause error) error {
	msg := fmt.Sprintf("Receipt %s was uploaded but %q could not be saved: %v", ev.ReceiptKey, ev.Description, cause)
	entityType := EntityReceipt
	key := ev.ReceiptKey

	if ev.PaidBy != "" {
		_, err := s.Create(ctx, ev.PaidBy, NotificationTypeReceiptOrphaned, msg, &entityType, &key)
		return err
	}
	return s.eachShare(ev, func(sh Share) error {
		_, err := s.Create(ctx, sh.Name, NotificationTypeReceiptOrphaned, msg, &entityType, &key)
		return err
	})
}

func (s *Service) notifyExpense(ctx context.Context, recipient string, kind NotificationType, msg, expenseID string) error {
	entityType := EntityExpense
	id := expenseID
	_, err := s.Create(ctx, recipient, kind, msg, &entityType, &id)
	return err
}

// eachShare calls fn once per distinct participant and joins the failures.
func (s *Service) eachShare(ev ExpenseEvent, fn func(Share) error) error {
	seen := make(map[string]bool, len(ev.Shares))
	var errs []error
	for _, sh := range ev.Shares {
		if sh.Name == "" || seen[sh.Name] {
			continue
		}
		seen[sh.Name] = true
		if err := fn(sh); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
