package notification

import (
	"time"

	"github.com/shopspring/decimal"
)

// Notification is one entry in a participant's activity feed.
type Notification struct {
	ID                string           `json:"id"`
	Recipient         string           `json:"recipient"`
	Type              NotificationType `json:"type"`
	Message           string           `json:"message"`
	IsRead            bool             `json:"is_read"`
	RelatedEntityType *string          `json:"related_entity_type,omitempty"` // "EXPENSE" or "RECEIPT"
	RelatedEntityID   *string          `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationTypeExpenseAdded    NotificationType = "EXPENSE_ADDED"
	NotificationTypeExpenseUpdated  NotificationType = "EXPENSE_UPDATED"
	NotificationTypeExpenseDeleted  NotificationType = "EXPENSE_DELETED"
	NotificationTypeReceiptOrphaned NotificationType = "RECEIPT_ORPHANED"
)

const (
	EntityExpense = "EXPENSE"
	EntityReceipt = "RECEIPT"
)

// Share is what one participant owes on an expense.
type Share struct {
	Name   string
	Amount decimal.Decimal
}

// ExpenseEvent describes an expense change worth telling participants about.
type ExpenseEvent struct {
	ExpenseID   string
	Description string
	Total       decimal.Decimal
	Currency    string
	PaidBy      string
	Shares      []Share
	ReceiptKey  string
}
