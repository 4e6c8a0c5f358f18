// Package draft holds the editing state of an expense before it is
// submitted. Every reducer returns a new Draft and leaves its receiver
// untouched, so callers can keep the previous state around.
package draft

import (
	"errors"
	"strings"

	"github.com/Arcturus91/travel-divider/internal/expense/split"
	"github.com/shopspring/decimal"
)

const (
	DefaultMinParticipants = 2
	DefaultCurrency        = "USD"
)

var (
	ErrMinParticipants  = errors.New("cannot remove participant: minimum number of participants reached")
	ErrParticipantIndex = errors.New("participant index out of range")
)

// Participant is one row of the form. Amount is kept as typed.
type Participant struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type Draft struct {
	Description     string        `json:"description"`
	Amount          string        `json:"amount"`
	Currency        string        `json:"currency"`
	IsShared        bool          `json:"is_shared"`
	PaidBy          string        `json:"paid_by,omitempty"`
	Category        string        `json:"category,omitempty"`
	Participants    []Participant `json:"participants"`
	MinParticipants int           `json:"min_participants"`
}

// New returns a shared draft with two empty participants.
func New(minParticipants int) Draft {
	if minParticipants <= 0 {
		minParticipants = DefaultMinParticipants
	}
	return Draft{
		Currency:        DefaultCurrency,
		IsShared:        true,
		Participants:    make([]Participant, 2),
		MinParticipants: minParticipants,
	}
}

func (d Draft) clone() Draft {
	participants := make([]Participant, len(d.Participants))
	copy(participants, d.Participants)
	d.Participants = participants
	return d
}

func (d Draft) minimum() int {
	if d.MinParticipants <= 0 {
		return DefaultMinParticipants
	}
	return d.MinParticipants
}

// redistribute rewrites every amount with the equal split of the total.
// It must only be called on a clone.
func (d Draft) redistribute() Draft {
	if !d.IsShared || len(d.Participants) == 0 {
		return d
	}
	total, ok := split.ParseAmount(d.Amount)
	if !ok || total.IsNegative() {
		return d
	}
	shares := split.EqualShares(total, len(d.Participants))
	for i := range d.Participants {
		d.Participants[i].Amount = split.Format(shares[i])
	}
	return d
}

func (d Draft) SetDescription(description string) Draft {
	d = d.clone()
	d.Description = description
	return d
}

func (d Draft) SetCurrency(currency string) Draft {
	d = d.clone()
	d.Currency = strings.ToUpper(strings.TrimSpace(currency))
	return d
}

func (d Draft) SetPaidBy(name string) Draft {
	d = d.clone()
	d.PaidBy = split.FormatName(name)
	return d
}

func (d Draft) SetCategory(category string) Draft {
	d = d.clone()
	d.Category = strings.TrimSpace(category)
	return d
}

// SetAmount stores the raw total. In shared mode a parsable total is split
// equally again; anything else leaves the participant amounts alone.
func (d Draft) SetAmount(raw string) Draft {
	d = d.clone()
	d.Amount = raw
	return d.redistribute()
}

func (d Draft) SetShared(shared bool) Draft {
	d = d.clone()
	d.IsShared = shared
	return d.redistribute()
}

func (d Draft) AddParticipant() Draft {
	d = d.clone()
	d.Participants = append(d.Participants, Participant{})
	return d.redistribute()
}

func (d Draft) RemoveParticipant(index int) (Draft, error) {
	if index < 0 || index >= len(d.Participants) {
		return d, ErrParticipantIndex
	}
	if len(d.Participants) <= d.minimum() {
		return d, ErrMinParticipants
	}
	d = d.clone()
	d.Participants = append(d.Participants[:index], d.Participants[index+1:]...)
	return d.redistribute(), nil
}

func (d Draft) SetParticipantName(index int, raw string) (Draft, error) {
	if index < 0 || index >= len(d.Participants) {
		return d, ErrParticipantIndex
	}
	d = d.clone()
	d.Participants[index].Name = split.FormatName(raw)
	return d, nil
}

// SetParticipantAmount is ignored in shared mode, where amounts are derived
// from the total. In manual mode the next participant absorbs the
// difference so the amounts keep adding up to the total.
func (d Draft) SetParticipantAmount(index int, raw string) (Draft, error) {
	if index < 0 || index >= len(d.Participants) {
		return d, ErrParticipantIndex
	}
	if d.IsShared {
		return d, nil
	}
	d = d.clone()
	d.Participants[index].Amount = raw

	total, ok := split.ParseAmount(d.Amount)
	if !ok {
		return d, nil
	}
	amounts := make([]decimal.Decimal, len(d.Participants))
	for i, p := range d.Participants {
		amounts[i], _ = split.ParseAmount(p.Amount)
	}
	if absorber, amount, ok := split.AbsorbRemainder(total, amounts, index); ok {
		d.Participants[absorber].Amount = split.Format(amount)
	}
	return d, nil
}

// Submission validates the draft the way the server validates a create
// request.
func (d Draft) Submission() (*Submission, error) {
	total, allocations, err := Validate(d.Description, d.Amount, d.Participants)
	if err != nil {
		return nil, err
	}
	return &Submission{
		Description: strings.TrimSpace(d.Description),
		TotalAmount: total,
		Currency:    d.Currency,
		IsShared:    d.IsShared,
		PaidBy:      d.PaidBy,
		Category:    d.Category,
		Allocations: allocations,
	}, nil
}
