package draft

import (
	"errors"
	"fmt"
)

type ActionType string

const (
	ActionSetDescription       ActionType = "SET_DESCRIPTION"
	ActionSetCurrency          ActionType = "SET_CURRENCY"
	ActionSetAmount            ActionType = "SET_AMOUNT"
	ActionSetShared            ActionType = "SET_SHARED"
	ActionSetPaidBy            ActionType = "SET_PAID_BY"
	ActionSetCategory          ActionType = "SET_CATEGORY"
	ActionAddParticipant       ActionType = "ADD_PARTICIPANT"
	ActionRemoveParticipant    ActionType = "REMOVE_PARTICIPANT"
	ActionSetParticipantName   ActionType = "SET_PARTICIPANT_NAME"
	ActionSetParticipantAmount ActionType = "SET_PARTICIPANT_AMOUNT"
)

var ErrUnknownAction = errors.New("unknown draft action")

// Action is a single edit sent by a client. Index addresses a participant,
// Value carries text input and Shared the toggle state.
type Action struct {
	Type   ActionType `json:"type"`
	Index  int        `json:"index,omitempty"`
	Value  string     `json:"value,omitempty"`
	Shared bool       `json:"shared,omitempty"`
}

// Apply dispatches an action to its reducer.
func Apply(d Draft, a Action) (Draft, error) {
	switch a.Type {
	case ActionSetDescription:
		return d.SetDescription(a.Value), nil
	case ActionSetCurrency:
		return d.SetCurrency(a.Value), nil
	case ActionSetAmount:
		return d.SetAmount(a.Value), nil
	case ActionSetShared:
		return d.SetShared(a.Shared), nil
	case ActionSetPaidBy:
		return d.SetPaidBy(a.Value), nil
	case ActionSetCategory:
		return d.SetCategory(a.Value), nil
	case ActionAddParticipant:
		return d.AddParticipant(), nil
	case ActionRemoveParticipant:
		return d.RemoveParticipant(a.Index)
	case ActionSetParticipantName:
		return d.SetParticipantName(a.Index, a.Value)
	case ActionSetParticipantAmount:
		return d.SetParticipantAmount(a.Index, a.Value)
	default:
		return d, fmt.Errorf("%w: %s", ErrUnknownAction, a.Type)
	}
}
