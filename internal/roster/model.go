package roster

import "time"

const DefaultColor = "#2196F3"

// Participant is a person known to the app, offered as a suggestion when
// filling in expenses.
type Participant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Avatar    *string   `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateParticipantRequest may carry a client-chosen ID so retries of the
// same POST return the stored record instead of a duplicate.
type CreateParticipantRequest struct {
	ID     *string `json:"id,omitempty"`
	Name   string  `json:"name"`
	Color  *string `json:"color,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

type UpdateParticipantRequest struct {
	Name   *string `json:"name,omitempty"`
	Color  *string `json:"color,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}
