package trip

import "time"

// Trip groups the expenses that are settled together
type Trip struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	DefaultCurrency string    `json:"default_currency"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateTripRequest represents the request to create a new trip
type CreateTripRequest struct {
	Name            string  `json:"name"`
	Description     *string `json:"description,omitempty"`
	DefaultCurrency string  `json:"default_currency,omitempty"`
}

// UpdateTripRequest represents the request to update a trip
type UpdateTripRequest struct {
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	DefaultCurrency *string `json:"default_currency,omitempty"`
}
