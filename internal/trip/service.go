package trip

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/Arcturus91/travel-divider/internal/database"
	"github.com/Arcturus91/travel-divider/internal/expense/draft"
)

var (
	ErrTripNotFound    = errors.New("trip not found")
	ErrNameRequired    = errors.New("trip name is required")
	ErrInvalidCurrency = errors.New("default currency must be a 3-letter code")
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Service handles trip business logic
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Create creates a new trip
func (s *Service) Create(ctx context.Context, req *CreateTripRequest) (*Trip, error) {
	t := &Trip{
		ID:              uuid.New().String(),
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		DefaultCurrency: strings.ToUpper(strings.TrimSpace(req.DefaultCurrency)),
		CreatedAt:       database.Now(),
	}
	if t.DefaultCurrency == "" {
		t.DefaultCurrency = draft.DefaultCurrency
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func validate(t *Trip) error {
	if t.Name == "" {
		return ErrNameRequired
	}
	if !currencyPattern.MatchString(t.DefaultCurrency) {
		return ErrInvalidCurrency
	}
	return nil
}

// GetByID retrieves a trip by its ID
func (s *Service) GetByID(ctx context.Context, id string) (*Trip, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTripNotFound
	}
	return t, nil
}

// Exists reports whether a trip with id is stored.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return t != nil, nil
}

// List retrieves one page of trips
func (s *Service) List(ctx context.Context, page, perPage int) ([]*Trip, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.List(ctx, perPage, offset)
}

// Update modifies an existing trip
func (s *Service) Update(ctx context.Context, id string, req *UpdateTripRequest) (*Trip, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		t.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		t.Description = req.Description
		if strings.TrimSpace(*req.Description) == "" {
			t.Description = nil
		}
	}
	if req.DefaultCurrency != nil {
		t.DefaultCurrency = strings.ToUpper(strings.TrimSpace(*req.DefaultCurrency))
	}
	if err := validate(t); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a trip
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
