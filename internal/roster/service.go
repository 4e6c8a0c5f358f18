package roster

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/Arcturus91/travel-divider/internal/expense/split"
)

var (
	ErrNameRequired = errors.New("participant name is required")
	ErrInvalidColor = errors.New("color must be a hex value like #2196F3")
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

const defaultSuggestLimit = 10

// Service validates and normalizes roster changes before they are stored.
type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Create stores a new participant. created is false when the request's ID
// was already stored.
func (s *Service) Create(req *CreateParticipantRequest) (*Participant, bool, error) {
	name := split.FormatName(req.Name)
	if name == "" {
		return nil, false, ErrNameRequired
	}
	color := DefaultColor
	if req.Color != nil && *req.Color != "" {
		if !colorPattern.MatchString(*req.Color) {
			return nil, false, ErrInvalidColor
		}
		color = strings.ToUpper(*req.Color)
	}

	id := uuid.New().String()
	if req.ID != nil && strings.TrimSpace(*req.ID) != "" {
		id = strings.TrimSpace(*req.ID)
	}

	return s.store.Create(&Participant{
		ID:     id,
		Name:   name,
		Color:  color,
		Avatar: req.Avatar,
	})
}

func (s *Service) Get(id string) (*Participant, error) {
	return s.store.Get(id)
}

func (s *Service) List() ([]Participant, error) {
	return s.store.List()
}

func (s *Service) Update(id string, req *UpdateParticipantRequest) (*Participant, error) {
	var name, color string
	if req.Name != nil {
		if name = split.FormatName(*req.Name); name == "" {
			return nil, ErrNameRequired
		}
	}
	if req.Color != nil {
		if !colorPattern.MatchString(*req.Color) {
			return nil, ErrInvalidColor
		}
		color = strings.ToUpper(*req.Color)
	}

	p, _, err := s.store.Update(id, func(p *Participant) {
		if name != "" {
			p.Name = name
		}
		if color != "" {
			p.Color = color
		}
		if req.Avatar != nil {
			if *req.Avatar == "" {
				p.Avatar = nil
			} else {
				avatar := *req.Avatar
				p.Avatar = &avatar
			}
		}
	})
	return p, err
}

func (s *Service) Delete(id string) error {
	return s.store.Delete(id)
}

// Suggest returns up to limit known names starting with prefix, ignoring
// case. An empty prefix matches everyone.
func (s *Service) Suggest(prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultSuggestLimit
	}
	participants, err := s.store.List()
	if err != nil {
		return nil, err
	}

	prefix = strings.ToLower(strings.TrimSpace(prefix))
	names := []string{}
	for _, p := range participants {
		if len(names) == limit {
			break
		}
		if strings.HasPrefix(strings.ToLower(p.Name), prefix) {
			names = append(names, p.Name)
		}
	}
	return names, nil
}
