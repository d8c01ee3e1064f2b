package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"compliance-tracker-api/internal/dto"
	"compliance-tracker-api/internal/models"
	"compliance-tracker-api/internal/repository"
	"compliance-tracker-api/internal/workflow"
)

// birthdayWindow is how many days before and after today a birthday is
// listed as upcoming or past.
const birthdayWindow = 30

type ClientService struct {
	clients *repository.ClientRepository
	now     func() time.Time
}

// NewClientService reads the clock from opts.Now.
func NewClientService(clients *repository.ClientRepository, opts Options) *ClientService {
	return &ClientService{clients: clients, now: opts.withDefaults().Now}
}

// Create adds a client. Only admins may do this and names are unique.
func (s *ClientService) Create(ctx context.Context, actor workflow.Actor, req dto.CreateClientRequest) (*models.Client, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins can create clients", workflow.ErrForbidden)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, workflow.FieldInvalid("name", "This field is required.")
	}

	existing, err := s.clients.List(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		if strings.EqualFold(c.Name, name) {
			return nil, fmt.Errorf("%w: client %q already exists", workflow.ErrConflict, name)
		}
	}

	client := &models.Client{
		Name:          name,
		TIN:           req.TIN,
		Address:       req.Address,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
	}
	if b := strings.TrimSpace(req.Birthday); b != "" {
		if _, err := time.Parse(models.DateLayout, b); err != nil {
			return nil, workflow.FieldInvalid("birthday", "Must be a date in YYYY-MM-DD format.")
		}
		client.Birthday = &b
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *ClientService) Get(ctx context.Context, id uint) (*models.Client, error) {
	client, err := s.clients.GetByID(ctx, id)
	if errors.Is(err, repository.ErrClientNotFound) {
		return nil, fmt.Errorf("client %d: %w", id, err)
	}
	return client, err
}

func (s *ClientService) List(ctx context.Context, search string) ([]models.Client, error) {
	return s.clients.List(ctx, search)
}

// Birthdays buckets clients by birthday relative to today: today, within the
// next 30 days (soonest first) and within the last 30 days (latest first).
func (s *ClientService) Birthdays(ctx context.Context) (dto.ClientBirthdays, error) {
	out := dto.ClientBirthdays{
		Today:    []dto.ClientBirthday{},
		Upcoming: []dto.ClientBirthday{},
		Past:     []dto.ClientBirthday{},
	}
	clients, err := s.clients.WithBirthdays(ctx)
	if err != nil {
		return out, err
	}

	today := s.now()
	for _, c := range clients {
		days, ok := daysToBirthday(*c.Birthday, today)
		if !ok {
			continue
		}
		entry := dto.ClientBirthday{Client: c, DaysRemaining: days}
		switch {
		case days == 0:
			out.Today = append(out.Today, entry)
		case days > 0 && days <= birthdayWindow:
			out.Upcoming = append(out.Upcoming, entry)
		case days < 0 && days >= -birthdayWindow:
			out.Past = append(out.Past, entry)
		}
	}

	slices.SortStableFunc(out.Upcoming, func(a, b dto.ClientBirthday) int { return a.DaysRemaining - b.DaysRemaining })
	slices.SortStableFunc(out.Past, func(a, b dto.ClientBirthday) int { return b.DaysRemaining - a.DaysRemaining })
	return out, nil
}

// daysToBirthday returns the signed distance in days from today to the
// nearest anniversary of birthday. Ties go to the upcoming one.
func daysToBirthday(birthday string, today time.Time) (int, bool) {
	b, err := time.Parse(models.DateLayout, birthday)
	if err != nil {
		return 0, false
	}
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	best, found := 0, false
	for _, year := range []int{start.Year() - 1, start.Year(), start.Year() + 1} {
		anniversary := time.Date(year, b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
		d := int(anniversary.Sub(start).Hours() / 24)
		if !found || absInt(d) < absInt(best) || (absInt(d) == absInt(best) && d > best) {
			best, found = d, true
		}
	}
	return best, true
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
