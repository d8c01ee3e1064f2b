package repository

import (
	"context"
	"errors"
	"strings"

	"compliance-tracker-api/internal/models"

	"gorm.io/gorm"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// Create adds a new client to the database
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

// GetByID retrieves a client by its ID
func (r *ClientRepository) GetByID(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &client, nil
}

// List returns clients ordered by name, optionally filtered by a name fragment
func (r *ClientRepository) List(ctx context.Context, search string) ([]models.Client, error) {
	clients := []models.Client{}
	q := r.db.WithContext(ctx).Order("name asc")
	if s := strings.TrimSpace(search); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if err := q.Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

// FindByIDs returns the clients with the given ids keyed by id
func (r *ClientRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]models.Client, error) {
	found := map[uint]models.Client{}
	if len(ids) == 0 {
		return found, nil
	}
	var clients []models.Client
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&clients).Error; err != nil {
		return nil, err
	}
	for _, c := range clients {
		found[c.ID] = c
	}
	return found, nil
}

// WithBirthdays returns the clients that have a birthday on record
func (r *ClientRepository) WithBirthdays(ctx context.Context) ([]models.Client, error) {
	clients := []models.Client{}
	err := r.db.WithContext(ctx).
		Where("birthday IS NOT NULL AND birthday <> ''").
		Order("name asc").
		Find(&clients).Error
	return clients, err
}
