package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"compliance-tracker-api/internal/auth"
	"compliance-tracker-api/internal/dto"
	"compliance-tracker-api/internal/models"
	"compliance-tracker-api/internal/repository"
	"compliance-tracker-api/internal/workflow"
)

type UserService struct {
	users *repository.UserRepository
}

func NewUserService(users *repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// Authenticate checks a username and password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, workflow.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive || !auth.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Create registers a user. Only admins may do this.
func (s *UserService) Create(ctx context.Context, actor workflow.Actor, req dto.CreateUserRequest) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins can create users", workflow.ErrForbidden)
	}
	return s.Register(ctx, req)
}

// Register stores a new user without a permission check. Used by seeding.
func (s *UserService) Register(ctx context.Context, req dto.CreateUserRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, workflow.FieldInvalid("username", "This field is required.")
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: username %q is taken", workflow.ErrConflict, username)
	} else if !errors.Is(err, workflow.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = models.RoleStaff
	}
	user := &models.User{
		Username: username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: hash,
		Role:     role,
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, role models.Role) ([]models.User, error) {
	return s.users.List(ctx, role)
}
