package dto

import "compliance-tracker-api/internal/models"

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token    string      `json:"token"`
	Refresh  string      `json:"refresh"`
	UserID   uint        `json:"user_id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	Message  string      `json:"message"`
}

// RefreshRequest is the body of POST /api/token/refresh
type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// RefreshResponse carries the new access token
type RefreshResponse struct {
	Access string `json:"access"`
}

// CreateUserRequest is the body of POST /api/users
type CreateUserRequest struct {
	Username string      `json:"username" binding:"required,min=3,max=64"`
	Password string      `json:"password" binding:"required,min=8"`
	FullName string      `json:"full_name"`
	Email    string      `json:"email" binding:"omitempty,email"`
	Role     models.Role `json:"role" binding:"omitempty,oneof=admin staff"`
}

// CreateClientRequest is the body of POST /api/clients
type CreateClientRequest struct {
	Name          string `json:"name" binding:"required"`
	TIN           string `json:"tin"`
	Address       string `json:"address"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email" binding:"omitempty,email"`
	Birthday      string `json:"birthday" binding:"omitempty,datetime=2006-01-02"`
}
