package models

import "time"

// Client is the organisation a task is performed for.
type Client struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name" gorm:"uniqueIndex;not null"`
	TIN           string    `json:"tin" gorm:"column:tin"`
	Address       string    `json:"address"`
	ContactPerson string    `json:"contact_person"`
	Email         string    `json:"email"`
	Birthday      *string   `json:"birthday"` // YYYY-MM-DD
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for Client Model
func (Client) TableName() string {
	return "clients"
}
