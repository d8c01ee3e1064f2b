package dto

import "compliance-tracker-api/internal/models"

// DeadlineLoad summarises the open tasks of one assignee or client.
type DeadlineLoad struct {
	OpenTasks     int64  `json:"open_tasks"`
	Overdue       int64  `json:"overdue"`
	DueSoon       int64  `json:"due_soon"`
	NextDeadline  string `json:"next_deadline"`
	DaysRemaining *int   `json:"next_deadline_days_remaining"`
}

// UserDeadlines is one row of GET /api/users/users-with-deadlines
type UserDeadlines struct {
	User models.User `json:"user"`
	DeadlineLoad
}

// ClientDeadlines is one row of GET /api/clients/client-with-deadlines
type ClientDeadlines struct {
	Client models.Client `json:"client"`
	DeadlineLoad
}

// ClientBirthday is a client with the days until (or since) its birthday.
type ClientBirthday struct {
	models.Client
	DaysRemaining int `json:"days_remaining"`
}

// ClientBirthdays buckets clients around today
type ClientBirthdays struct {
	Today    []ClientBirthday `json:"today"`
	Upcoming []ClientBirthday `json:"upcoming"`
	Past     []ClientBirthday `json:"past"`
}

// AppLogPage is one page of the activity log.
type AppLogPage struct {
	Count      int64           `json:"count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
	Results    []models.AppLog `json:"results"`
}
