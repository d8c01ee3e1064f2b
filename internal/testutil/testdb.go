package testutil

import (
	"fmt"

	"compliance-tracker-api/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewInMemoryDB creates an in-memory SQLite DB and runs migrations.
// A single connection keeps every query on the same in-memory database.
func NewInMemoryDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, err
	}
	return db, nil
}

// SeedUser inserts an active user with the given role. The password hash is a
// placeholder; tests that log in set their own.
func SeedUser(db *gorm.DB, username string, role models.Role) models.User {
	u := models.User{
		Username: username,
		FullName: username,
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	if err := db.Create(&u).Error; err != nil {
		panic(fmt.Sprintf("seed user %s: %v", username, err))
	}
	return u
}

// SeedClient inserts a client.
func SeedClient(db *gorm.DB, name string) models.Client {
	c := models.Client{Name: name}
	if err := db.Create(&c).Error; err != nil {
		panic(fmt.Sprintf("seed client %s: %v", name, err))
	}
	return c
}

// SeedTask inserts a miscellaneous task for client assigned to assignee with
// the given status and deadline.
func SeedTask(db *gorm.DB, client models.Client, assignee models.User, status models.TaskStatus, deadline string) models.Task {
	t := models.Task{
		ClientID:    client.ID,
		Category:    models.CategoryMiscellaneous,
		Description: "Seeded task",
		AssignedTo:  assignee.ID,
		Priority:    models.PriorityMedium,
		Deadline:    deadline,
		Status:      status,
		Area:        "General",
		Version:     1,
	}
	if err := db.Create(&t).Error; err != nil {
		panic(fmt.Sprintf("seed task: %v", err))
	}
	return t
}
