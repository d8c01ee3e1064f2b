package cli

import (
	"fmt"

	"compliance-tracker-api/internal/apierrors"
	"compliance-tracker-api/internal/auth"
	"compliance-tracker-api/internal/config"
	"compliance-tracker-api/internal/database"
	"compliance-tracker-api/internal/logger"
	"compliance-tracker-api/internal/realtime"
	"compliance-tracker-api/internal/repository"
	"compliance-tracker-api/internal/service"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// environment is the loaded configuration with its logger and migrated
// database.
type environment struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func setup() (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if err := apierrors.LoadDir(cfg.Server.LocalesDir); err != nil {
		return nil, fmt.Errorf("locales: %w", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return &environment{cfg: cfg, log: log, db: db}, nil
}

func (e *environment) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = e.log.Sync()
}

// application holds the services built over one database.
type application struct {
	users    *service.UserService
	clients  *service.ClientService
	tasks    *service.TaskService
	activity *service.ActivityService
	hub      *realtime.Hub
	tokens   *auth.TokenManager
}

func (e *environment) services() *application {
	userRepo := repository.NewUserRepository(e.db)
	clientRepo := repository.NewClientRepository(e.db)
	hub := realtime.NewHub(e.log)
	opts := service.Options{
		DueSoonDays: e.cfg.Workflow.DueSoonDays,
		StatsTTL:    e.cfg.Workflow.StatsCacheTTL,
		Log:         e.log,
	}

	return &application{
		users:    service.NewUserService(userRepo),
		clients:  service.NewClientService(clientRepo, opts),
		activity: service.NewActivityService(repository.NewActivityRepository(e.db), opts),
		tasks: service.NewTaskService(
			repository.NewTaskRepository(e.db),
			userRepo,
			clientRepo,
			repository.NewHistoryRepository(e.db),
			hub,
			opts,
		),
		hub: hub,
		tokens: auth.NewTokenManager(auth.TokenConfig{
			Secret:     e.cfg.Auth.JWTSecret,
			Issuer:     e.cfg.Auth.Issuer,
			Audience:   e.cfg.Auth.Audience,
			TTL:        e.cfg.Auth.TokenTTL,
			RefreshTTL: e.cfg.Auth.RefreshTTL,
		}),
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
