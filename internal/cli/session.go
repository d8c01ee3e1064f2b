package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"compliance-tracker-api/internal/client"
	"compliance-tracker-api/internal/models"
	"compliance-tracker-api/internal/workflow"

	"gopkg.in/yaml.v3"
)

const sessionFileName = "session.yaml"

// session is what login leaves behind for the other remote commands.
type session struct {
	Server   string      `yaml:"server"`
	Token    string      `yaml:"token"`
	UserID   uint        `yaml:"user_id"`
	Username string      `yaml:"username"`
	Role     models.Role `yaml:"role"`
	Language string      `yaml:"language,omitempty"`
}

func (s session) actor() workflow.Actor {
	return workflow.Actor{ID: s.UserID, Role: s.Role}
}

// resolveSessionPath returns --session or the per-user default location.
func resolveSessionPath() (string, error) {
	if sessionPath != "" {
		return sessionPath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "compliance-tracker", sessionFileName), nil
}

func saveSession(path string, s session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func loadSession(path string) (session, error) {
	var s session
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, fmt.Errorf("not logged in. Run: compliance-tracker login")
	}
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse session %s: %w", path, err)
	}
	if s.Server == "" || s.Token == "" {
		return s, fmt.Errorf("session %s is incomplete. Run: compliance-tracker login", path)
	}
	return s, nil
}

// mustClient returns an API client for the saved session.
func mustClient() (*client.Client, error) {
	path, err := resolveSessionPath()
	if err != nil {
		return nil, err
	}
	s, err := loadSession(path)
	if err != nil {
		return nil, err
	}
	return client.New(s.Server,
		client.WithToken(s.Token, s.actor()),
		client.WithLanguage(s.Language),
	), nil
}

// explain turns an API error into a line for the terminal.
func explain(err error) error {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		return fmt.Errorf("session expired or invalid. Run: compliance-tracker login")
	case errors.Is(err, client.ErrNetwork):
		return fmt.Errorf("cannot reach server: %w", err)
	case errors.As(err, &apiErr):
		if apiErr.Reason != "" {
			return fmt.Errorf("%s: %s", apiErr.Message, apiErr.Reason)
		}
		return errors.New(apiErr.Message)
	}
	return err
}
