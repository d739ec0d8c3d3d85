package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"inspection_log/internal/auth"
	"inspection_log/internal/errs"
	"inspection_log/internal/model"
	"inspection_log/internal/repository"
)

// UserInput carries the fields accepted by Create and Update. An empty
// Password means "keep the current one" on Update.
type UserInput struct {
	Username string
	Password string
	Name     string
	Role     string
	Active   *bool
}

// UserService is the user directory
type UserService struct {
	repo     repository.UserRepository
	verifier auth.CredentialVerifier
	logger   *logrus.Entry
}

// NewUserService creates a new user service. A nil verifier compares
// passwords as plain text.
func NewUserService(repo repository.UserRepository, verifier auth.CredentialVerifier, logger *logrus.Entry) *UserService {
	if verifier == nil {
		verifier = auth.PlainVerifier{}
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &UserService{
		repo:     repo,
		verifier: verifier,
		logger:   logger.WithField("component", "user-service"),
	}
}

// List returns every user
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.repo.List(ctx)
}

// Get returns the user with id
func (s *UserService) Get(ctx context.Context, id int) (*model.User, error) {
	return s.repo.FindByID(ctx, id)
}

// GetByUsername returns the user with username
func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.repo.FindByUsername(ctx, username)
}

// ListByRole parses raw case-insensitively and returns matching users
func (s *UserService) ListByRole(ctx context.Context, raw string) ([]model.User, error) {
	role, err := model.ParseRole(raw)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByRole(ctx, role)
}

// ListActive returns active users
func (s *UserService) ListActive(ctx context.Context) ([]model.User, error) {
	return s.repo.FindByActive(ctx, true)
}

// Create stores a new user. Active defaults to true.
func (s *UserService) Create(ctx context.Context, in UserInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("username is required: %w", errs.ErrValidation)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("password is required: %w", errs.ErrValidation)
	}
	role, err := model.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	stored, err := s.verifier.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to store password: %w", err)
	}

	user := &model.User{
		Username: username,
		Password: stored,
		Name:     in.Name,
		Role:     role,
		Active:   true,
	}
	if in.Active != nil {
		user.Active = *in.Active
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	}).Info("User created")
	return user, nil
}

// Update overwrites name, role and active. The password is only replaced
// when a new one is given; a nil Active clears the flag.
func (s *UserService) Update(ctx context.Context, id int, in UserInput) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := model.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	user.Name = in.Name
	user.Role = role
	user.Active = in.Active != nil && *in.Active
	if in.Password != "" {
		stored, err := s.verifier.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to store password: %w", err)
		}
		user.Password = stored
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes the user with id
func (s *UserService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// ToggleActive flips the active flag of the user with id
func (s *UserService) ToggleActive(ctx context.Context, id int) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Active = !user.Active
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"active":  user.Active,
	}).Info("User active flag toggled")
	return user, nil
}

// Authenticate returns the active user matching username and password.
// Every failure is reported as errs.ErrAuth.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	log := s.logger.WithField("username", username)

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			log.Debug("Login failed: unknown user")
			return nil, errs.ErrAuth
		}
		return nil, err
	}
	if !s.verifier.Verify(user.Password, password) {
		log.Debug("Login failed: wrong password")
		return nil, errs.ErrAuth
	}
	if !user.Active {
		log.Debug("Login failed: account inactive")
		return nil, errs.ErrAuth
	}
	return user, nil
}
