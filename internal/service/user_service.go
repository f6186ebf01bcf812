package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"culturetech/internal/middleware"
	"culturetech/internal/models"
	"culturetech/internal/store"
	"culturetech/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	store    store.Store
	hashCost int

	// compared against when the username is unknown so both failure paths cost the same
	dummyOnce sync.Once
	dummyHash []byte
	dummyErr  error
}

// NewUserService creates a user service hashing with cost. A zero cost means
// bcrypt.DefaultCost.
func NewUserService(st store.Store, cost int) *UserService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserService{store: st, hashCost: cost}
}

func (s *UserService) dummy() ([]byte, error) {
	s.dummyOnce.Do(func() {
		s.dummyHash, s.dummyErr = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.hashCost)
	})
	return s.dummyHash, s.dummyErr
}

// Register creates an account. The first account ever created becomes the
// admin under the default bootstrap policy.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	existing, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if existing != nil {
		return nil, duplicateUsername()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, validation.PasswordTooLong()
	}
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	user, err := s.store.CreateUser(ctx, models.NewUser{Username: username, Password: string(hash)})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			return nil, duplicateUsername()
		}
		return nil, models.NewInternalError(err)
	}

	middleware.Logger.InfoContext(ctx, "user registered", "user_id", user.ID, "is_admin", user.IsAdmin)
	return user, nil
}

// Authenticate checks credentials and returns the matching user.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if user == nil {
		dummy, err := s.dummy()
		if err != nil {
			return nil, models.NewInternalError(fmt.Errorf("hash dummy password: %w", err))
		}
		_ = bcrypt.CompareHashAndPassword(dummy, []byte(password))
		return nil, invalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalidCredentials()
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", id)
	}
	return user, nil
}

// SetAdmin elevates or demotes the named user. This is the only path that
// changes the admin flag after creation.
func (s *UserService) SetAdmin(ctx context.Context, username string, isAdmin bool) (*models.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}

	updated, err := s.store.SetAdmin(ctx, user.ID, isAdmin)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if updated == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return updated, nil
}

func (s *UserService) ListAdmins(ctx context.Context) ([]*models.User, error) {
	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return admins, nil
}

// EnsureSeedAdmin creates the configured operator account if needed and makes
// sure it is an admin.
func (s *UserService) EnsureSeedAdmin(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if user == nil {
		if user, err = s.Register(ctx, username, password); err != nil {
			return nil, err
		}
	}
	if user.IsAdmin {
		return user, nil
	}
	return s.SetAdmin(ctx, username, true)
}

func duplicateUsername() *models.AppError {
	return models.NewValidationError("Username already exists", models.FieldError{
		Path:    "/username",
		Message: "is already taken",
	})
}

func invalidCredentials() *models.AppError {
	return models.NewUnauthenticatedError("Invalid username or password")
}
