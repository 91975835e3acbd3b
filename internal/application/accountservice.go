package application

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"github.com/evanrhall/driftnote/internal/domain/model"
	"github.com/evanrhall/driftnote/internal/domain/port/driven"
)

var (
	// ErrInvalidCredentials is returned on a failed login. Callers get no
	// hint whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidUsername is returned when a registration username does not
	// fit the allowed shape.
	ErrInvalidUsername = errors.New("username must be 3-30 characters: letters, digits, underscore, hyphen")

	// ErrWeakPassword is returned when a registration password is too short.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)

// AccountService owns registration and login.
type AccountService struct {
	userStore    driven.UserStore
	profileStore driven.ProfileStore
}

// NewAccountService creates an AccountService.
func NewAccountService(userStore driven.UserStore, profileStore driven.ProfileStore) *AccountService {
	return &AccountService{userStore: userStore, profileStore: profileStore}
}

// Register creates an account and its empty profile.
func (s *AccountService) Register(ctx context.Context, username, password string) (*model.User, error) {
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.userStore.Create(ctx, username, string(hash))
	if err != nil {
		if errors.Is(err, driven.ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.profileStore.Create(ctx, id); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	user, err := s.userStore.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load new user: %w", err)
	}

	return user, nil
}

// Login verifies a username and password pair.
func (s *AccountService) Login(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// UsernameAvailable reports whether a username can still be registered.
func (s *AccountService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	if !usernamePattern.MatchString(username) {
		return false, nil
	}

	user, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("look up user: %w", err)
	}

	return user == nil, nil
}
