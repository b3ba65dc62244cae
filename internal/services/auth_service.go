package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/croswell/taskmaster-api/internal/auth"
	"github.com/croswell/taskmaster-api/internal/constants"
	"github.com/croswell/taskmaster-api/internal/models"
	"github.com/croswell/taskmaster-api/internal/repository"
)

var (
	ErrEmailTaken           = errors.New("email already registered")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrIdentityTaken        = errors.New("email or username already taken")
	ErrInvalidCredentials   = errors.New("incorrect email or password")
	ErrAccountInactive      = errors.New("account is inactive")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrEmailRequired        = errors.New("email is required")
	ErrUsernameRequired     = errors.New("username is required")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService handles registration, login and profile management.
type AuthService struct {
	userRepo repository.UserRepository
	codec    *auth.TokenCodec
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, codec *auth.TokenCodec) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		codec:    codec,
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Email    string
	Username string
	FullName string
	Password string
}

// Register creates a new user with a freshly hashed password.
func (s *AuthService) Register(input RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)

	if email == "" {
		return nil, ErrEmailRequired
	}
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if err := s.checkEmailFree(email); err != nil {
		return nil, err
	}
	if err := s.checkUsernameFree(username); err != nil {
		return nil, err
	}

	hashed, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: hashed,
		IsActive:     true,
	}

	if err := s.userRepo.Create(user); err != nil {
		// Two concurrent registrations can both pass the pre-checks; the
		// unique constraints are the actual arbiter.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.duplicateIdentityError(email, username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and issues a signed access token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(input LoginInput) (string, *models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !auth.CheckPassword(input.Password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return "", nil, ErrAccountInactive
	}

	token, err := s.codec.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return token, user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// UpdateProfileInput holds optional profile changes; nil fields are left
// untouched.
type UpdateProfileInput struct {
	Email    *string
	Username *string
	FullName *string
	Password *string
}

// UpdateProfile applies profile changes, re-checking uniqueness and
// re-hashing the password when it changes.
func (s *AuthService) UpdateProfile(id uint64, input UpdateProfileInput) (*models.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			return nil, ErrEmailRequired
		}
		if email != user.Email {
			if err := s.checkEmailFree(email); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, ErrUsernameRequired
		}
		if username != user.Username {
			if err := s.checkUsernameFree(username); err != nil {
				return nil, err
			}
			user.Username = username
		}
	}

	if input.FullName != nil {
		user.FullName = strings.TrimSpace(*input.FullName)
	}

	if input.Password != nil {
		if len(*input.Password) < constants.MinPasswordLength {
			return nil, ErrPasswordTooShort
		}
		hashed, err := auth.HashPassword(*input.Password)
		if err != nil {
			return nil, ErrFailedToHashPassword
		}
		user.PasswordHash = hashed
	}

	if err := s.userRepo.Update(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.duplicateIdentityError(user.Email, user.Username)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// DeleteAccount removes the user and their tasks.
func (s *AuthService) DeleteAccount(id uint64) error {
	if _, err := s.GetUser(id); err != nil {
		return err
	}

	if err := s.userRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}

// duplicateIdentityError resolves which unique constraint fired after a
// duplicate-key write by re-reading the contested values. The concurrent
// writer has committed by then, so the lookup names the right field.
func (s *AuthService) duplicateIdentityError(email, username string) error {
	if err := s.checkEmailFree(email); errors.Is(err, ErrEmailTaken) {
		return ErrEmailTaken
	}
	if err := s.checkUsernameFree(username); errors.Is(err, ErrUsernameTaken) {
		return ErrUsernameTaken
	}
	// The winner disappeared between the write and the lookup; either field
	// may have collided, so stay neutral.
	return ErrIdentityTaken
}

func (s *AuthService) checkEmailFree(email string) error {
	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}
	return nil
}

func (s *AuthService) checkUsernameFree(username string) error {
	if _, err := s.userRepo.FindByUsername(username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check username: %w", err)
	}
	return nil
}
