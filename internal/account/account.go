// Package account owns identity creation, credential checks and profile updates.
package account

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/parley/internal/apperr"
	"github.com/jason-s-yu/parley/internal/auth"
	"github.com/jason-s-yu/parley/internal/chat"
	"github.com/jason-s-yu/parley/internal/database"
	"github.com/jason-s-yu/parley/internal/models"
	"github.com/sirupsen/logrus"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Store is the persistence the account service needs.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateOnboarding(ctx context.Context, id uuid.UUID, f database.OnboardFields) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

type Service struct {
	store       Store
	directory   chat.Syncer
	syncTimeout time.Duration
	logger      *logrus.Logger

	// avatar picks the profile picture assigned at signup.
	avatar func() string
}

// NewService builds the account service. directory may be nil to skip chat sync.
func NewService(store Store, directory chat.Syncer, logger *logrus.Logger, syncTimeout time.Duration) *Service {
	if syncTimeout <= 0 {
		syncTimeout = 5 * time.Second
	}
	return &Service{
		store:       store,
		directory:   directory,
		syncTimeout: syncTimeout,
		logger:      logger,
		avatar:      randomAvatar,
	}
}

func randomAvatar() string {
	return fmt.Sprintf("https://avatar.iran.liara.run/public/%d.png", rand.Intn(100)+1)
}

type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

// Signup creates an identity with a hashed password.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" || strings.TrimSpace(in.FullName) == "" {
		return nil, apperr.Validation("All fields are required")
	}
	if utf8.RuneCountInString(in.Password) < auth.MinPasswordLength {
		return nil, apperr.Validation("Password must be at least 6 characters long")
	}
	if !emailPattern.MatchString(in.Email) {
		return nil, apperr.Validation("Invalid email format")
	}

	if _, err := s.store.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Conflict("Email already exists, please use a different one")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("signup lookup: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, apperr.Validation("Password must be at most 72 bytes long")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:      in.Email,
		Password:   hash,
		FullName:   strings.TrimSpace(in.FullName),
		ProfilePic: s.avatar(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperr.Conflict("Email already exists, please use a different one")
		}
		return nil, fmt.Errorf("signup: %w", err)
	}

	s.syncDirectory(ctx, user, "signup")
	return user, nil
}

// Login returns the identity for matching credentials. Unknown emails and wrong passwords
// fail with the same message.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperr.Validation("All fields are required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.Unauthenticated("Invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("login lookup: %w", err)
	}

	match, err := auth.ComparePassword(user.Password, password)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("stored password hash is unreadable")
	}
	if !match {
		return nil, apperr.Unauthenticated("Invalid credentials")
	}
	return user, nil
}

type OnboardInput struct {
	FullName         string `json:"fullName"`
	Bio              string `json:"bio"`
	Location         string `json:"location"`
	NativeLanguage   string `json:"nativeLanguage"`
	LearningLanguage string `json:"learningLanguage"`
}

func (in OnboardInput) missingFields() []string {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"fullName", in.FullName},
		{"bio", in.Bio},
		{"location", in.Location},
		{"nativeLanguage", in.NativeLanguage},
		{"learningLanguage", in.LearningLanguage},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Onboard completes userID's profile and marks it onboarded.
func (s *Service) Onboard(ctx context.Context, userID uuid.UUID, in OnboardInput) (*models.User, error) {
	if missing := in.missingFields(); len(missing) > 0 {
		return nil, apperr.MissingFields("All fields are required", missing)
	}

	user, err := s.store.UpdateOnboarding(ctx, userID, database.OnboardFields{
		FullName:         strings.TrimSpace(in.FullName),
		Bio:              strings.TrimSpace(in.Bio),
		Location:         strings.TrimSpace(in.Location),
		NativeLanguage:   strings.TrimSpace(in.NativeLanguage),
		LearningLanguage: strings.TrimSpace(in.LearningLanguage),
	})
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("onboard: %w", err)
	}

	s.syncDirectory(ctx, user, "onboard")
	return user, nil
}

// ChangePassword replaces userID's password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if current == "" || next == "" {
		return apperr.Validation("All fields are required")
	}
	if utf8.RuneCountInString(next) < auth.MinPasswordLength {
		return apperr.Validation("Password must be at least 6 characters long")
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return fmt.Errorf("change password lookup: %w", err)
	}
	if ok, _ := auth.ComparePassword(user.Password, current); !ok {
		return apperr.Unauthenticated("Invalid credentials")
	}

	hash, err := auth.HashPassword(next)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return apperr.Validation("Password must be at most 72 bytes long")
	}
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// syncDirectory mirrors user into the chat service. Failures are logged and never returned.
func (s *Service) syncDirectory(ctx context.Context, user *models.User, op string) {
	if s.directory == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.syncTimeout)
	defer cancel()

	err := s.directory.UpsertUser(ctx, chat.User{
		ID:    user.ID.String(),
		Name:  user.FullName,
		Image: user.ProfilePic,
	})
	if err != nil {
		wrapped := apperr.External("chat directory upsert failed", err)
		s.logger.WithError(wrapped).WithFields(logrus.Fields{
			"op":      op,
			"user_id": user.ID,
		}).Warn("directory sync skipped")
		return
	}
	s.logger.WithFields(logrus.Fields{"op": op, "user_id": user.ID}).Debug("directory sync ok")
}
