package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"authd/internal/domain/models"
	"authd/internal/lib/passhash"
	"authd/internal/lib/sl"
	"authd/internal/storage"
)

// Service handles profile reads and the account-level mutations: profile
// update, password change and account deletion.
type Service struct {
	logger   *slog.Logger
	provider UserProvider
	mutator  UserMutator
}

type UserProvider interface {
	UserByID(ctx context.Context, userID int64) (*models.User, error)
}

type UserMutator interface {
	UpdateProfile(ctx context.Context, userID int64, firstName, middleName, lastName, email string) error
	UpdatePassword(ctx context.Context, userID int64, passHash []byte) error
	DeleteUser(ctx context.Context, userID int64) error
}

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already in use")
	ErrWrongOldPassword = errors.New("old password is incorrect")
	ErrPasswordReused   = errors.New("new password must differ from the old password")
)

func New(logger *slog.Logger, provider UserProvider, mutator UserMutator) *Service {
	return &Service{
		logger:   logger,
		provider: provider,
		mutator:  mutator,
	}
}

func (s *Service) Profile(ctx context.Context, userID int64) (*models.User, error) {
	const op = "user.Profile"

	user, err := s.provider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		s.logger.Error("failed to get user", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (s *Service) UpdateProfile(
	ctx context.Context,
	userID int64,
	firstName, middleName, lastName, email string,
) (*models.User, error) {
	const op = "user.UpdateProfile"
	log := s.logger.With(slog.String("op", op), slog.Int64("userID", userID))

	err := s.mutator.UpdateProfile(ctx, userID, firstName, middleName, lastName, email)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUserNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		case errors.Is(err, storage.ErrUserAlreadyExists):
			log.Warn("email already taken")
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		log.Error("failed to update profile", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.provider.UserByID(ctx, userID)
	if err != nil {
		log.Error("failed to reload user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("profile updated")

	return user, nil
}

// ChangePassword verifies the old password, stores the new hash and drops the
// live session, so every device has to log in again with the new password.
func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	const op = "user.ChangePassword"
	log := s.logger.With(slog.String("op", op), slog.Int64("userID", userID))

	if oldPassword == newPassword {
		return fmt.Errorf("%s: %w", op, ErrPasswordReused)
	}

	user, err := s.provider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if !passhash.Verify(oldPassword, user.PassHash) {
		log.Warn("old password mismatch")
		return fmt.Errorf("%s: %w", op, ErrWrongOldPassword)
	}

	newHash, err := passhash.Hash(newPassword)
	if err != nil {
		log.Error("failed to hash new password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.mutator.UpdatePassword(ctx, userID, newHash); err != nil {
		log.Error("failed to update password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password changed")

	return nil
}

// DeleteAccount removes the user row together with everything hanging off it.
// The storage layer guarantees the row and its session fingerprint go in one
// atomic unit.
func (s *Service) DeleteAccount(ctx context.Context, userID int64) error {
	const op = "user.DeleteAccount"
	log := s.logger.With(slog.String("op", op), slog.Int64("userID", userID))

	if err := s.mutator.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		log.Error("failed to delete account", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("account deleted")

	return nil
}
