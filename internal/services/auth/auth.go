package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"authd/internal/domain/models"
	"authd/internal/lib/jwt"
	"authd/internal/lib/passhash"
	"authd/internal/lib/sl"
	"authd/internal/storage"
)

// Auth owns the session lifecycle. The session state per user is the
// nullable refresh fingerprint column: null means no session, a value means
// exactly one live refresh token whose SHA-256 digest equals it.
type Auth struct {
	logger          *slog.Logger
	userSaver       UserSaver
	userProvider    UserProvider
	sessionKeeper   SessionKeeper
	codec           *jwt.Codec
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

type UserSaver interface {
	SaveUser(
		ctx context.Context,
		firstName, middleName, lastName, username, email string,
		passHash []byte,
	) (uid int64, err error)
}

type UserProvider interface {
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByRefreshFingerprint(ctx context.Context, fingerprint string) (*models.User, error)
}

type SessionKeeper interface {
	SetRefreshFingerprint(ctx context.Context, userID int64, fingerprint *string) error
	RotateRefreshFingerprint(ctx context.Context, userID int64, oldFingerprint, newFingerprint string) error
	ClearRefreshFingerprint(ctx context.Context, fingerprint string) (cleared bool, err error)
}

var (
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrUserAlreadyExists       = errors.New("user already exists")
	ErrUserNotFound            = errors.New("user not found")
	ErrInvalidRefreshToken     = errors.New("invalid refresh token")
	ErrRefreshTokenInvalidated = errors.New("invalid or expired refresh token")
)

// New returns a new instance of the Auth service.
func New(
	logger *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	sessionKeeper SessionKeeper,
	codec *jwt.Codec,
	accessTokenTTL time.Duration,
	refreshTokenTTL time.Duration,
) *Auth {
	return &Auth{
		logger:          logger,
		userSaver:       userSaver,
		userProvider:    userProvider,
		sessionKeeper:   sessionKeeper,
		codec:           codec,
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
	}
}

// Register creates a new account. The password is hashed before it ever
// reaches storage; no session is opened.
func (a *Auth) Register(
	ctx context.Context,
	firstName, middleName, lastName, username, email, password string,
) (int64, error) {
	const op = "auth.Register"
	log := a.logger.With(
		slog.String("op", op),
		slog.String("username", username),
	)
	log.Info("register request")

	passHash, err := passhash.Hash(password)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	userID, err := a.userSaver.SaveUser(ctx, firstName, middleName, lastName, username, email, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			log.Warn("user already exists", sl.Err(err))
			return 0, fmt.Errorf("%s: %w", op, ErrUserAlreadyExists)
		}
		log.Error("failed to save user", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.Int64("userID", userID))

	return userID, nil
}

// Login authenticates the user and opens a session: a new access/refresh
// pair is minted and the refresh fingerprint is stored, overwriting whatever
// was there before. A previous session, if any, is silently superseded.
func (a *Auth) Login(
	ctx context.Context,
	username, password string,
) (*models.TokenPair, *models.User, error) {
	const op = "auth.Login"
	log := a.logger.With(slog.String("op", op), slog.String("username", username))
	log.Info("login request")

	user, err := a.userProvider.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found", sl.Err(err))
			return nil, nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		log.Error("failed to get user", sl.Err(err))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !passhash.Verify(password, user.PassHash) {
		log.Warn("invalid password")
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, fingerprint, err := a.mintPair(user)
	if err != nil {
		log.Error("failed to generate tokens", sl.Err(err))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sessionKeeper.SetRefreshFingerprint(ctx, user.ID, &fingerprint); err != nil {
		log.Error("failed to store refresh fingerprint", sl.Err(err))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in", slog.Int64("userID", user.ID))

	return pair, user, nil
}

// Refresh exchanges the live refresh token for a new pair and rotates the
// stored fingerprint. A token that matches no fingerprint (never issued,
// superseded, or logged out) is rejected without touching state. A token that
// matches but fails signature or expiry verification clears the session
// before rejecting, so a stale fingerprint cannot linger.
func (a *Auth) Refresh(
	ctx context.Context,
	refreshToken string,
) (*models.TokenPair, error) {
	const op = "auth.Refresh"
	log := a.logger.With(slog.String("op", op))
	log.Info("refresh request")

	fingerprint := Fingerprint(refreshToken)

	user, err := a.userProvider.UserByRefreshFingerprint(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("refresh token fingerprint unmatched")
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}
		log.Error("failed to look up fingerprint", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := a.codec.Parse(refreshToken); err != nil {
		log.Warn("refresh token failed verification, clearing session", sl.Err(err))
		if clearErr := a.sessionKeeper.SetRefreshFingerprint(ctx, user.ID, nil); clearErr != nil {
			log.Error("failed to clear refresh fingerprint", sl.Err(clearErr))
			return nil, fmt.Errorf("%s: %w", op, clearErr)
		}
		return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenInvalidated)
	}

	pair, newFingerprint, err := a.mintPair(user)
	if err != nil {
		log.Error("failed to generate tokens", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sessionKeeper.RotateRefreshFingerprint(ctx, user.ID, fingerprint, newFingerprint); err != nil {
		if errors.Is(err, storage.ErrSessionRotated) {
			log.Warn("lost rotation race")
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}
		log.Error("failed to rotate refresh fingerprint", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("tokens rotated", slog.Int64("userID", user.ID))

	return pair, nil
}

// Logout clears the session whose fingerprint matches the presented token.
// A token that matches nothing reports ErrInvalidRefreshToken and mutates
// nothing.
func (a *Auth) Logout(ctx context.Context, refreshToken string) error {
	const op = "auth.Logout"
	log := a.logger.With(slog.String("op", op))
	log.Info("logout request")

	cleared, err := a.sessionKeeper.ClearRefreshFingerprint(ctx, Fingerprint(refreshToken))
	if err != nil {
		log.Error("failed to clear refresh fingerprint", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if !cleared {
		log.Warn("logout token unmatched")
		return fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	log.Info("logged out")

	return nil
}

func (a *Auth) mintPair(user *models.User) (*models.TokenPair, string, error) {
	accessToken, err := a.codec.Generate(user, a.accessTokenTTL)
	if err != nil {
		return nil, "", err
	}

	refreshToken, err := a.codec.Generate(user, a.refreshTokenTTL)
	if err != nil {
		return nil, "", err
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, Fingerprint(refreshToken), nil
}

// Fingerprint is the hex SHA-256 digest of a raw refresh token. Only this
// value is ever persisted; a leaked database row yields no usable token.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
