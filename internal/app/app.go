package app

import (
	"context"
	"log/slog"

	httpapp "authd/internal/app/http"
	"authd/internal/config"
	"authd/internal/domain/models"
	authhandler "authd/internal/http/auth"
	"authd/internal/http/middleware"
	todohandler "authd/internal/http/todo"
	userhandler "authd/internal/http/user"
	"authd/internal/lib/jwt"
	"authd/internal/services/auth"
	"authd/internal/services/todo"
	"authd/internal/services/user"
	"authd/internal/storage/mongodb"
	"authd/internal/storage/sqlite"

	router "authd/internal/http"
)

// Store is the full storage surface the services consume; both the sqlite
// and mongodb implementations satisfy it.
type Store interface {
	SaveUser(ctx context.Context, firstName, middleName, lastName, username, email string, passHash []byte) (int64, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByID(ctx context.Context, userID int64) (*models.User, error)
	UserByRefreshFingerprint(ctx context.Context, fingerprint string) (*models.User, error)
	SetRefreshFingerprint(ctx context.Context, userID int64, fingerprint *string) error
	RotateRefreshFingerprint(ctx context.Context, userID int64, oldFingerprint, newFingerprint string) error
	ClearRefreshFingerprint(ctx context.Context, fingerprint string) (bool, error)
	UpdateProfile(ctx context.Context, userID int64, firstName, middleName, lastName, email string) error
	UpdatePassword(ctx context.Context, userID int64, passHash []byte) error
	DeleteUser(ctx context.Context, userID int64) error
	Todos(ctx context.Context, userID int64) ([]models.Todo, error)
	SaveTodo(ctx context.Context, userID int64, task string) (int64, error)
	ToggleTodo(ctx context.Context, userID, todoID int64) (*models.Todo, error)
	DeleteTodo(ctx context.Context, userID, todoID int64) error
}

type App struct {
	HTTPSrv *httpapp.App
}

func New(logger *slog.Logger, cfg *config.Config) *App {
	var store Store
	switch cfg.Storage {
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.Timeout)
		defer cancel()
		s, err := mongodb.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			panic(err)
		}
		store = s
	default:
		s, err := sqlite.New(cfg.StoragePath)
		if err != nil {
			panic(err)
		}
		store = s
	}

	codec := jwt.NewCodec(cfg.JWTSecret)

	authService := auth.New(logger, store, store, store, codec, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	userService := user.New(logger, store, store)
	todoService := todo.New(logger, store)

	limiter := middleware.NewRateLimiter(cfg.LoginRateLimit.Window, cfg.LoginRateLimit.Max)

	mux := router.NewRouter(
		codec,
		limiter,
		authhandler.NewHandler(authService),
		userhandler.NewHandler(userService),
		todohandler.NewHandler(todoService),
	)

	httpApp := httpapp.New(logger, mux, cfg.HTTP.Port, cfg.HTTP.Timeout)

	return &App{
		HTTPSrv: httpApp,
	}
}
