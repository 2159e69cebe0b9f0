package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"authd/internal/domain/models"
	"authd/internal/lib/sl"
	"authd/internal/storage"
)

// Service manages a user's task list. Ownership checks happen in storage
// queries, so one user can never touch another's todos.
type Service struct {
	logger *slog.Logger
	store  TodoStore
}

type TodoStore interface {
	Todos(ctx context.Context, userID int64) ([]models.Todo, error)
	SaveTodo(ctx context.Context, userID int64, task string) (int64, error)
	ToggleTodo(ctx context.Context, userID, todoID int64) (*models.Todo, error)
	DeleteTodo(ctx context.Context, userID, todoID int64) error
}

var ErrTodoNotFound = errors.New("todo not found")

func New(logger *slog.Logger, store TodoStore) *Service {
	return &Service{logger: logger, store: store}
}

func (s *Service) List(ctx context.Context, userID int64) ([]models.Todo, error) {
	const op = "todo.List"

	todos, err := s.store.Todos(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list todos", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return todos, nil
}

func (s *Service) Add(ctx context.Context, userID int64, task string) (*models.Todo, error) {
	const op = "todo.Add"

	id, err := s.store.SaveTodo(ctx, userID, task)
	if err != nil {
		s.logger.Error("failed to save todo", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.Todo{ID: id, UserID: userID, Task: task}, nil
}

func (s *Service) Toggle(ctx context.Context, userID, todoID int64) (*models.Todo, error) {
	const op = "todo.Toggle"

	t, err := s.store.ToggleTodo(ctx, userID, todoID)
	if err != nil {
		if errors.Is(err, storage.ErrTodoNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTodoNotFound)
		}
		s.logger.Error("failed to toggle todo", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, userID, todoID int64) error {
	const op = "todo.Delete"

	if err := s.store.DeleteTodo(ctx, userID, todoID); err != nil {
		if errors.Is(err, storage.ErrTodoNotFound) {
			return fmt.Errorf("%s: %w", op, ErrTodoNotFound)
		}
		s.logger.Error("failed to delete todo", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
