package todo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"authd/internal/domain/models"
	"authd/internal/http/middleware"
	"authd/internal/lib/api/response"
	"authd/internal/services/todo"
)

type Service interface {
	List(ctx context.Context, userID int64) ([]models.Todo, error)
	Add(ctx context.Context, userID int64, task string) (*models.Todo, error)
	Toggle(ctx context.Context, userID, todoID int64) (*models.Todo, error)
	Delete(ctx context.Context, userID, todoID int64) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r.Context())
	if !ok {
		response.WriteErr(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	todos, err := h.service.List(r.Context(), identity.UserID)
	if err != nil {
		response.WriteErr(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"todos": todos})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r.Context())
	if !ok {
		response.WriteErr(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var in struct {
		Task string `json:"task"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.WriteErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(in.Task) == "" {
		response.WriteErr(w, http.StatusBadRequest, "task is required")
		return
	}

	t, err := h.service.Add(r.Context(), identity.UserID, in.Task)
	if err != nil {
		response.WriteErr(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]any{"todo": t})
}

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r.Context())
	if !ok {
		response.WriteErr(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	todoID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.WriteErr(w, http.StatusBadRequest, "invalid todo id")
		return
	}

	t, err := h.service.Toggle(r.Context(), identity.UserID, todoID)
	if err != nil {
		if errors.Is(err, todo.ErrTodoNotFound) {
			response.WriteErr(w, http.StatusNotFound, "todo not found")
			return
		}
		response.WriteErr(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"todo": t})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r.Context())
	if !ok {
		response.WriteErr(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	todoID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.WriteErr(w, http.StatusBadRequest, "invalid todo id")
		return
	}

	if err := h.service.Delete(r.Context(), identity.UserID, todoID); err != nil {
		if errors.Is(err, todo.ErrTodoNotFound) {
			response.WriteErr(w, http.StatusNotFound, "todo not found")
			return
		}
		response.WriteErr(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "todo deleted"})
}
