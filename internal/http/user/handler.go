package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"authd/internal/domain/models"
	"authd/internal/http/middleware"
	"authd/internal/lib/api/response"
	"authd/internal/lib/validate"
	"authd/internal/services/user"
)

type Service interface {
	Profile(ctx context.Context, userID int64) (*models.User, error)
	UpdateProfile(
		ctx context.Context,
		userID int64,
		firstName, middleName, lastName, email string,
	) (*models.User, error)
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
	DeleteAccount(ctx context.Context, userID int64) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r.Context())
	if !ok {
		response.WriteErr(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	u, err := h.service.Profile(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			response.WriteErr(w, http.StatusNotFound, "user not found")
			return
		}
		response.WriteErr(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"user": u.Profile()})
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r.Context())
	if !ok {
		response.WriteErr(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Welcome to your dashboard, %s!", identity.Username),
		"userId":  identity.UserID,
	})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r.Context())
	if !ok {
		response.WriteErr(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var in struct {
		FirstName  string `json:"first_name"`
		MiddleName string `json:"middle_name"`
		LastName   string `json:"last_name"`
		Email      string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.WriteErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.FirstName == "" || in.LastName == "" || in.Email == "" {
		response.WriteErr(w, http.StatusBadRequest, "first_name, last_name and email are required")
		return
	}
	if !validate.Name(in.FirstName) || !validate.Name(in.LastName) ||
		(in.MiddleName != "" && !validate.Name(in.MiddleName)) {
		response.WriteErr(w, http.StatusBadRequest, "invalid name format")
		return
	}
	if !validate.Email(in.Email) {
		response.WriteErr(w, http.StatusBadRequest, "invalid email format")
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), identity.UserID,
		in.FirstName, in.MiddleName, in.LastName, in.Email)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrUserNotFound):
			response.WriteErr(w, http.StatusNotFound, "user not found")
		case errors.Is(err, user.ErrEmailTaken):
			response.WriteErr(w, http.StatusBadRequest, "email already in use")
		default:
			response.WriteErr(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "profile updated",
		"user":    updated.Profile(),
	})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r.Context())
	if !ok {
		response.WriteErr(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var in struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.WriteErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.OldPassword == "" || in.NewPassword == "" {
		response.WriteErr(w, http.StatusBadRequest, "oldPassword and newPassword are required")
		return
	}
	if !validate.Password(in.NewPassword) {
		response.WriteErr(w, http.StatusBadRequest,
			"new password must be at least 8 characters long and contain uppercase, lowercase, number, and special character (#?!@$%^&*.-_)")
		return
	}

	err := h.service.ChangePassword(r.Context(), identity.UserID, in.OldPassword, in.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrUserNotFound):
			response.WriteErr(w, http.StatusNotFound, "user not found")
		case errors.Is(err, user.ErrWrongOldPassword):
			response.WriteErr(w, http.StatusBadRequest, "old password is incorrect")
		case errors.Is(err, user.ErrPasswordReused):
			response.WriteErr(w, http.StatusBadRequest, "new password must be different from the old password")
		default:
			response.WriteErr(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "password changed successfully"})
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r.Context())
	if !ok {
		response.WriteErr(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if err := h.service.DeleteAccount(r.Context(), identity.UserID); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			response.WriteErr(w, http.StatusNotFound, "user not found")
			return
		}
		response.WriteErr(w, http.StatusInternalServerError, "failed to delete account")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "account deleted successfully"})
}
