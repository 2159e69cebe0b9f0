package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"authd/internal/domain/models"
	"authd/internal/lib/api/response"
	"authd/internal/lib/validate"
	"authd/internal/services/auth"
)

type Service interface {
	Register(
		ctx context.Context,
		firstName, middleName, lastName, username, email, password string,
	) (int64, error)
	Login(ctx context.Context, username, password string) (*models.TokenPair, *models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FirstName  string `json:"first_name"`
		MiddleName string `json:"middle_name"`
		LastName   string `json:"last_name"`
		Username   string `json:"username"`
		Email      string `json:"email"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.WriteErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if in.FirstName == "" || in.LastName == "" || in.Username == "" || in.Email == "" || in.Password == "" {
		response.WriteErr(w, http.StatusBadRequest,
			"first_name, last_name, username, email and password are required")
		return
	}
	if !validate.Name(in.FirstName) || !validate.Name(in.LastName) ||
		(in.MiddleName != "" && !validate.Name(in.MiddleName)) {
		response.WriteErr(w, http.StatusBadRequest,
			"names must contain only letters, spaces, or hyphens (2-50 characters)")
		return
	}
	if !validate.Username(in.Username) {
		response.WriteErr(w, http.StatusBadRequest,
			"username must be 3-20 characters long and contain only letters, numbers, or underscores")
		return
	}
	if !validate.Email(in.Email) {
		response.WriteErr(w, http.StatusBadRequest, "email format is invalid")
		return
	}
	if !validate.Password(in.Password) {
		response.WriteErr(w, http.StatusBadRequest,
			"password must be at least 8 characters long and contain uppercase, lowercase, number, and special character (#?!@$%^&*.-_)")
		return
	}

	_, err := h.service.Register(r.Context(),
		in.FirstName, in.MiddleName, in.LastName, in.Username, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserAlreadyExists) {
			response.WriteErr(w, http.StatusBadRequest, "username or email already exists")
			return
		}
		response.WriteErr(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]string{"message": "user created successfully"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.WriteErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.Username == "" || in.Password == "" {
		response.WriteErr(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if !validate.Username(in.Username) {
		response.WriteErr(w, http.StatusBadRequest, "invalid username format")
		return
	}

	pair, user, err := h.service.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			response.WriteErr(w, http.StatusNotFound, "user not found")
		case errors.Is(err, auth.ErrInvalidCredentials):
			response.WriteErr(w, http.StatusUnauthorized, "invalid password")
		default:
			response.WriteErr(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{
		"message":      "login successful",
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         user.Profile(),
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Token == "" {
		response.WriteErr(w, http.StatusBadRequest, "refresh token required")
		return
	}

	pair, err := h.service.Refresh(r.Context(), in.Token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidRefreshToken):
			response.WriteErr(w, http.StatusForbidden, "invalid refresh token")
		case errors.Is(err, auth.ErrRefreshTokenInvalidated):
			response.WriteErr(w, http.StatusForbidden, "invalid or expired refresh token")
		default:
			response.WriteErr(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.RefreshToken == "" {
		response.WriteErr(w, http.StatusBadRequest, "refresh token required to logout")
		return
	}

	if err := h.service.Logout(r.Context(), in.RefreshToken); err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			response.WriteErr(w, http.StatusBadRequest, "invalid refresh token")
			return
		}
		response.WriteErr(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
