package http

import (
	"net/http"

	authhandler "authd/internal/http/auth"
	"authd/internal/http/middleware"
	todohandler "authd/internal/http/todo"
	userhandler "authd/internal/http/user"
	"authd/internal/lib/api/response"
	"authd/internal/lib/jwt"
)

// NewRouter wires all routes. The rate limiter guards only the login path;
// everything under /api/user and /api/todos sits behind the auth gate.
func NewRouter(
	codec *jwt.Codec,
	limiter *middleware.RateLimiter,
	authH *authhandler.Handler,
	userH *userhandler.Handler,
	todoH *todohandler.Handler,
) *http.ServeMux {
	mux := http.NewServeMux()

	gate := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.Authenticate(codec, h)
	}

	mux.HandleFunc("POST /api/auth/signup", authH.Signup)
	mux.HandleFunc("POST /api/auth/login", limiter.Limit(authH.Login))
	mux.HandleFunc("POST /api/auth/refresh", authH.Refresh)
	mux.HandleFunc("POST /api/auth/logout", authH.Logout)

	mux.HandleFunc("GET /api/user/profile", gate(userH.Profile))
	mux.HandleFunc("GET /api/user/dashboard", gate(userH.Dashboard))
	mux.HandleFunc("POST /api/user/settings/update-profile", gate(userH.UpdateProfile))
	mux.HandleFunc("POST /api/user/settings/change-password", gate(userH.ChangePassword))
	mux.HandleFunc("POST /api/user/settings/delete-account", gate(userH.DeleteAccount))

	mux.HandleFunc("GET /api/todos", gate(todoH.List))
	mux.HandleFunc("POST /api/todos", gate(todoH.Create))
	mux.HandleFunc("POST /api/todos/{id}/toggle", gate(todoH.Toggle))
	mux.HandleFunc("DELETE /api/todos/{id}", gate(todoH.Delete))

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, map[string]string{"message": "API running"})
	})

	return mux
}
