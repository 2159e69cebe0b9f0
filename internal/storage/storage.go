package storage

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionRotated    = errors.New("session rotated concurrently")
	ErrTodoNotFound      = errors.New("todo not found")
)
