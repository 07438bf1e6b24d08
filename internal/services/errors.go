package services

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAuthUnavailable    = errors.New("authentication is not configured")
	ErrAlreadyRegistered  = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrPasswordTimeout    = errors.New("password update timed out")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)
