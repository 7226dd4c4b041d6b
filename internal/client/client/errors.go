package client

import "errors"

var (
	ErrUnavailable     = errors.New("server unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrAlreadyExists   = errors.New("user already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotLoggedIn     = errors.New("not logged in")
)
