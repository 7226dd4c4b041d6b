package client

import "context"

type Client interface {
	Close() error
	Signup(ctx context.Context, email, password, name string) error
	Login(ctx context.Context, email, password string) error
	Reissue(ctx context.Context) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	LoggedIn() bool
}
