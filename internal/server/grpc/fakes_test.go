package grpc

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

// fakeAuth records what the transport passed in and returns canned results.
type fakeAuth struct {
	mu sync.Mutex

	signupData models.SignupData
	signupErr  error

	loginEmail, loginPassword string
	loginPair                 *models.TokenPair
	loginErr                  error

	reissuePayload models.TokenPayload
	reissueToken   string
	reissuePair    *models.TokenPair
	reissueErr     error

	logoutPayload models.TokenPayload
	logoutToken   string
	logoutErr     error

	authToken   string
	authPayload *models.TokenPayload
	authErr     error

	refreshToken   string
	refreshPayload *models.TokenPayload
	refreshErr     error
}

func (f *fakeAuth) Signup(_ context.Context, d models.SignupData) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signupData = d
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &models.User{ID: "u-1", Email: d.Email, Name: d.Name}, nil
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*models.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginEmail, f.loginPassword = email, password
	return f.loginPair, f.loginErr
}

func (f *fakeAuth) ReissueTokens(_ context.Context, p models.TokenPayload, token string) (*models.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reissuePayload, f.reissueToken = p, token
	return f.reissuePair, f.reissueErr
}

func (f *fakeAuth) Logout(_ context.Context, p models.TokenPayload, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutPayload, f.logoutToken = p, token
	return f.logoutErr
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*models.TokenPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authToken = token
	return f.authPayload, f.authErr
}

func (f *fakeAuth) VerifyRefresh(token string) (*models.TokenPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshToken = token
	return f.refreshPayload, f.refreshErr
}

func newServer(a *fakeAuth) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", nopLogger{}, a)
}
