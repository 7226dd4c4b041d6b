// Package grpc exposes the auth service over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/authkeeper/internal/api"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

// AuthService is the part of services.AuthService the transport needs.
type AuthService interface {
	Signup(ctx context.Context, data models.SignupData) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	ReissueTokens(ctx context.Context, payload models.TokenPayload, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, payload models.TokenPayload, accessToken string) error
	Authenticate(ctx context.Context, accessToken string) (*models.TokenPayload, error)
	VerifyRefresh(refreshToken string) (*models.TokenPayload, error)
}

type GRPCServer struct {
	address string
	auth    AuthService
	logger  logging.Logger
}

var _ api.AuthServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, as AuthService) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		auth:    as,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.tokenInterceptor),
	)
	api.RegisterAuthServiceServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	defer close(stopped)

	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			srv.GracefulStop()
		case <-stopped:
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
