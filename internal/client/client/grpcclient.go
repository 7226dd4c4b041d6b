package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/api"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      api.AuthServiceClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

var _ Client = (*GRPCClient)(nil)

func withToken(ctx context.Context, key, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(key, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken, s.refreshToken = access, refresh
}

// accessTokenInterceptor attaches the current access token to every call
// except Reissue. When the server reports the access token expired, the pair
// is reissued once and the call retried with the new token.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := s.tokens()
	if method == api.MethodReissue || access == "" {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	err := invoker(withToken(ctx, common.AccessTokenHeaderName, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refresh == "" {
		return err
	}

	if rerr := s.reissue(ctx, refresh); rerr != nil {
		return err
	}

	// tokens reissued, retrying with the new access token
	access, _ = s.tokens()
	return invoker(withToken(ctx, common.AccessTokenHeaderName, access), method, req, reply, cc, opts...)
}

func NewAuthKeeperClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	err := c.InitGRPCClient(opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// InitGRPCClient dials the endpoint. Extra options are appended to the
// defaults (insecure transport plus the token interceptor).
func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = api.NewAuthServiceClient(conn)
	return nil
}

func (s *GRPCClient) Signup(ctx context.Context, email, password, name string) error {
	req := api.NewMessage(map[string]string{
		api.FieldEmail:    email,
		api.FieldPassword: password,
		api.FieldName:     name,
	})

	if _, err := s.client.Signup(ctx, req); err != nil {
		return s.mapError(err)
	}

	return nil
}

// Login authenticates and keeps the returned token pair for later calls.
func (s *GRPCClient) Login(ctx context.Context, email, password string) error {
	req := api.NewMessage(map[string]string{
		api.FieldEmail:    email,
		api.FieldPassword: password,
	})

	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return s.mapError(err)
	}

	s.setTokens(api.StringField(resp, api.FieldAccessToken), api.StringField(resp, api.FieldRefreshToken))
	return nil
}

// Reissue exchanges the stored refresh token for a new pair.
func (s *GRPCClient) Reissue(ctx context.Context) error {
	_, refresh := s.tokens()
	if refresh == "" {
		return ErrNotLoggedIn
	}
	return s.reissue(ctx, refresh)
}

func (s *GRPCClient) reissue(ctx context.Context, refresh string) error {
	resp, err := s.client.Reissue(withToken(ctx, common.RefreshTokenHeaderName, refresh), api.NewMessage(nil))
	if err != nil {
		return s.mapError(err)
	}

	s.setTokens(api.StringField(resp, api.FieldAccessToken), api.StringField(resp, api.FieldRefreshToken))
	return nil
}

// Logout revokes the current access token on the server and forgets the
// pair locally.
func (s *GRPCClient) Logout(ctx context.Context) error {
	access, _ := s.tokens()
	if access == "" {
		return ErrNotLoggedIn
	}

	if _, err := s.client.Logout(ctx, api.NewMessage(nil)); err != nil {
		return s.mapError(err)
	}

	s.setTokens("", "")
	return nil
}

func (s *GRPCClient) LoggedIn() bool {
	access, _ := s.tokens()
	return access != ""
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, api.NewMessage(nil))
	if err != nil {
		return s.mapError(err)
	}

	if api.StringField(resp, api.FieldStatus) != "OK" {
		return ErrUnavailable
	}

	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.AlreadyExists:
		return ErrAlreadyExists
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
