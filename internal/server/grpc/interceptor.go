package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/api"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const (
	payloadKey  ctxKey = "tokenPayload"
	rawTokenKey ctxKey = "rawToken"
)

// verifiedToken is what the token interceptor leaves in the context for
// the handler.
type verifiedToken struct {
	payload *models.TokenPayload
	raw     string
}

func withToken(ctx context.Context, payload *models.TokenPayload, raw string) context.Context {
	ctx = context.WithValue(ctx, payloadKey, payload)
	return context.WithValue(ctx, rawTokenKey, raw)
}

func tokenFromContext(ctx context.Context) (verifiedToken, bool) {
	payload, ok := ctx.Value(payloadKey).(*models.TokenPayload)
	if !ok || payload == nil {
		return verifiedToken{}, false
	}
	raw, _ := ctx.Value(rawTokenKey).(string)
	return verifiedToken{payload: payload, raw: raw}, raw != ""
}

func tokenFromMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// tokenInterceptor guards Reissue with a refresh token and Logout with an
// access token. Other methods pass through.
func (s *GRPCServer) tokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	switch info.FullMethod {
	case api.MethodReissue:
		token := tokenFromMetadata(ctx, common.RefreshTokenHeaderName)
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}
		payload, err := s.auth.VerifyRefresh(token)
		if err != nil {
			return nil, s.toStatus(ctx, err)
		}
		ctx = withToken(ctx, payload, token)

	case api.MethodLogout:
		token := tokenFromMetadata(ctx, common.AccessTokenHeaderName)
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}
		payload, err := s.auth.Authenticate(ctx, token)
		if err != nil {
			return nil, s.toStatus(ctx, err)
		}
		ctx = withToken(ctx, payload, token)
	}

	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "request handled",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}
