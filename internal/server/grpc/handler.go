package grpc

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/api"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Signup(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	s.logger.Info(ctx, "Signup request")

	user, err := s.auth.Signup(ctx, models.SignupData{
		Email:    api.StringField(req, api.FieldEmail),
		Password: api.StringField(req, api.FieldPassword),
		Name:     api.StringField(req, api.FieldName),
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "user_id", user.ID)
	return api.NewMessage(map[string]string{api.FieldStatus: "registered"}), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	pair, err := s.auth.Login(ctx, api.StringField(req, api.FieldEmail), api.StringField(req, api.FieldPassword))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return pairMessage(pair), nil
}

func (s *GRPCServer) Reissue(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	tok, ok := tokenFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	pair, err := s.auth.ReissueTokens(ctx, *tok.payload, tok.raw)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return pairMessage(pair), nil
}

func (s *GRPCServer) Logout(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	tok, ok := tokenFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	if err := s.auth.Logout(ctx, *tok.payload, tok.raw); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return api.NewMessage(map[string]string{api.FieldStatus: "logged out"}), nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return api.NewMessage(map[string]string{api.FieldStatus: "OK"}), nil
}

func pairMessage(p *models.TokenPair) *structpb.Struct {
	return api.NewMessage(map[string]string{
		api.FieldAccessToken:  p.AccessToken,
		api.FieldRefreshToken: p.RefreshToken,
	})
}
