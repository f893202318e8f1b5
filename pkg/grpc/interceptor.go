package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"liyu1981.xyz/roomwatch-service/pkg/auth"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

const authorizationKey = "authorization"

func (s *RoomWatchServer) authenticate(ctx context.Context) (context.Context, error) {
	if s.Auth == nil {
		return nil, status.Error(codes.Unauthenticated, models.ErrAuthRequired.Error())
	}
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get(authorizationKey)
	if len(values) == 0 {
		return nil, status.Error(codes.Unauthenticated, models.ErrAuthRequired.Error())
	}
	token, found := auth.BearerToken(values[0])
	if !found {
		return nil, status.Error(codes.Unauthenticated, models.ErrAuthRequired.Error())
	}
	session, err := s.Auth.ParseToken(token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	return auth.WithSession(ctx, session), nil
}

// AuthUnaryInterceptor rejects calls without a valid bearer token in the
// authorization metadata and puts the session on the handler's context.
func (s *RoomWatchServer) AuthUnaryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	ctx, err := s.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

type sessionStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (ss *sessionStream) Context() context.Context {
	return ss.ctx
}

func (s *RoomWatchServer) AuthStreamInterceptor(
	srv any,
	ss grpc.ServerStream,
	info *grpc.StreamServerInfo,
	handler grpc.StreamHandler,
) error {
	ctx, err := s.authenticate(ss.Context())
	if err != nil {
		return err
	}
	return handler(srv, &sessionStream{ServerStream: ss, ctx: ctx})
}

// CreateRateLimitInterceptor limits the listed methods per signed-in user. It
// must run after AuthUnaryInterceptor.
func (s *RoomWatchServer) CreateRateLimitInterceptor(targetMethods []string) grpc.UnaryServerInterceptor {
	targetMethodMap := common.Reducer(targetMethods,
		func(m map[string]bool, method string) map[string]bool {
			m[method] = true
			return m
		},
		map[string]bool{},
	)

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if _, ok := targetMethodMap[info.FullMethod]; ok {
			if !s.CheckUserLimiter(sessionUser(ctx)) {
				return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded")
			}
		}

		return handler(ctx, req)
	}
}

// RateLimitedMethods is every unary method except PostLimiter, which has to
// keep working while its caller is being limited.
var RateLimitedMethods = []string{
	MethodPostReading,
	MethodUpdateThresholds,
	MethodListAlerts,
	MethodSetAlertHandled,
	MethodDeleteAlert,
	MethodDeleteHandledAlerts,
}

// NewServer builds a grpc.Server with the service registered behind the auth
// and rate limit interceptors.
func (s *RoomWatchServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(s.AuthUnaryInterceptor, s.CreateRateLimitInterceptor(RateLimitedMethods)),
		grpc.ChainStreamInterceptor(s.AuthStreamInterceptor),
	)
	server := grpc.NewServer(opts...)
	RegisterRoomWatchServer(server, s)
	return server
}
