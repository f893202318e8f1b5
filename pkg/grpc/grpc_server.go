package grpc

import (
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"liyu1981.xyz/roomwatch-service/pkg/auth"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/feed"
	"liyu1981.xyz/roomwatch-service/pkg/monitor"
)

type RoomWatchServer struct {
	Monitor          *monitor.Monitor
	Auth             *auth.Service
	RateLimiterStore *monitor.RateLimiterStore
	// Changes backs WatchChanges; nil makes it return Unimplemented.
	Changes feed.Feed
}

func (s *RoomWatchServer) GetLimiter(userID string) *rate.Limiter {
	if s.RateLimiterStore == nil {
		return nil
	} else {
		return s.RateLimiterStore.GetLimiter(userID)
	}
}

func (s *RoomWatchServer) CheckUserLimiter(userID string) bool {
	limiter := s.GetLimiter(userID)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameGrpcServer)
}
