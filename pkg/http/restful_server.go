package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"liyu1981.xyz/roomwatch-service/pkg/auth"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/feed"
	"liyu1981.xyz/roomwatch-service/pkg/models"
	"liyu1981.xyz/roomwatch-service/pkg/monitor"
)

const sessionKey = "session"

type RestfulServer struct {
	Server           *gin.Engine
	Monitor          *monitor.Monitor
	Auth             *auth.Service
	RateLimiterStore *monitor.RateLimiterStore
	// Changes backs /ws/changes; nil disables the endpoint.
	Changes feed.Feed
}

func (rs *RestfulServer) GetLimiter(userID string) *rate.Limiter {
	if rs.RateLimiterStore == nil {
		return nil
	} else {
		return rs.RateLimiterStore.GetLimiter(userID)
	}
}

func (rs *RestfulServer) CheckUserLimiter(userID string) bool {
	limiter := rs.GetLimiter(userID)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

func (rs *RestfulServer) SetLimiter(userID string, userRate float64, userBurst int) {
	if rs.RateLimiterStore == nil {
		return
	}
	rs.RateLimiterStore.SetLimiter(userID, rate.Limit(userRate), userBurst)
}

func (rs *RestfulServer) Setup() {
	rs.Server.GET("/healthz", rs.HealthCheck)
	rs.Server.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authGroup := rs.Server.Group("/auth")
	{
		authGroup.POST("/signup", rs.SignUp)
		authGroup.POST("/login", rs.Login)
	}

	// the websocket handshake authenticates itself: browsers cannot set headers
	rs.Server.GET("/ws/changes", rs.WatchChanges)

	api := rs.Server.Group("/", rs.Authenticate, rs.RateLimit)
	{
		api.GET("/profile", rs.GetProfile)
		api.PUT("/profile", rs.UpdateProfile)

		api.GET("/rooms", rs.ListRooms)
		api.POST("/rooms", rs.CreateRoom)
		api.GET("/rooms/:room_id", rs.GetRoom)
		api.PUT("/rooms/:room_id", rs.UpdateRoom)
		api.DELETE("/rooms/:room_id", rs.DeleteRoom)
		api.GET("/rooms/:room_id/thresholds", rs.GetThresholds)
		api.PUT("/rooms/:room_id/thresholds", rs.UpdateThresholds)
		api.GET("/rooms/:room_id/readings", rs.ListReadings)
		api.POST("/rooms/:room_id/readings", rs.PostReading)

		api.POST("/sync", rs.SyncAll)

		api.GET("/alerts", rs.ListAlerts)
		api.GET("/alerts/stats", rs.AlertStats)
		api.PATCH("/alerts/:alert_id", rs.SetAlertHandled)
		api.DELETE("/alerts/:alert_id", rs.DeleteAlert)
		api.DELETE("/alerts", rs.DeleteHandledAlerts)
	}

	// adjusting the limiter must work while the caller is being limited
	rs.Server.POST("/limiter", rs.Authenticate, rs.PostLimiter)
}

const shutdownTimeout = 10 * time.Second

// Run serves on addr until ctx is done, then drains in-flight requests.
func (rs *RestfulServer) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: rs.Server}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger().Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameRestfulServer)
}

func (rs *RestfulServer) sessionFromHeader(c *gin.Context) (*models.Session, bool) {
	token, ok := auth.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		token = c.Query("access_token")
	}
	if token == "" || rs.Auth == nil {
		return nil, false
	}
	session, err := rs.Auth.ParseToken(token)
	if err != nil {
		return nil, false
	}
	return session, true
}

// Authenticate puts the caller's session on both the gin and the request
// context. Requests without a valid bearer token stop here with 401.
func (rs *RestfulServer) Authenticate(c *gin.Context) {
	session, ok := rs.sessionFromHeader(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": models.ErrAuthRequired.Error()})
		return
	}
	c.Set(sessionKey, session)
	c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), session))
	c.Next()
}

func (rs *RestfulServer) RateLimit(c *gin.Context) {
	if !rs.CheckUserLimiter(userID(c)) {
		c.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	c.Next()
}

func userID(c *gin.Context) string {
	if s, ok := c.Get(sessionKey); ok {
		return s.(*models.Session).UserID
	}
	return ""
}

// respondError maps service errors onto status codes. Anything unrecognised
// is logged and reported as 500 without its details.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrAuthRequired), errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger().Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
