package grpc

import (
	"context"
	"time"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/roomwatch-service/pkg/auth"
	"liyu1981.xyz/roomwatch-service/pkg/feed"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

const (
	// SubscribedHeader is sent once the server side of WatchChanges is
	// attached to the feed, so clients know no later change is missed.
	SubscribedHeader = "roomwatch-subscribed"

	streamSendBuffer = 64
)

func sessionUser(ctx context.Context) string {
	if s, found := auth.SessionFrom(ctx); found {
		return s.UserID
	}
	return ""
}

type readingRequest struct {
	RoomID      string    `zog:"room_id"`
	Timestamp   time.Time `zog:"timestamp"`
	Temperature float64   `zog:"temperature"`
	Humidity    float64   `zog:"humidity"`
	AirQuality  *float64  `zog:"air_quality"`
}

var readingRequestSchema = z.Struct(z.Shape{
	"RoomID":      z.String().Min(1).Required(),
	"Timestamp":   z.Time(),
	"Temperature": z.Float64().GTE(-60).LTE(100),
	"Humidity":    z.Float64().GTE(0).LTE(100),
	"AirQuality":  z.Ptr(z.Float64().GTE(0)),
})

func (s *RoomWatchServer) PostReading(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r readingRequest
	if issues := readingRequestSchema.Parse(req.AsMap(), &r); issues != nil {
		return invalid(issues)
	}

	result, err := s.Monitor.Reading.RecordReading(ctx, sessionUser(ctx), r.RoomID, &models.Reading{
		Timestamp:   r.Timestamp,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		AirQuality:  r.AirQuality,
	})
	if err != nil {
		return failed(err)
	}

	return succeed(map[string]any{"result": result})
}

type thresholdsRequest struct {
	RoomID               string  `zog:"room_id"`
	MinTemp              float64 `zog:"min_temp"`
	MaxTemp              float64 `zog:"max_temp"`
	MinHumidity          float64 `zog:"min_humidity"`
	MaxHumidity          float64 `zog:"max_humidity"`
	MaxAQI               float64 `zog:"max_aqi"`
	NotificationsEnabled bool    `zog:"notifications_enabled"`
}

var thresholdsRequestSchema = z.Struct(z.Shape{
	"RoomID":               z.String().Min(1).Required(),
	"MinTemp":              z.Float64().GTE(-60).LTE(100),
	"MaxTemp":              z.Float64().GTE(-60).LTE(100),
	"MinHumidity":          z.Float64().GTE(0).LTE(100),
	"MaxHumidity":          z.Float64().GTE(0).LTE(100),
	"MaxAQI":               z.Float64().GTE(0),
	"NotificationsEnabled": z.Bool(),
})

func (s *RoomWatchServer) UpdateThresholds(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r thresholdsRequest
	if issues := thresholdsRequestSchema.Parse(req.AsMap(), &r); issues != nil {
		return invalid(issues)
	}

	thresholds, err := s.Monitor.Threshold.UpdateThresholds(ctx, sessionUser(ctx), r.RoomID, &models.Thresholds{
		MinTemp:              r.MinTemp,
		MaxTemp:              r.MaxTemp,
		MinHumidity:          r.MinHumidity,
		MaxHumidity:          r.MaxHumidity,
		MaxAQI:               r.MaxAQI,
		NotificationsEnabled: r.NotificationsEnabled,
	})
	if err != nil {
		return failed(err)
	}

	return succeed(map[string]any{"thresholds": thresholds})
}

func (s *RoomWatchServer) ListAlerts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filter, err := models.ParseAlertFilter(req.GetFields()["filter"].GetStringValue())
	if err != nil {
		return invalid(err)
	}

	alerts, err := s.Monitor.Alert.ListAlerts(ctx, sessionUser(ctx), filter)
	if err != nil {
		return failed(err)
	}

	return succeed(map[string]any{"alerts": alerts})
}

type handledRequest struct {
	AlertID int  `zog:"alert_id"`
	Handled bool `zog:"handled"`
}

var handledRequestSchema = z.Struct(z.Shape{
	"AlertID": z.Int().GT(0).Required(),
	"Handled": z.Bool(),
})

func (s *RoomWatchServer) SetAlertHandled(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r handledRequest
	if issues := handledRequestSchema.Parse(req.AsMap(), &r); issues != nil {
		return invalid(issues)
	}

	alert, err := s.Monitor.Alert.SetHandled(ctx, sessionUser(ctx), uint(r.AlertID), r.Handled)
	if err != nil {
		return failed(err)
	}

	return succeed(map[string]any{"alert": alert})
}

type alertRequest struct {
	AlertID int `zog:"alert_id"`
}

var alertRequestSchema = z.Struct(z.Shape{
	"AlertID": z.Int().GT(0).Required(),
})

func (s *RoomWatchServer) DeleteAlert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r alertRequest
	if issues := alertRequestSchema.Parse(req.AsMap(), &r); issues != nil {
		return invalid(issues)
	}

	if err := s.Monitor.Alert.DeleteAlert(ctx, sessionUser(ctx), uint(r.AlertID)); err != nil {
		return failed(err)
	}

	return succeed(nil)
}

func (s *RoomWatchServer) DeleteHandledAlerts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	n, err := s.Monitor.Alert.DeleteAllHandled(ctx, sessionUser(ctx))
	if err != nil {
		return failed(err)
	}

	return succeed(map[string]any{"deleted": n})
}

type limiterRequest struct {
	Rate  float64 `zog:"rate"`
	Burst int     `zog:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"rate":  z.Float64().Required(),
	"burst": z.Int().Required(),
})

func (s *RoomWatchServer) PostLimiter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r limiterRequest
	if issues := limiterRequestSchema.Parse(req.AsMap(), &r); issues != nil {
		return invalid(issues)
	}

	if s.RateLimiterStore == nil {
		return envelope(false, CodeInternal, "RateLimiterStore is not used. No effect.", nil)
	}

	s.RateLimiterStore.SetLimiter(sessionUser(ctx), rate.Limit(r.Rate), r.Burst)
	return succeed(nil)
}

// WatchChanges streams the caller's change events for one table until the
// client goes away. A client that cannot keep up is cut off with
// ResourceExhausted.
func (s *RoomWatchServer) WatchChanges(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	if s.Changes == nil {
		return status.Error(codes.Unimplemented, "change feed not configured")
	}

	ctx := stream.Context()
	userID := sessionUser(ctx)

	table := req.GetFields()["table"].GetStringValue()
	if table == "" {
		table = models.TableAlerts
	}
	if table != models.TableAlerts && table != models.TableRooms {
		return status.Error(codes.InvalidArgument, "table must be alerts or rooms")
	}

	sub, err := s.Changes.Subscribe(ctx, feed.Scope{Table: table, UserID: userID})
	if err != nil {
		logger().Error("Failed to subscribe to change feed", zap.Error(err))
		return status.Error(codes.Unavailable, "change feed unavailable")
	}
	defer sub.Close()

	events := make(chan models.ChangeEvent, streamSendBuffer)
	overflow := make(chan struct{})
	feedErr := make(chan error, 1)
	sub.OnEvent(func(ev models.ChangeEvent) {
		select {
		case events <- ev:
		default:
			select {
			case <-overflow:
			default:
				close(overflow)
			}
		}
	})
	sub.OnError(func(err error) {
		select {
		case feedErr <- err:
		default:
		}
	})

	if err := stream.SendHeader(metadata.Pairs(SubscribedHeader, "true")); err != nil {
		return err
	}

	logger().Info("Change stream opened", zap.String("user_id", userID), zap.String("table", table))

	for {
		select {
		case ev := <-events:
			msg, err := toStruct(ev)
			if err != nil {
				logger().Error("Failed to encode change event", zap.Error(err))
				continue
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		case <-overflow:
			return status.Error(codes.ResourceExhausted, "client too slow")
		case err := <-feedErr:
			logger().Warn("Change feed failed", zap.Error(err))
			return status.Error(codes.Unavailable, "change feed closed")
		case <-ctx.Done():
			logger().Info("Change stream closed", zap.String("user_id", userID))
			return nil
		}
	}
}
