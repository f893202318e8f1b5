package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/roomwatch-service/pkg/feed"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

// Client talks to a RoomWatch server as one signed-in user. It is both a
// reconcile.Store and a feed.Feed, so a remote alert list needs nothing else.
type Client struct {
	conn  grpc.ClientConnInterface
	token string
}

func NewClient(conn grpc.ClientConnInterface, token string) *Client {
	return &Client{conn: conn, token: token}
}

// Dial connects without transport security unless opts say otherwise.
func Dial(target, token string, opts ...grpc.DialOption) (*Client, *grpc.ClientConn, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, nil, err
	}
	return NewClient(conn, token), conn, nil
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, authorizationKey, "Bearer "+c.token)
}

func (c *Client) call(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), method, in, out); err != nil {
		return nil, err
	}
	if err := statusOf(out); err != nil {
		return nil, err
	}
	return out, nil
}

func field(reply *structpb.Struct, key string, dst any) error {
	v, found := reply.GetFields()[key]
	if !found {
		return fmt.Errorf("reply without %s", key)
	}
	return fromValue(v, dst)
}

func (c *Client) PostReading(ctx context.Context, roomID string, reading models.Reading) (models.RecordResult, error) {
	req := map[string]any{
		"room_id":     roomID,
		"temperature": reading.Temperature,
		"humidity":    reading.Humidity,
	}
	if !reading.Timestamp.IsZero() {
		req["timestamp"] = reading.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	if reading.AirQuality != nil {
		req["air_quality"] = *reading.AirQuality
	}

	var result models.RecordResult
	reply, err := c.call(ctx, MethodPostReading, req)
	if err != nil {
		return result, err
	}
	return result, field(reply, "result", &result)
}

func (c *Client) UpdateThresholds(ctx context.Context, roomID string, t models.Thresholds) (models.Thresholds, error) {
	var thresholds models.Thresholds
	reply, err := c.call(ctx, MethodUpdateThresholds, map[string]any{
		"room_id":               roomID,
		"min_temp":              t.MinTemp,
		"max_temp":              t.MaxTemp,
		"min_humidity":          t.MinHumidity,
		"max_humidity":          t.MaxHumidity,
		"max_aqi":               t.MaxAQI,
		"notifications_enabled": t.NotificationsEnabled,
	})
	if err != nil {
		return thresholds, err
	}
	return thresholds, field(reply, "thresholds", &thresholds)
}

// LoadAlerts ignores userID: the server answers for the token's user.
func (c *Client) LoadAlerts(ctx context.Context, _ string, filter models.AlertFilter) ([]models.Alert, error) {
	reply, err := c.call(ctx, MethodListAlerts, map[string]any{"filter": string(filter)})
	if err != nil {
		return nil, err
	}
	var alerts []models.Alert
	return alerts, field(reply, "alerts", &alerts)
}

func (c *Client) SetAlertHandled(ctx context.Context, _ string, alertID uint, handled bool) (models.Alert, error) {
	var alert models.Alert
	reply, err := c.call(ctx, MethodSetAlertHandled, map[string]any{"alert_id": alertID, "handled": handled})
	if err != nil {
		return alert, err
	}
	return alert, field(reply, "alert", &alert)
}

func (c *Client) DeleteAlert(ctx context.Context, _ string, alertID uint) error {
	_, err := c.call(ctx, MethodDeleteAlert, map[string]any{"alert_id": alertID})
	return err
}

func (c *Client) DeleteAllHandled(ctx context.Context, _ string) (int64, error) {
	reply, err := c.call(ctx, MethodDeleteHandledAlerts, map[string]any{})
	if err != nil {
		return 0, err
	}
	var n int64
	return n, field(reply, "deleted", &n)
}

func (c *Client) PostLimiter(ctx context.Context, userRate float64, userBurst int) error {
	_, err := c.call(ctx, MethodPostLimiter, map[string]any{"rate": userRate, "burst": userBurst})
	return err
}

// Subscribe opens WatchChanges and returns once the server is attached to
// its feed. The stream outlives ctx only until ctx is done; Close ends it
// earlier.
func (c *Client) Subscribe(ctx context.Context, scope feed.Scope) (feed.Subscription, error) {
	streamCtx, cancel := context.WithCancel(c.outgoing(ctx))

	cs, err := c.conn.NewStream(streamCtx, &RoomWatchServiceDesc.Streams[0], MethodWatchChanges)
	if err != nil {
		cancel()
		return nil, err
	}
	stream := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: cs}

	req, err := structpb.NewStruct(map[string]any{"table": scope.Table})
	if err != nil {
		cancel()
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		cancel()
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return nil, err
	}

	header, err := stream.Header()
	if err != nil {
		cancel()
		return nil, err
	}
	if len(header.Get(SubscribedHeader)) == 0 {
		// the server answered without attaching; the status says why
		_, err := stream.Recv()
		cancel()
		if err == nil {
			err = fmt.Errorf("change stream for %s not attached", scope.Key())
		}
		return nil, err
	}

	recv := func() (models.ChangeEvent, error) {
		var ev models.ChangeEvent
		msg, err := stream.Recv()
		if err != nil {
			return ev, err
		}
		b, err := msg.MarshalJSON()
		if err != nil {
			return ev, err
		}
		return ev, json.Unmarshal(b, &ev)
	}

	return feed.FromReceiver(scope, recv, func() error {
		cancel()
		return nil
	}), nil
}
