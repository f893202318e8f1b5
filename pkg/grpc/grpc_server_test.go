package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"liyu1981.xyz/roomwatch-service/pkg/auth"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/db"
	"liyu1981.xyz/roomwatch-service/pkg/feed"
	"liyu1981.xyz/roomwatch-service/pkg/models"
	"liyu1981.xyz/roomwatch-service/pkg/monitor"
	"liyu1981.xyz/roomwatch-service/pkg/monitor/mocks"
	"liyu1981.xyz/roomwatch-service/pkg/reconcile"
	_ "liyu1981.xyz/roomwatch-service/pkg/testing"
)

const bufSize = 1024 * 1024

type testEnv struct {
	Server *RoomWatchServer
	Broker *feed.Broker
	Conn   *grpc.ClientConn
	Token  string
	UserID string
}

func (e *testEnv) client() *Client {
	return NewClient(e.Conn, e.Token)
}

func (e *testEnv) createRoom(t *testing.T, name string) models.Room {
	room, err := e.Server.Monitor.Room.CreateRoom(context.Background(), e.UserID, &models.Room{Name: name})
	require.NoError(t, err)
	return room
}

func startTestServerWithLimiter(t *testing.T, limiterStore *monitor.RateLimiterStore) *testEnv {
	listener := bufconn.Listen(bufSize)

	dbInstance, err := db.Open(db.UseMemorySqliteDialector())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbInstance.Close() })

	broker := feed.NewBroker()
	t.Cleanup(func() { _ = broker.Close() })

	rws := &RoomWatchServer{
		Monitor:          monitor.New(dbInstance, monitor.Options{Publisher: broker, SuppressDuplicates: true}),
		Auth:             auth.NewService(dbInstance, "test-secret", time.Hour),
		RateLimiterStore: limiterStore,
		Changes:          broker,
	}
	server := rws.NewServer()

	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, s string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	profile, token, err := rws.Auth.SignUp(context.Background(), uuid.NewString()+"@example.com", "hunter22", "Tester")
	require.NoError(t, err)

	return &testEnv{Server: rws, Broker: broker, Conn: conn, Token: token, UserID: profile.ID}
}

func startTestServer(t *testing.T) *testEnv {
	return startTestServerWithLimiter(t, nil)
}

// invoke calls a method directly so the reply envelope can be inspected.
func invoke(t *testing.T, env *testEnv, method string, req map[string]any) *structpb.Struct {
	in, err := structpb.NewStruct(req)
	require.NoError(t, err)
	out := new(structpb.Struct)
	require.NoError(t, env.Conn.Invoke(env.client().outgoing(context.Background()), method, in, out))
	return out
}

func envelopeStatus(reply *structpb.Struct) replyStatus {
	var st replyStatus
	_ = fromValue(reply.GetFields()["status"], &st)
	return st
}

func TestPostReadingAndListAlerts(t *testing.T) {
	common.SetTestLoggerNop()
	env := startTestServer(t)
	client := env.client()
	ctx := context.Background()

	room := env.createRoom(t, "Bedroom")

	thresholds, err := client.UpdateThresholds(ctx, room.ID, models.Thresholds{
		MinTemp: 18, MaxTemp: 30, MinHumidity: 30, MaxHumidity: 70, MaxAQI: 100, NotificationsEnabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 30.0, thresholds.MaxTemp)

	result, err := client.PostReading(ctx, room.ID, models.Reading{
		Timestamp:   time.Now(),
		Temperature: 35.0,
		Humidity:    50.0,
	})
	require.NoError(t, err)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, models.AlertTypeTemperatureHigh, result.Alerts[0].Type)
	assert.Equal(t, room.ID, result.Room.ID)

	alerts, err := client.LoadAlerts(ctx, env.UserID, models.AlertFilterAll)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	handled, err := client.SetAlertHandled(ctx, env.UserID, result.Alerts[0].ID, true)
	require.NoError(t, err)
	assert.True(t, handled.Handled)

	n, err := client.DeleteAllHandled(ctx, env.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	alerts, err = client.LoadAlerts(ctx, env.UserID, models.AlertFilterAll)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertTypeRoomAdded, alerts[0].Type)

	require.NoError(t, client.DeleteAlert(ctx, env.UserID, alerts[0].ID))
	alerts, err = client.LoadAlerts(ctx, env.UserID, models.AlertFilterAll)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestAuthentication(t *testing.T) {
	common.SetTestLoggerNop()
	env := startTestServer(t)

	{
		_, err := NewClient(env.Conn, "").LoadAlerts(context.Background(), "", models.AlertFilterAll)
		require.Error(t, err)
		st, ok := status.FromError(err)
		require.True(t, ok, "expected gRPC status error")
		assert.Equal(t, codes.Unauthenticated, st.Code())
	}

	{
		_, err := NewClient(env.Conn, "not-a-jwt").LoadAlerts(context.Background(), "", models.AlertFilterAll)
		require.Error(t, err)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	}

	{
		_, err := NewClient(env.Conn, "").Subscribe(context.Background(), feed.Scope{Table: models.TableAlerts})
		require.Error(t, err)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	}
}

func TestPostReading_EdgeCases(t *testing.T) {
	common.SetTestLoggerNop()
	env := startTestServer(t)
	room := env.createRoom(t, "Office")

	{
		// empty room_id will fail validation
		r := invoke(t, env, MethodPostReading, map[string]any{"temperature": 20.0, "humidity": 50.0})
		st := envelopeStatus(r)
		assert.False(t, st.Success, "expected PostReading to fail")
		assert.Equal(t, CodeInvalid, st.Code)
		assert.True(t, strings.Contains(st.Message, "validation error"), "expected PostReading to fail with validation error")
	}

	{
		r := invoke(t, env, MethodPostReading, map[string]any{"room_id": room.ID, "temperature": 500.0, "humidity": 50.0})
		st := envelopeStatus(r)
		assert.False(t, st.Success)
		assert.Equal(t, CodeInvalid, st.Code)
	}

	{
		// rooms of other users look missing
		_, err := env.client().PostReading(context.Background(), uuid.NewString(), models.Reading{Temperature: 20, Humidity: 50})
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrNotFound))
	}

	{
		_, err := env.client().UpdateThresholds(context.Background(), room.ID, models.Thresholds{
			MinTemp: 25, MaxTemp: 20, MinHumidity: 30, MaxHumidity: 70, MaxAQI: 100,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrValidation))
	}
}

func startTestServerWithMocks(t *testing.T) (*gomock.Controller, *testEnv, *mocks.MockIAlert) {
	ctrl := gomock.NewController(t)
	env := startTestServer(t)

	mockIAlert := mocks.NewMockIAlert(ctrl)
	env.Server.Monitor.WithServices(monitor.ServiceOpts{Alert: mockIAlert})

	return ctrl, env, mockIAlert
}

func TestAlerts_EdgeCases(t *testing.T) {
	common.SetTestLoggerNop()

	{
		env := startTestServer(t)

		r := invoke(t, env, MethodListAlerts, map[string]any{"filter": "someday"})
		assert.Equal(t, CodeInvalid, envelopeStatus(r).Code)

		r = invoke(t, env, MethodSetAlertHandled, map[string]any{"handled": true})
		assert.Equal(t, CodeInvalid, envelopeStatus(r).Code)

		r = invoke(t, env, MethodDeleteAlert, map[string]any{"alert_id": 424242.0})
		assert.Equal(t, CodeNotFound, envelopeStatus(r).Code)
	}

	{
		ctrl, env, mockIAlert := startTestServerWithMocks(t)
		defer ctrl.Finish()

		// internal error should fail too
		mockIAlert.EXPECT().
			ListAlerts(gomock.Any(), gomock.Eq(env.UserID), gomock.Eq(models.AlertFilterUnhandled)).
			Return(nil, fmt.Errorf("test error")).
			Times(1)

		r := invoke(t, env, MethodListAlerts, map[string]any{"filter": "unhandled"})
		st := envelopeStatus(r)
		assert.False(t, st.Success, "expected ListAlerts to fail")
		assert.Equal(t, CodeInternal, st.Code)
		assert.True(t, strings.Contains(st.Message, "test error"), "expected ListAlerts to fail with test error")
	}
}

func TestRateLimitInterceptor(t *testing.T) {
	common.SetTestLoggerNop()

	limiterStore := monitor.NewRateLimiterStore(2, 2) // Allow 2 req/sec per user
	env := startTestServerWithLimiter(t, limiterStore)
	client := env.client()
	ctx := context.Background()

	// First 2 requests should pass
	for i := range 2 {
		_, err := client.LoadAlerts(ctx, env.UserID, models.AlertFilterAll)
		require.NoError(t, err, "expected request %d to pass", i+1)
	}

	// 3rd request should fail immediately
	_, err := client.LoadAlerts(ctx, env.UserID, models.AlertFilterAll)
	require.Error(t, err, "expected third request to be rate limited")

	st, ok := status.FromError(err)
	require.True(t, ok, "expected gRPC status error")
	require.Equal(t, codes.ResourceExhausted, st.Code(), "expected ResourceExhausted code")

	// increase rate limiter, which is not itself limited
	require.NoError(t, client.PostLimiter(ctx, 100, 100))

	// Should pass again
	_, err = client.LoadAlerts(ctx, env.UserID, models.AlertFilterAll)
	require.NoError(t, err, "expected request after raising the limit to pass")
}

func TestPostLimiter_EdgeCases(t *testing.T) {
	common.SetTestLoggerNop()
	env := startTestServer(t)

	r := invoke(t, env, MethodPostLimiter, map[string]any{})
	assert.Equal(t, CodeInvalid, envelopeStatus(r).Code)

	err := env.client().PostLimiter(context.Background(), 2, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No effect")
}

func TestWatchChanges(t *testing.T) {
	common.SetTestLoggerNop()
	env := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	scope := feed.Scope{Table: models.TableAlerts, UserID: env.UserID}
	sub, err := env.client().Subscribe(ctx, scope)
	require.NoError(t, err)

	received := make(chan models.ChangeEvent, 4)
	sub.OnEvent(func(ev models.ChangeEvent) { received <- ev })

	// Subscribe returns only once the server side is attached
	assert.Equal(t, 1, env.Broker.Subscribers(scope))

	env.createRoom(t, "Kitchen")

	select {
	case ev := <-received:
		change, err := models.DecodeAlertChange(ev)
		require.NoError(t, err)
		assert.Equal(t, models.EventInsert, change.Type)
		assert.Equal(t, "Kitchen", change.New.RoomName)
	case <-ctx.Done():
		t.Fatal("no change event received")
	}

	require.NoError(t, sub.Close())
	require.Eventually(t, func() bool {
		return env.Broker.Subscribers(scope) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatchChanges_EdgeCases(t *testing.T) {
	common.SetTestLoggerNop()
	env := startTestServer(t)

	_, err := env.client().Subscribe(context.Background(), feed.Scope{Table: "readings", UserID: env.UserID})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	env.Server.Changes = nil
	_, err = env.client().Subscribe(context.Background(), feed.Scope{Table: models.TableAlerts, UserID: env.UserID})
	require.Error(t, err)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestReconcilerOverGrpc(t *testing.T) {
	common.SetTestLoggerNop()
	env := startTestServer(t)
	client := env.client()
	ctx := context.Background()

	room := env.createRoom(t, "Nursery")

	r := reconcile.New(reconcile.Config{
		Sessions: auth.TokenSession{Token: env.Token},
		Loader:   client,
		Writer:   client,
		Feed:     client,
	})
	defer r.Close()

	require.NoError(t, r.Start(ctx))
	view := r.View()
	require.Equal(t, reconcile.StateReady, view.State)
	require.Len(t, view.Alerts, 1)

	_, err := client.PostReading(ctx, room.ID, models.Reading{Temperature: 12, Humidity: 50})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(r.View().Alerts) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, models.AlertTypeTemperatureLow, r.View().Alerts[0].Type)

	require.NoError(t, r.MarkHandled(ctx, r.View().Alerts[0].ID))
	assert.True(t, r.View().Alerts[0].Handled)

	n, err := r.DeleteAllHandled(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.Eventually(t, func() bool {
		return len(r.View().Alerts) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
