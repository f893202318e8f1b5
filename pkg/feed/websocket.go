package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

// WebSocketFeed subscribes to the server's /ws/changes endpoint. The server
// scopes the stream to the token's user, so Scope.UserID is only used to
// filter what arrives.
type WebSocketFeed struct {
	URL   string
	Token string

	Dialer *websocket.Dialer
}

func DialWebSocket(baseURL, token string) *WebSocketFeed {
	return &WebSocketFeed{URL: baseURL, Token: token, Dialer: websocket.DefaultDialer}
}

func (f *WebSocketFeed) endpoint(scope Scope) (string, error) {
	u, err := url.Parse(f.URL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if !strings.HasSuffix(u.Path, "/ws/changes") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/changes"
	}
	q := u.Query()
	q.Set("table", scope.Table)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *WebSocketFeed) Subscribe(ctx context.Context, scope Scope) (Subscription, error) {
	endpoint, err := f.endpoint(scope)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if f.Token != "" {
		header.Set("Authorization", "Bearer "+f.Token)
	}

	dialer := f.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to open change stream (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("failed to open change stream: %w", err)
	}

	recv := func() (models.ChangeEvent, error) {
		var ev models.ChangeEvent
		err := conn.ReadJSON(&ev)
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return ev, ErrClosed
		}
		return ev, err
	}

	sub := FromReceiver(scope, recv, func() error {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return conn.Close()
	})

	return sub, nil
}
