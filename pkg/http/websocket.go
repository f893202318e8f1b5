package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"liyu1981.xyz/roomwatch-service/pkg/feed"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
	wsSendBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WatchChanges streams the caller's change events for one table. The
// connection is scoped to the token's user; table defaults to alerts.
func (rs *RestfulServer) WatchChanges(c *gin.Context) {
	if rs.Changes == nil {
		c.Status(http.StatusNotFound)
		return
	}

	session, ok := rs.sessionFromHeader(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": models.ErrAuthRequired.Error()})
		return
	}

	table := c.DefaultQuery("table", models.TableAlerts)
	if table != models.TableAlerts && table != models.TableRooms {
		c.JSON(http.StatusBadRequest, gin.H{"error": "table must be alerts or rooms"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger().Warn("Failed to upgrade websocket connection", zap.Error(err))
		return
	}
	defer conn.Close()

	sub, err := rs.Changes.Subscribe(c.Request.Context(), feed.Scope{Table: table, UserID: session.UserID})
	if err != nil {
		logger().Error("Failed to subscribe to change feed", zap.Error(err))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "change feed unavailable"))
		return
	}
	defer sub.Close()

	logger().Info("Change stream opened", zap.String("user_id", session.UserID), zap.String("table", table))

	// a slow client loses its stream rather than blocking the feed
	events := make(chan models.ChangeEvent, wsSendBuffer)
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

	// the read side only watches for the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger().Warn("Websocket read failed", zap.Error(err))
				}
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				logger().Warn("Websocket write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-overflow:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "client too slow"))
			return
		case err := <-feedErr:
			logger().Warn("Change feed failed", zap.Error(err))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "change feed closed"))
			return
		case <-gone:
			logger().Info("Change stream closed", zap.String("user_id", session.UserID))
			return
		}
	}
}
