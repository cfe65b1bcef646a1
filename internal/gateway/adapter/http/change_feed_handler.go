package http

import (
	"context"
	"time"

	"mongodb-rest/internal/gateway/domain/model"
	"mongodb-rest/internal/shared/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// ChangeSource is the subscriber side of the change feed
type ChangeSource interface {
	Subscribe(database, collection string) (string, <-chan model.ChangeEvent)
	Unsubscribe(database, collection, id string)
	Replay(ctx context.Context, database, collection string, token model.ResumeToken) ([]model.ChangeEvent, error)
}

// FeedMessage is a frame sent to change feed clients
type FeedMessage struct {
	Type  string             `json:"type"`
	Event *model.ChangeEvent `json:"event,omitempty"`
	Error *ErrorResponse     `json:"error,omitempty"`
}

const (
	feedMessageChange = "change"
	feedMessageError  = "error"

	defaultFeedPingInterval = 30 * time.Second
	feedWriteWait           = 10 * time.Second
)

// ChangeFeedHandler streams write events of a collection over a websocket.
// Idle sockets are kept open with pings; a client that stops answering them
// is dropped after two ping intervals.
type ChangeFeedHandler struct {
	feed         ChangeSource
	pingInterval time.Duration
	log          logger.Logger
}

// NewChangeFeedHandler creates a new ChangeFeedHandler. A non-positive
// pingInterval selects the default of 30s.
func NewChangeFeedHandler(feed ChangeSource, pingInterval time.Duration, log logger.Logger) *ChangeFeedHandler {
	if pingInterval <= 0 {
		pingInterval = defaultFeedPingInterval
	}
	return &ChangeFeedHandler{
		feed:         feed,
		pingInterval: pingInterval,
		log:          log.WithComponent("change_feed_handler"),
	}
}

func (h *ChangeFeedHandler) pongWait() time.Duration {
	return 2 * h.pingInterval
}

// RegisterRoutes registers GET /_changes/:database/:collection
func (h *ChangeFeedHandler) RegisterRoutes(router fiber.Router) {
	group := router.Group("/_changes")
	group.Use(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	group.Get("/:database/:collection", websocket.New(h.serve))
}

func (h *ChangeFeedHandler) serve(conn *websocket.Conn) {
	database := conn.Params("database")
	collection := conn.Params("collection")
	since := model.ResumeToken(conn.Query("since"))

	// Subscribe before replaying so nothing written in between is missed.
	id, events := h.feed.Subscribe(database, collection)
	defer h.feed.Unsubscribe(database, collection, id)

	log := h.log.WithFields(map[string]interface{}{
		"subscriber": id,
		"database":   database,
		"collection": collection,
	})
	log.Info("Change feed client connected")
	defer log.Info("Change feed client disconnected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	replayed := make(map[model.ResumeToken]struct{})
	if since != "" {
		backlog, err := h.feed.Replay(ctx, database, collection, since)
		if err != nil {
			log.Warnf("Replay from %s failed: %v", since, err)
			h.writeError(conn, err)
			return
		}
		for i := range backlog {
			if err := conn.WriteJSON(FeedMessage{Type: feedMessageChange, Event: &backlog[i]}); err != nil {
				return
			}
			replayed[backlog[i].ResumeToken] = struct{}{}
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait()))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait()))
	})
	go h.readUntilClosed(conn, cancel)

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				log.Debugf("Ping to change feed client failed: %v", err)
				return
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			if _, seen := replayed[event.ResumeToken]; seen && event.ResumeToken != "" {
				continue
			}
			if err := conn.WriteJSON(FeedMessage{Type: feedMessageChange, Event: &event}); err != nil {
				log.Debugf("Write to change feed client failed: %v", err)
				return
			}
		}
	}
}

// readUntilClosed drains client frames so close, ping and pong frames are
// handled. Any client frame extends the read deadline.
func (h *ChangeFeedHandler) readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debugf("Change feed read error: %v", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait()))
	}
}

func (h *ChangeFeedHandler) writeError(conn *websocket.Conn, err error) {
	body := errorBody(err)
	_ = conn.WriteJSON(FeedMessage{Type: feedMessageError, Error: &body})
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseTryAgainLater, body.Message))
}
