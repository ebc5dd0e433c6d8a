package realtime

import (
	"context"
	"sync"
	"time"

	"music_stream/internal/domain"
	"music_stream/internal/service"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1 << 20
	sendBufferSize = 256

	inboundRate  = 20
	inboundBurst = 40

	handleTimeout = 30 * time.Second
)

// inbound is one frame received from a session.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type statusPayload struct {
	UserID string                `json:"userId"`
	Status domain.PresenceStatus `json:"status"`
}

type songPayload struct {
	UserID string              `json:"userId"`
	Song   *domain.SongSummary `json:"song"`
}

// Client is one websocket session. It is authenticated as userID at upgrade
// time but receives room traffic only after a matching join_room.
type Client struct {
	id     string
	userID string

	hub      *Hub
	conn     *websocket.Conn
	presence service.PresenceService
	messages service.MessageService
	limiter  *rate.Limiter
	log      logger.Logger

	send      chan []byte
	quit      chan struct{}
	closeOnce sync.Once

	// read loop only
	joined bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string, presence service.PresenceService, messages service.MessageService, log logger.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:       id,
		userID:   userID,
		hub:      hub,
		conn:     conn,
		presence: presence,
		messages: messages,
		limiter:  rate.NewLimiter(rate.Limit(inboundRate), inboundBurst),
		log:      log.With("component", "ws", "user_id", userID, "session", id),
		send:     make(chan []byte, sendBufferSize),
		quit:     make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Serve runs the session until the connection drops or the hub closes it.
func (c *Client) Serve() {
	go c.writePump()
	c.readPump()
}

func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.quit:
		return true
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.quit) })
}

func (c *Client) reply(eventType string, data interface{}) {
	payload, err := json.Marshal(domain.Event{Type: eventType, Data: data})
	if err != nil {
		c.log.Error("Failed to encode reply", "type", eventType, "error", err)
		return
	}
	if !c.enqueue(payload) {
		c.log.Warn("Send buffer full, reply dropped", "type", eventType)
	}
}

func (c *Client) replyError(err error) {
	api := apperrors.FromError(err)
	c.reply(domain.EventError, domain.ErrorPayload{Message: api.Message, Code: api.Code})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c)
		c.close()
		_ = c.conn.Close()

		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()
		if c.joined {
			if err := c.presence.Disconnect(ctx, c.userID, c.id); err != nil {
				c.log.Error("Failed to release presence", "error", err)
			}
		}
		c.log.Info("Session closed")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Unexpected close", "error", err)
			}
			return
		}

		if !c.limiter.Allow() {
			c.replyError(apperrors.ErrRateLimited)
			continue
		}

		var in inbound
		if err := json.Unmarshal(data, &in); err != nil || in.Type == "" {
			c.replyError(apperrors.Validation("Malformed event"))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		err = c.handle(ctx, in)
		cancel()
		if err != nil {
			c.log.Debug("Event rejected", "type", in.Type, "error", err)
			c.replyError(err)
		}
	}
}

func (c *Client) handle(ctx context.Context, in inbound) error {
	if in.Type == domain.EventJoinRoom {
		return c.handleJoin(ctx, in.Data)
	}
	if !c.joined {
		return apperrors.Validation("join_room must be sent first")
	}

	// user_status sets the status itself; counting it as activity would flash
	// an idle user online before an explicit idle or sign-off
	if in.Type != domain.EventUserStatus {
		if err := c.presence.RecordActivity(ctx, c.userID); err != nil {
			c.log.Warn("Failed to record activity", "error", err)
		}
	}

	switch in.Type {
	case domain.EventUserStatus:
		var p statusPayload
		if err := json.Unmarshal(in.Data, &p); err != nil {
			return apperrors.Validation("Malformed user_status")
		}
		if err := c.ownUser(p.UserID); err != nil {
			return err
		}
		_, err := c.presence.Announce(ctx, c.userID, p.Status)
		return err

	case domain.EventUserSongUpdate:
		var p songPayload
		if err := json.Unmarshal(in.Data, &p); err != nil {
			return apperrors.Validation("Malformed user_song_update")
		}
		if err := c.ownUser(p.UserID); err != nil {
			return err
		}
		return c.presence.UpdateCurrentSong(ctx, c.userID, p.Song)

	case domain.EventSendMessage:
		var p domain.SendMessagePayload
		if err := json.Unmarshal(in.Data, &p); err != nil {
			return apperrors.Validation("Malformed send_message")
		}
		msg, err := c.messages.Send(ctx, service.SendMessageInput{
			SenderID:   c.userID,
			ReceiverID: p.ReceiverID,
			Text:       p.Message,
			ReplyToID:  p.ReplyToID,
		})
		if err != nil {
			return err
		}
		// the sender's copy carries the stored id and timestamps
		c.reply(domain.EventReceiveMessage, msg)
		return nil

	default:
		return apperrors.Validation("Unknown event type: " + in.Type)
	}
}

func (c *Client) handleJoin(ctx context.Context, data json.RawMessage) error {
	var userID string
	if err := json.Unmarshal(data, &userID); err != nil {
		var obj struct {
			UserID string `json:"userId"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return apperrors.Validation("Malformed join_room")
		}
		userID = obj.UserID
	}
	if err := c.ownUser(userID); err != nil {
		return err
	}

	if !c.joined {
		c.hub.Join(c, c.userID)
		c.presence.Bind(c.userID, c.id)
		c.joined = true
	}

	if _, err := c.presence.Announce(ctx, c.userID, domain.StatusOnline); err != nil {
		return err
	}
	records, err := c.presence.ListAll(ctx)
	if err != nil {
		return err
	}
	c.reply(domain.EventOnlineUsers, records)
	return nil
}

// ownUser rejects payloads naming another user. An empty id means the caller.
func (c *Client) ownUser(userID string) error {
	if userID != "" && userID != c.userID {
		return apperrors.ErrSessionMismatch
	}
	return nil
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-c.quit:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
