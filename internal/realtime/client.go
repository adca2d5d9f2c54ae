package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
	websocket "github.com/gofiber/contrib/websocket"
)

// JoinAuthorizer decides whether a user may subscribe to a session's channel.
type JoinAuthorizer interface {
	CanJoin(ctx context.Context, actorID int64, sessionID int64) error
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	send   chan []byte
	topics map[string]struct{}
}

type controlMessage struct {
	Type      string `json:"type"`
	SessionID int64  `json:"session_id,omitempty"`
	Topic     string `json:"topic,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
		topics: make(map[string]struct{}),
	}
}

// ReadPump handles join and leave requests until the connection closes.
func (c *Client) ReadPump(authorizer JoinAuthorizer) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming controlMessage
		if err := json.Unmarshal(payload, &incoming); err != nil {
			c.reply(controlMessage{Type: "error", Error: "invalid message payload"})
			continue
		}
		if incoming.SessionID <= 0 {
			c.reply(controlMessage{Type: "error", Error: "invalid session id"})
			continue
		}
		topic := models.SessionTopic(incoming.SessionID)

		switch incoming.Type {
		case "join":
			if err := authorizer.CanJoin(context.Background(), c.userID, incoming.SessionID); err != nil {
				c.reply(controlMessage{Type: "error", SessionID: incoming.SessionID, Error: "cannot join session"})
				continue
			}
			c.hub.Join(c, topic)
			c.reply(controlMessage{Type: "joined", SessionID: incoming.SessionID, Topic: topic})
		case "leave":
			c.hub.Leave(c, topic)
			c.reply(controlMessage{Type: "left", SessionID: incoming.SessionID, Topic: topic})
		default:
			c.reply(controlMessage{Type: "error", Error: "unsupported message type"})
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// reply goes through the hub so it never writes to a closed send channel.
func (c *Client) reply(message controlMessage) {
	message.Timestamp = time.Now().UTC().Format(time.RFC3339)
	payload, err := json.Marshal(message)
	if err != nil {
		return
	}
	c.hub.direct(c, payload)
}
