// Package realtime fans session events out to connected websocket clients.
// Clients join topics ("session:<id>"); publishers only know topic names.
package realtime

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrHubBusy is returned by Publish when the broadcast queue is full.
var ErrHubBusy = errors.New("realtime hub is busy")

type subscription struct {
	client *Client
	topic  string
}

type envelope struct {
	topic   string
	client  *Client
	payload []byte
}

type Hub struct {
	topics     map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	join       chan subscription
	leave      chan subscription
	broadcast  chan envelope
	replies    chan envelope
	done       chan struct{}
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		topics:     make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan subscription),
		leave:      make(chan subscription),
		broadcast:  make(chan envelope, 64),
		replies:    make(chan envelope, 16),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns all hub state and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	clients := make(map[*Client]struct{})
	for {
		select {
		case <-ctx.Done():
			for client := range clients {
				close(client.send)
			}
			return
		case client := <-h.register:
			clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, ok := clients[client]; !ok {
				continue
			}
			h.drop(client)
			delete(clients, client)
		case sub := <-h.join:
			if _, ok := clients[sub.client]; !ok {
				continue
			}
			set, ok := h.topics[sub.topic]
			if !ok {
				set = make(map[*Client]struct{})
				h.topics[sub.topic] = set
			}
			set[sub.client] = struct{}{}
			sub.client.topics[sub.topic] = struct{}{}
		case sub := <-h.leave:
			h.removeFromTopic(sub.client, sub.topic)
			delete(sub.client.topics, sub.topic)
		case message := <-h.replies:
			if _, ok := clients[message.client]; !ok {
				continue
			}
			select {
			case message.client.send <- message.payload:
			default:
				h.drop(message.client)
				delete(clients, message.client)
			}
		case message := <-h.broadcast:
			for _, client := range h.deliver(message) {
				h.drop(client)
				delete(clients, client)
			}
		}
	}
}

// Register, Unregister, Join and Leave are no-ops once Run has returned.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) Join(client *Client, topic string) {
	select {
	case h.join <- subscription{client: client, topic: topic}:
	case <-h.done:
	}
}

func (h *Hub) Leave(client *Client, topic string) {
	select {
	case h.leave <- subscription{client: client, topic: topic}:
	case <-h.done:
	}
}

// Publish queues payload for every client joined to topic. It never blocks;
// delivery is best effort.
func (h *Hub) Publish(_ context.Context, topic string, payload []byte) error {
	select {
	case h.broadcast <- envelope{topic: topic, payload: payload}:
		return nil
	default:
		return ErrHubBusy
	}
}

// deliver returns the clients that could not keep up and must be dropped.
func (h *Hub) deliver(message envelope) []*Client {
	set, ok := h.topics[message.topic]
	if !ok {
		return nil
	}

	var slow []*Client
	for client := range set {
		select {
		case client.send <- message.payload:
		default:
			slow = append(slow, client)
		}
	}
	if len(slow) > 0 {
		h.logger.Warn("dropping slow realtime clients",
			zap.String("topic", message.topic),
			zap.Int("count", len(slow)),
		)
	}
	return slow
}

func (h *Hub) drop(client *Client) {
	for topic := range client.topics {
		h.removeFromTopic(client, topic)
	}
	client.topics = make(map[string]struct{})
	close(client.send)
}

func (h *Hub) removeFromTopic(client *Client, topic string) {
	set, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.topics, topic)
	}
}

func (h *Hub) direct(client *Client, payload []byte) {
	select {
	case h.replies <- envelope{client: client, payload: payload}:
	case <-h.done:
	}
}
