package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "tutor_cluster_events"

// Hub tracks the chat connections of every user (one per device) and pushes
// domain events to them. With Redis configured, events reach connections held
// by other instances too.
type Hub struct {
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb    *redis.Client
	origin string
	logger logger.ILogger
}

type clusterMessage struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		origin:     uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("WS", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			clients := h.clients[client.UserID]
			for i, c := range clients {
				if c == client {
					h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
					break
				}
			}
			if len(h.clients[client.UserID]) == 0 {
				delete(h.clients, client.UserID)
			}
			h.mu.Unlock()
			client.close()
			h.logger.Info("WS", "Client unregistered", map[string]interface{}{"user_id": client.UserID})
		}
	}
}

// Connected reports how many connections userID has on this instance.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Publish forwards events carrying a user_id to that user's connections. It
// satisfies events.Publisher so the hub can sit beside the NATS publisher.
func (h *Hub) Publish(ctx context.Context, event events.Event) error {
	userID, _ := event.Payload()["user_id"].(string)
	if userID == "" {
		return nil
	}
	data, err := json.Marshal(Message{Type: MessageEvent, Event: event.EventType(), Data: event.Payload()})
	if err != nil {
		return err
	}

	h.deliver(userID, data)

	if h.rdb != nil {
		payload, err := json.Marshal(clusterMessage{Origin: h.origin, TargetUserID: userID, Message: data})
		if err != nil {
			return err
		}
		return h.rdb.Publish(ctx, clusterChannel, payload).Err()
	}
	return nil
}

func (h *Hub) deliver(userID string, data []byte) {
	h.mu.RLock()
	clients := append([]*Client(nil), h.clients[userID]...)
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.send(data); err != nil {
			h.logger.Warn("WS", "Dropping event for client", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}
}

// subscribeToRedis delivers events published by other instances.
func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("WS", "Malformed cluster event", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.origin {
			continue
		}
		h.deliver(payload.TargetUserID, payload.Message)
	}
}
