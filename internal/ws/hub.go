package ws

import (
	"context"
	"errors"
	"sync"

	"study-sync/internal/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrHubBusy = errors.New("ws hub send buffer full")

type envelope struct {
	userIDs []uuid.UUID
	payload []byte
}

// Hub routes messages to the websocket connections of specific users. A user
// may hold several connections at once (tabs, devices).
type Hub struct {
	clients    map[uuid.UUID]map[*Client]struct{}
	outbound   chan envelope
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		outbound:   make(chan envelope, 1024),
		register:   make(chan *Client, 128),
		unregister: make(chan *Client, 128),
		logger:     logger.Named("ws"),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			if client == nil {
				continue
			}
			h.mutex.Lock()
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
			total := h.countLocked()
			h.mutex.Unlock()
			observability.WSConnected()
			h.logger.Debug("ws connected", zap.Stringer("user_id", client.userID), zap.Int("total_clients", total))

		case client := <-h.unregister:
			if client == nil {
				continue
			}
			if h.remove(client) {
				observability.WSDisconnected()
				h.logger.Debug("ws disconnected", zap.Stringer("user_id", client.userID))
			}

		case msg := <-h.outbound:
			h.mutex.RLock()
			targets := make([]*Client, 0, 2)
			for _, id := range msg.userIDs {
				for c := range h.clients[id] {
					targets = append(targets, c)
				}
			}
			h.mutex.RUnlock()

			for _, client := range targets {
				select {
				case client.send <- msg.payload:
				default:
					if h.remove(client) {
						observability.WSDisconnected()
						h.logger.Warn("ws client too slow, dropped", zap.Stringer("user_id", client.userID))
					}
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	set, ok := h.clients[client.userID]
	if !ok {
		return false
	}
	if _, ok := set[client]; !ok {
		return false
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
	close(client.send)
	return true
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for id, set := range h.clients {
		for c := range set {
			close(c.send)
			observability.WSDisconnected()
		}
		delete(h.clients, id)
	}
}

func (h *Hub) countLocked() int {
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (h *Hub) Register(client *Client) {
	if h == nil {
		return
	}
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	if h == nil {
		return
	}
	h.unregister <- client
}

// SendTo queues payload for every connection of the given users. Users with
// no open connection are skipped silently.
func (h *Hub) SendTo(payload []byte, userIDs ...uuid.UUID) error {
	if h == nil || len(userIDs) == 0 {
		return nil
	}
	select {
	case h.outbound <- envelope{userIDs: userIDs, payload: payload}:
		return nil
	default:
		h.logger.Warn("ws send dropped", zap.String("reason", "buffer_full"))
		return ErrHubBusy
	}
}

func (h *Hub) ClientCount() int {
	if h == nil {
		return 0
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.countLocked()
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	if h == nil {
		return false
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[userID]) > 0
}
