package feed

import (
	"encoding/json"
	"sync"
	"time"

	"dinespot/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// ReviewEvent is what subscribers receive when a review lands on a
// restaurant they watch.
type ReviewEvent struct {
	Type         string         `json:"type"`
	RestaurantID string         `json:"restaurant_id"`
	Review       *domain.Review `json:"review"`
}

// subscriber is one websocket client watching one restaurant. All writes to
// the connection, pings included, go through the send channel into a single
// writePump; gorilla connections allow only one concurrent writer.
type subscriber struct {
	restaurantID string
	conn         *websocket.Conn
	send         chan []byte
}

// Hub fans review events out to websocket subscribers, keyed by restaurant.
// Delivery is best effort; a subscriber that cannot keep up misses events.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*subscriber]struct{}),
	}
}

func (h *Hub) register(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[s.restaurantID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.subscribers[s.restaurantID] = subs
	}
	subs[s] = struct{}{}
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[s.restaurantID]
	if !ok {
		return
	}
	if _, ok := subs[s]; !ok {
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(h.subscribers, s.restaurantID)
	}
	// Closed under the exclusive lock, after removal from the map, so a
	// publisher holding the read lock can never hit a closed channel.
	close(s.send)
}

// PublishReview implements the review service's FeedPublisher. It only
// queues; the per-connection writePump does the actual writes.
func (h *Hub) PublishReview(rv *domain.Review) {
	data, err := json.Marshal(ReviewEvent{
		Type:         "review.created",
		RestaurantID: rv.RestaurantID,
		Review:       rv,
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subscribers[rv.RestaurantID] {
		select {
		case s.send <- data:
		default:
			// Subscriber too slow — skip this event.
		}
	}
}

// ServeWS runs the read/write loops for a freshly upgraded connection and
// blocks until the client disconnects.
func (h *Hub) ServeWS(restaurantID string, conn *websocket.Conn) {
	s := &subscriber{
		restaurantID: restaurantID,
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
	}

	h.register(s)

	go h.writePump(s)
	h.readPump(s)
}

// readPump only drains control frames and detects the close; the feed has
// no client-to-server messages.
func (h *Hub) readPump(s *subscriber) {
	defer func() {
		h.unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the single writer for the connection: queued events plus the
// keepalive pings.
func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) SubscriberCount(restaurantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[restaurantID])
}

// Close drops every subscriber; their writePumps observe the closed send
// channels and shut the connections down.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for restaurantID, subs := range h.subscribers {
		for s := range subs {
			close(s.send)
		}
		delete(h.subscribers, restaurantID)
	}
}
