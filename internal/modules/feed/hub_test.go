package feed

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"dinespot/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeedServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(hub).RegisterRoutes(r.Group(""))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dialFeed(t *testing.T, srv *httptest.Server, restaurantID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed/restaurants/" + restaurantID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublishReview_DeliversEvent(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	srv := newFeedServer(t, hub)

	conn := dialFeed(t, srv, "rest-1")
	require.Eventually(t, func() bool {
		return hub.SubscriberCount("rest-1") == 1
	}, time.Second, 10*time.Millisecond)

	hub.PublishReview(&domain.Review{ID: "rv-1", RestaurantID: "rest-1", Rating: 5})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event ReviewEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "review.created", event.Type)
	assert.Equal(t, "rest-1", event.RestaurantID)
	assert.Equal(t, "rv-1", event.Review.ID)
}

func TestPublishReview_ConcurrentPublishers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	srv := newFeedServer(t, hub)

	conn := dialFeed(t, srv, "rest-1")
	require.Eventually(t, func() bool {
		return hub.SubscriberCount("rest-1") == 1
	}, time.Second, 10*time.Millisecond)

	// Many goroutines publish to one subscriber while the keepalive ticker
	// runs. Every frame must funnel through the connection's single
	// writePump; a second concurrent writer panics inside gorilla and
	// takes the process down.
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hub.PublishReview(&domain.Review{
				ID:           fmt.Sprintf("rv-%d", i),
				RestaurantID: "rest-1",
				Rating:       4,
			})
		}(i)
	}
	wg.Wait()

	// The subscriber still reads well-formed events afterwards.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event ReviewEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "review.created", event.Type)
	assert.Equal(t, "rest-1", event.RestaurantID)
}

func TestPublishReview_NoSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	// Publishing into the void is a no-op, not an error.
	hub.PublishReview(&domain.Review{ID: "rv-1", RestaurantID: "rest-9"})
	assert.Equal(t, 0, hub.SubscriberCount("rest-9"))
}

func TestSubscriberCount_DropsOnDisconnect(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	srv := newFeedServer(t, hub)

	conn := dialFeed(t, srv, "rest-1")
	require.Eventually(t, func() bool {
		return hub.SubscriberCount("rest-1") == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		return hub.SubscriberCount("rest-1") == 0
	}, time.Second, 10*time.Millisecond)
}
