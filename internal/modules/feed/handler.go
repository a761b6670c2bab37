package feed

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,

	// Allow any origin for dev. Tighten for production deployments.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

func (h *Handler) RegisterRoutes(public *gin.RouterGroup) {
	// Endpoint: GET /feed/restaurants/:id — the live feed is public, like
	// the review listing itself.
	public.GET("/feed/restaurants/:id", h.Subscribe)
}

func (h *Handler) Subscribe(c *gin.Context) {
	restaurantID := c.Param("id")
	if restaurantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "restaurant ID is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	// Blocks until the client disconnects; the hub owns both pumps.
	h.hub.ServeWS(restaurantID, conn)
}
