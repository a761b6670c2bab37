package places

import (
	"net/http"
	"strconv"

	"dinespot/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

func (h *Handler) RegisterRoutes(public *gin.RouterGroup) {
	public.GET("/restaurants/search", h.Search)
	public.GET("/restaurants/photo", h.Photo)
}

func (h *Handler) Search(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "query parameter is required")
		return
	}

	lat, _ := strconv.ParseFloat(c.Query("lat"), 64)
	lng, _ := strconv.ParseFloat(c.Query("lng"), 64)
	radius, _ := strconv.Atoi(c.Query("radius"))

	restaurants, err := h.client.Search(c.Request.Context(), query, lat, lng, radius)
	if err != nil {
		c.Error(err)
		response.Error(c, http.StatusBadGateway, "PLACES_UNAVAILABLE", "Places provider is unavailable")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"restaurants": restaurants,
		"total":       len(restaurants),
	})
}

// Photo redirects to the upstream photo URL instead of proxying the bytes.
func (h *Handler) Photo(c *gin.Context) {
	ref := c.Query("ref")
	if ref == "" {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "ref parameter is required")
		return
	}

	maxWidth, _ := strconv.Atoi(c.Query("max_width"))
	c.Redirect(http.StatusFound, h.client.PhotoURL(ref, maxWidth))
}
