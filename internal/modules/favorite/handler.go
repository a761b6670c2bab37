package favorite

import (
	"errors"
	"net/http"

	"dinespot/internal/engagement"
	"dinespot/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	store engagement.Repository
}

func NewHandler(store engagement.Repository) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.POST("/restaurants/:id/favorite", h.Toggle)
	protected.GET("/restaurants/:id/favorite", h.Check)
	protected.DELETE("/restaurants/:id/favorite", h.Remove)
	protected.GET("/me/favorites", h.GetFavorites)
}

// Toggle flips the favorite state for the restaurant: one endpoint instead
// of separate add/remove, matching the heart button on the client.
func (h *Handler) Toggle(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req SnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	result, err := h.store.ToggleFavorite(c.Request.Context(), userID, c.Param("id"), req.toSnapshot())
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

func (h *Handler) Check(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	exists, err := h.store.IsFavorited(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"is_favorited": exists})
}

func (h *Handler) Remove(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	removed, err := h.store.RemoveFavorite(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !removed {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Favorite not found")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

func (h *Handler) GetFavorites(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	favorites, err := h.store.GetUserFavorites(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"favorites": favorites,
		"total":     len(favorites),
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, engagement.ErrStorageUnavailable) {
		c.Error(err)
		response.Error(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage is unavailable, try again later")
		return
	}
	c.Error(err)
	response.Error(c, http.StatusInternalServerError, "INTERNAL", "Internal error")
}
