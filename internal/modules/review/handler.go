package review

import (
	"errors"
	"net/http"
	"strconv"

	"dinespot/internal/engagement"
	"dinespot/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	if public != nil {
		public.GET("/restaurants/:id/reviews", h.GetForRestaurant)
		public.GET("/restaurants/:id/reviews/stats", h.GetStats)
		// Helpful marks and reports are open signals: no auth on purpose.
		public.POST("/reviews/:id/helpful", h.MarkHelpful)
		public.POST("/reviews/:id/report", h.Report)
	}

	if protected != nil {
		protected.POST("/reviews", h.Create)
		protected.PUT("/reviews/:id", h.Update)
		protected.DELETE("/reviews/:id", h.Delete)
		protected.GET("/me/reviews", h.GetMyReviews)
		protected.GET("/restaurants/:id/reviews/mine", h.GetMyRestaurantReview)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	userID := c.GetString("user_id")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	rv, err := h.svc.Create(c.Request.Context(), userID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, rv)
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	userID := c.GetString("user_id")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	rv, err := h.svc.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, rv)
}

func (h *Handler) Delete(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	if err := h.svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) GetForRestaurant(c *gin.Context) {
	restaurantID := c.Param("id")
	if restaurantID == "" {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid restaurant ID")
		return
	}

	limit, offset := pagination(c)
	page, err := h.svc.GetForRestaurant(c.Request.Context(), restaurantID, limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, page)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

func (h *Handler) GetMyReviews(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	limit, offset := pagination(c)
	reviews, err := h.svc.GetUserReviews(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reviews": reviews})
}

func (h *Handler) GetMyRestaurantReview(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	rv, err := h.svc.GetMine(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if rv == nil {
		// Absence is a regular answer here, not an error.
		response.Success(c, http.StatusOK, gin.H{"review": nil})
		return
	}

	response.Success(c, http.StatusOK, gin.H{"review": rv})
}

func (h *Handler) MarkHelpful(c *gin.Context) {
	count, err := h.svc.MarkHelpful(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, HelpfulResponse{HelpfulCount: count})
}

func (h *Handler) Report(c *gin.Context) {
	if err := h.svc.Report(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reported": true})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engagement.ErrInvalidRating):
		response.Error(c, http.StatusBadRequest, "INVALID_RATING", "Rating must be between 1 and 5")
	case errors.Is(err, engagement.ErrInvalidContent):
		response.Error(c, http.StatusBadRequest, "INVALID_CONTENT", "Review content must be at least 10 characters")
	case errors.Is(err, engagement.ErrDuplicateReview):
		response.Error(c, http.StatusConflict, "DUPLICATE_REVIEW", "Only one review per user per restaurant")
	case errors.Is(err, engagement.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Review not found")
	case errors.Is(err, engagement.ErrUnauthorized):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You don't own this review")
	case errors.Is(err, engagement.ErrStorageUnavailable):
		c.Error(err)
		response.Error(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage is unavailable, try again later")
	default:
		c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "Internal error")
	}
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
