package review

type CreateReviewRequest struct {
	RestaurantID string `json:"restaurant_id" binding:"required"`
	Rating       int    `json:"rating" binding:"required"`
	Title        string `json:"title,omitempty"`
	Content      string `json:"content" binding:"required"`
}

// UpdateReviewRequest carries optional fields; nil means "leave unchanged".
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating,omitempty"`
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

type HelpfulResponse struct {
	HelpfulCount int `json:"helpful_count"`
}
