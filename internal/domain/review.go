package domain

import "time"

// Review is a user's review of a restaurant. Restaurant IDs come from the
// external places provider and are treated as opaque strings.
type Review struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	UserID       string    `json:"user_id" gorm:"not null;index;uniqueIndex:idx_review_user_restaurant"`
	RestaurantID string    `json:"restaurant_id" gorm:"not null;index;uniqueIndex:idx_review_user_restaurant"`
	Rating       int       `json:"rating"` // 1-5
	Title        string    `json:"title,omitempty"`
	Content      string    `json:"content"`
	HelpfulCount int       `json:"helpful_count"`
	IsReported   bool      `json:"is_reported"`
	// Display name snapshot taken at create/update time, same policy in
	// every backend. A later profile rename does not rewrite old reviews.
	UserName  string    `json:"user_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Review) TableName() string {
	return "reviews"
}
