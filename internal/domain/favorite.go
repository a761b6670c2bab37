package domain

import "time"

// Favorite marks a restaurant as saved by a user. The restaurant fields are
// a snapshot taken at favorite-time so the favorites screen renders without
// calling the places provider.
type Favorite struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	UserID       string    `json:"user_id" gorm:"not null;index;uniqueIndex:idx_favorite_user_restaurant"`
	RestaurantID string    `json:"restaurant_id" gorm:"not null;index;uniqueIndex:idx_favorite_user_restaurant"`

	Name       string  `json:"name"`
	Address    string  `json:"address,omitempty"`
	Rating     float64 `json:"rating,omitempty"`
	PriceLevel int     `json:"price_level,omitempty"`
	PhotoURL   string  `json:"photo_url,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Favorite) TableName() string {
	return "favorites"
}
