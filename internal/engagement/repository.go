package engagement

import (
	"context"

	"dinespot/internal/domain"
)

// Repository is the contract both engagement backends implement. The
// backend is chosen once at startup; callers must not be able to tell them
// apart except for persistence across restarts.
type Repository interface {
	CreateReview(ctx context.Context, p CreateReviewParams) (*domain.Review, error)
	UpdateReview(ctx context.Context, userID, reviewID string, p UpdateReviewParams) (*domain.Review, error)
	DeleteReview(ctx context.Context, userID, reviewID string) error
	GetUserReview(ctx context.Context, userID, restaurantID string) (*domain.Review, error)
	GetRestaurantReviews(ctx context.Context, restaurantID string, limit, offset int) (*RestaurantReviews, error)
	GetUserReviews(ctx context.Context, userID string, limit, offset int) ([]domain.Review, error)
	MarkReviewHelpful(ctx context.Context, reviewID string) (int, error)
	ReportReview(ctx context.Context, reviewID string) error
	GetReviewStats(ctx context.Context, restaurantID string) (*ReviewStats, error)

	ToggleFavorite(ctx context.Context, userID, restaurantID string, snap FavoriteSnapshot) (*ToggleResult, error)
	IsFavorited(ctx context.Context, userID, restaurantID string) (bool, error)
	GetUserFavorites(ctx context.Context, userID string) ([]domain.Favorite, error)
	RemoveFavorite(ctx context.Context, userID, restaurantID string) (bool, error)
}

type CreateReviewParams struct {
	UserID       string
	RestaurantID string
	Rating       int
	Title        string
	Content      string
	// Display name snapshot, resolved by the caller from the user record.
	UserName string
}

// UpdateReviewParams uses pointers so an omitted field is distinguishable
// from an explicitly set one. Nil fields are left unchanged.
type UpdateReviewParams struct {
	Rating  *int
	Title   *string
	Content *string
	// Non-empty UserName refreshes the display name snapshot.
	UserName string
}

// RestaurantReviews is one page of public reviews plus the aggregates for
// the full non-reported set. Total is independent of limit/offset so
// clients can compute page counts.
type RestaurantReviews struct {
	Reviews       []domain.Review `json:"reviews"`
	Total         int64           `json:"total"`
	AverageRating float64         `json:"average_rating"`
	TotalRatings  int64           `json:"total_ratings"`
}

// ReviewStats aggregates the non-reported reviews of one restaurant.
// RatingDistribution always carries an entry for every rating 1 through 5.
type ReviewStats struct {
	AverageRating      float64       `json:"average_rating"`
	TotalRatings       int64         `json:"total_ratings"`
	RatingDistribution map[int]int64 `json:"rating_distribution"`
}

// FavoriteSnapshot carries the restaurant fields captured at favorite-time.
type FavoriteSnapshot struct {
	Name       string  `json:"name"`
	Address    string  `json:"address,omitempty"`
	Rating     float64 `json:"rating,omitempty"`
	PriceLevel int     `json:"price_level,omitempty"`
	PhotoURL   string  `json:"photo_url,omitempty"`
}

type ToggleResult struct {
	IsFavorited bool             `json:"is_favorited"`
	Favorite    *domain.Favorite `json:"favorite,omitempty"`
}
