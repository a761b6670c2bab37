package review

import (
	"context"
	"errors"

	"dinespot/internal/domain"
	"dinespot/internal/engagement"
	"dinespot/internal/repository"
)

// FeedPublisher fans freshly created reviews out to live subscribers.
// Optional; a nil publisher disables the feed.
type FeedPublisher interface {
	PublishReview(rv *domain.Review)
}

type Service struct {
	store engagement.Repository
	users repository.UserRepository
	feed  FeedPublisher
}

func NewService(store engagement.Repository, users repository.UserRepository, feed FeedPublisher) *Service {
	return &Service{store: store, users: users, feed: feed}
}

func (s *Service) Create(ctx context.Context, userID string, req CreateReviewRequest) (*domain.Review, error) {
	userName, err := s.displayName(ctx, userID)
	if err != nil {
		return nil, err
	}

	rv, err := s.store.CreateReview(ctx, engagement.CreateReviewParams{
		UserID:       userID,
		RestaurantID: req.RestaurantID,
		Rating:       req.Rating,
		Title:        req.Title,
		Content:      req.Content,
		UserName:     userName,
	})
	if err != nil {
		return nil, err
	}

	if s.feed != nil {
		s.feed.PublishReview(rv)
	}
	return rv, nil
}

func (s *Service) Update(ctx context.Context, userID, reviewID string, req UpdateReviewRequest) (*domain.Review, error) {
	userName, err := s.displayName(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.store.UpdateReview(ctx, userID, reviewID, engagement.UpdateReviewParams{
		Rating:   req.Rating,
		Title:    req.Title,
		Content:  req.Content,
		UserName: userName,
	})
}

func (s *Service) Delete(ctx context.Context, userID, reviewID string) error {
	return s.store.DeleteReview(ctx, userID, reviewID)
}

func (s *Service) GetForRestaurant(ctx context.Context, restaurantID string, limit, offset int) (*engagement.RestaurantReviews, error) {
	return s.store.GetRestaurantReviews(ctx, restaurantID, limit, offset)
}

func (s *Service) GetMine(ctx context.Context, userID, restaurantID string) (*domain.Review, error) {
	return s.store.GetUserReview(ctx, userID, restaurantID)
}

func (s *Service) GetUserReviews(ctx context.Context, userID string, limit, offset int) ([]domain.Review, error) {
	return s.store.GetUserReviews(ctx, userID, limit, offset)
}

func (s *Service) MarkHelpful(ctx context.Context, reviewID string) (int, error) {
	return s.store.MarkReviewHelpful(ctx, reviewID)
}

func (s *Service) Report(ctx context.Context, reviewID string) error {
	return s.store.ReportReview(ctx, reviewID)
}

func (s *Service) Stats(ctx context.Context, restaurantID string) (*engagement.ReviewStats, error) {
	return s.store.GetReviewStats(ctx, restaurantID)
}

// displayName resolves the snapshot name written into the review record.
// Both backends follow the same snapshot-at-write policy.
func (s *Service) displayName(ctx context.Context, userID string) (string, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// The token outlived the account; write the review without a
			// display name rather than failing the whole request.
			return "", nil
		}
		return "", err
	}
	return u.Name, nil
}
