package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dinespot/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// GormStore is the durable backend. Every operation runs as one
// transaction; the unique index on (user_id, restaurant_id) in both tables
// is the durable enforcement of the one-per-pair invariants. Aggregates are
// computed from raw count/sum rows in Go, through the same helpers the
// volatile store uses, so both backends return identical numbers.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateReview(ctx context.Context, p CreateReviewParams) (*domain.Review, error) {
	if err := validateRating(p.Rating); err != nil {
		return nil, err
	}
	content, err := normalizeContent(p.Content)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rv := &domain.Review{
		ID:           newID(),
		UserID:       p.UserID,
		RestaurantID: p.RestaurantID,
		Rating:       p.Rating,
		Title:        normalizeTitle(p.Title),
		Content:      content,
		UserName:     p.UserName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Concurrent creates for the same pair race on the unique index; the
	// losing insert must surface as a duplicate, not a generic failure.
	if err := s.db.WithContext(ctx).Create(rv).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateReview
		}
		return nil, storageErr(err)
	}
	return rv, nil
}

func (s *GormStore) UpdateReview(ctx context.Context, userID, reviewID string, p UpdateReviewParams) (*domain.Review, error) {
	if p.Rating != nil {
		if err := validateRating(*p.Rating); err != nil {
			return nil, err
		}
	}
	var content string
	if p.Content != nil {
		var err error
		if content, err = normalizeContent(*p.Content); err != nil {
			return nil, err
		}
	}

	var out *domain.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rv domain.Review
		if err := tx.First(&rv, "id = ?", reviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return storageErr(err)
		}
		if rv.UserID != userID {
			return ErrUnauthorized
		}

		if p.Rating != nil {
			rv.Rating = *p.Rating
		}
		if p.Title != nil {
			rv.Title = normalizeTitle(*p.Title)
		}
		if p.Content != nil {
			rv.Content = content
		}
		if p.UserName != "" {
			rv.UserName = p.UserName
		}
		rv.UpdatedAt = time.Now().UTC()

		if err := tx.Save(&rv).Error; err != nil {
			return storageErr(err)
		}
		out = &rv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) DeleteReview(ctx context.Context, userID, reviewID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rv domain.Review
		if err := tx.First(&rv, "id = ?", reviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return storageErr(err)
		}
		if rv.UserID != userID {
			return ErrUnauthorized
		}
		if err := tx.Delete(&domain.Review{}, "id = ?", reviewID).Error; err != nil {
			return storageErr(err)
		}
		return nil
	})
}

func (s *GormStore) GetUserReview(ctx context.Context, userID, restaurantID string) (*domain.Review, error) {
	var rv domain.Review
	err := s.db.WithContext(ctx).
		First(&rv, "user_id = ? AND restaurant_id = ?", userID, restaurantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Absence is not an error here.
			return nil, nil
		}
		return nil, storageErr(err)
	}
	return &rv, nil
}

func (s *GormStore) GetRestaurantReviews(ctx context.Context, restaurantID string, limit, offset int) (*RestaurantReviews, error) {
	var result RestaurantReviews
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		public := func() *gorm.DB {
			return tx.Model(&domain.Review{}).
				Where("restaurant_id = ? AND is_reported = ?", restaurantID, false)
		}

		sum, total, err := ratingSummary(public())
		if err != nil {
			return storageErr(err)
		}

		query := public().Order("created_at DESC, id DESC")
		if limit > 0 {
			query = query.Limit(limit).Offset(offset)
		}
		var reviews []domain.Review
		if err := query.Find(&reviews).Error; err != nil {
			return storageErr(err)
		}
		// limit <= 0 means no limit, but the offset still applies. SQLite
		// cannot express OFFSET without LIMIT, so that case pages in Go
		// through the same helper the volatile store uses.
		if limit <= 0 {
			start, end := pageBounds(len(reviews), limit, offset)
			reviews = reviews[start:end]
		}
		if reviews == nil {
			reviews = []domain.Review{}
		}

		result = RestaurantReviews{
			Reviews:       reviews,
			Total:         total,
			AverageRating: roundedAverage(sum, total),
			TotalRatings:  total,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *GormStore) GetUserReviews(ctx context.Context, userID string, limit, offset int) ([]domain.Review, error) {
	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	var reviews []domain.Review
	if err := query.Find(&reviews).Error; err != nil {
		return nil, storageErr(err)
	}
	if limit <= 0 {
		start, end := pageBounds(len(reviews), limit, offset)
		reviews = reviews[start:end]
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return reviews, nil
}

func (s *GormStore) MarkReviewHelpful(ctx context.Context, reviewID string) (int, error) {
	var count int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Review{}).
			Where("id = ?", reviewID).
			UpdateColumn("helpful_count", gorm.Expr("helpful_count + 1"))
		if res.Error != nil {
			return storageErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var rv domain.Review
		if err := tx.Select("helpful_count").First(&rv, "id = ?", reviewID).Error; err != nil {
			return storageErr(err)
		}
		count = rv.HelpfulCount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *GormStore) ReportReview(ctx context.Context, reviewID string) error {
	// Idempotent: reporting an already-reported review is a no-op success.
	res := s.db.WithContext(ctx).Model(&domain.Review{}).
		Where("id = ?", reviewID).
		UpdateColumn("is_reported", true)
	if res.Error != nil {
		return storageErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) GetReviewStats(ctx context.Context, restaurantID string) (*ReviewStats, error) {
	var stats ReviewStats
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		type ratingRow struct {
			Rating int
			Count  int64
		}
		var rows []ratingRow
		err := tx.Model(&domain.Review{}).
			Select("rating, COUNT(*) AS count").
			Where("restaurant_id = ? AND is_reported = ?", restaurantID, false).
			Group("rating").
			Scan(&rows).Error
		if err != nil {
			return storageErr(err)
		}

		dist := emptyDistribution()
		var sum, total int64
		for _, row := range rows {
			dist[row.Rating] = row.Count
			sum += int64(row.Rating) * row.Count
			total += row.Count
		}

		stats = ReviewStats{
			AverageRating:      roundedAverage(sum, total),
			TotalRatings:       total,
			RatingDistribution: dist,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *GormStore) ToggleFavorite(ctx context.Context, userID, restaurantID string, snap FavoriteSnapshot) (*ToggleResult, error) {
	var result ToggleResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Favorite
		err := tx.First(&existing, "user_id = ? AND restaurant_id = ?", userID, restaurantID).Error
		if err == nil {
			if err := tx.Delete(&domain.Favorite{}, "id = ?", existing.ID).Error; err != nil {
				return storageErr(err)
			}
			result = ToggleResult{IsFavorited: false}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return storageErr(err)
		}

		fav := &domain.Favorite{
			ID:           newID(),
			UserID:       userID,
			RestaurantID: restaurantID,
			Name:         snap.Name,
			Address:      snap.Address,
			Rating:       snap.Rating,
			PriceLevel:   snap.PriceLevel,
			PhotoURL:     snap.PhotoURL,
			CreatedAt:    time.Now().UTC(),
		}
		if err := tx.Create(fav).Error; err != nil {
			if isUniqueViolation(err) {
				// Lost a toggle race: someone else just favorited this
				// pair. The create-arm is idempotent, so answer with the
				// record that won.
				if err := tx.First(fav, "user_id = ? AND restaurant_id = ?", userID, restaurantID).Error; err != nil {
					return storageErr(err)
				}
				result = ToggleResult{IsFavorited: true, Favorite: fav}
				return nil
			}
			return storageErr(err)
		}
		result = ToggleResult{IsFavorited: true, Favorite: fav}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *GormStore) IsFavorited(ctx context.Context, userID, restaurantID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Favorite{}).
		Where("user_id = ? AND restaurant_id = ?", userID, restaurantID).
		Count(&count).Error
	if err != nil {
		return false, storageErr(err)
	}
	return count > 0, nil
}

func (s *GormStore) GetUserFavorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	var favorites []domain.Favorite
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&favorites).Error
	if err != nil {
		return nil, storageErr(err)
	}
	if favorites == nil {
		favorites = []domain.Favorite{}
	}
	return favorites, nil
}

func (s *GormStore) RemoveFavorite(ctx context.Context, userID, restaurantID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND restaurant_id = ?", userID, restaurantID).
		Delete(&domain.Favorite{})
	if res.Error != nil {
		return false, storageErr(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ratingSummary fetches the raw count and rating sum; the rounding itself
// stays in Go (roundedAverage).
func ratingSummary(query *gorm.DB) (sum, count int64, err error) {
	var row struct {
		Sum   int64
		Count int64
	}
	err = query.Select("COALESCE(SUM(rating), 0) AS sum, COUNT(*) AS count").Scan(&row).Error
	return row.Sum, row.Count, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// modernc sqlite reports constraint failures by message only.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "23505") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
