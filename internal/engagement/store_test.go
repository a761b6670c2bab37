package engagement

import (
	"context"
	"fmt"
	"testing"
	"time"

	"dinespot/internal/database"
	"dinespot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// The same behavioral suite runs against both backends. Callers must not be
// able to tell the stores apart, so every test below asserts identical
// error kinds, totals, rounded averages and ordering for each of them.

type backend struct {
	name string
	repo Repository
	db   *gorm.DB // nil for the memory backend
}

func newBackends(t *testing.T) []backend {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err, "failed to open test database")

	// A :memory: DSN gives every pooled connection its own database, so the
	// pool must be capped at a single connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	return []backend{
		{name: "memory", repo: NewMemoryStore()},
		{name: "database", repo: NewGormStore(db), db: db},
	}
}

func validParams(userID, restaurantID string, rating int) CreateReviewParams {
	return CreateReviewParams{
		UserID:       userID,
		RestaurantID: restaurantID,
		Rating:       rating,
		Content:      "Excellent food and service",
		UserName:     "Test User",
	}
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestCreateReview(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			p := validParams("user-1", "rest-1", 5)
			p.Title = "  Great spot  "
			rv, err := be.repo.CreateReview(ctx, p)
			require.NoError(t, err)

			assert.NotEmpty(t, rv.ID)
			assert.Equal(t, "user-1", rv.UserID)
			assert.Equal(t, "rest-1", rv.RestaurantID)
			assert.Equal(t, 5, rv.Rating)
			assert.Equal(t, "Great spot", rv.Title)
			assert.Equal(t, "Excellent food and service", rv.Content)
			assert.Equal(t, "Test User", rv.UserName)
			assert.Equal(t, 0, rv.HelpfulCount)
			assert.False(t, rv.IsReported)
			assert.Equal(t, rv.CreatedAt, rv.UpdatedAt)
		})
	}
}

func TestCreateReview_Duplicate(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			_, err := be.repo.CreateReview(ctx, validParams("user-1", "rest-1", 5))
			require.NoError(t, err)

			// Different rating/content must not matter: one review per pair.
			p := validParams("user-1", "rest-1", 2)
			p.Content = "Changed my mind, actually mediocre"
			_, err = be.repo.CreateReview(ctx, p)
			assert.ErrorIs(t, err, ErrDuplicateReview)

			// Other pairs are unaffected.
			_, err = be.repo.CreateReview(ctx, validParams("user-2", "rest-1", 4))
			assert.NoError(t, err)
			_, err = be.repo.CreateReview(ctx, validParams("user-1", "rest-2", 4))
			assert.NoError(t, err)
		})
	}
}

func TestCreateReview_InvalidRating(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			for _, rating := range []int{0, 6, -1} {
				_, err := be.repo.CreateReview(ctx, validParams("user-1", "rest-1", rating))
				assert.ErrorIs(t, err, ErrInvalidRating, "rating %d", rating)
			}

			// Nothing persisted.
			rv, err := be.repo.GetUserReview(ctx, "user-1", "rest-1")
			require.NoError(t, err)
			assert.Nil(t, rv)
		})
	}
}

func TestCreateReview_ContentLength(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			p := validParams("user-1", "rest-1", 4)
			p.Content = "nine char" // 9 trimmed characters
			_, err := be.repo.CreateReview(ctx, p)
			assert.ErrorIs(t, err, ErrInvalidContent)

			p.Content = "   short one   " // 9 after trimming
			_, err = be.repo.CreateReview(ctx, p)
			assert.ErrorIs(t, err, ErrInvalidContent)

			p.Content = "ten chars!" // exactly 10
			rv, err := be.repo.CreateReview(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, "ten chars!", rv.Content)
		})
	}
}

func TestUpdateReview(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			rv, err := be.repo.CreateReview(ctx, validParams("user-1", "rest-1", 5))
			require.NoError(t, err)

			// Partial update: only rating changes.
			updated, err := be.repo.UpdateReview(ctx, "user-1", rv.ID, UpdateReviewParams{Rating: intPtr(3)})
			require.NoError(t, err)
			assert.Equal(t, 3, updated.Rating)
			assert.Equal(t, rv.Content, updated.Content)
			assert.Equal(t, rv.CreatedAt, updated.CreatedAt)
			assert.False(t, updated.UpdatedAt.Before(rv.UpdatedAt))

			// Same validation as creation applies to supplied fields.
			_, err = be.repo.UpdateReview(ctx, "user-1", rv.ID, UpdateReviewParams{Rating: intPtr(6)})
			assert.ErrorIs(t, err, ErrInvalidRating)
			_, err = be.repo.UpdateReview(ctx, "user-1", rv.ID, UpdateReviewParams{Content: strPtr("too short")})
			assert.ErrorIs(t, err, ErrInvalidContent)

			// Failed updates mutate nothing.
			current, err := be.repo.GetUserReview(ctx, "user-1", "rest-1")
			require.NoError(t, err)
			assert.Equal(t, 3, current.Rating)
			assert.Equal(t, rv.Content, current.Content)

			_, err = be.repo.UpdateReview(ctx, "user-1", "missing-id", UpdateReviewParams{Rating: intPtr(4)})
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = be.repo.UpdateReview(ctx, "user-2", rv.ID, UpdateReviewParams{Rating: intPtr(4)})
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestDeleteReview(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			rv, err := be.repo.CreateReview(ctx, validParams("user-1", "rest-1", 5))
			require.NoError(t, err)

			assert.ErrorIs(t, be.repo.DeleteReview(ctx, "user-2", rv.ID), ErrUnauthorized)
			assert.ErrorIs(t, be.repo.DeleteReview(ctx, "user-1", "missing-id"), ErrNotFound)

			require.NoError(t, be.repo.DeleteReview(ctx, "user-1", rv.ID))
			assert.ErrorIs(t, be.repo.DeleteReview(ctx, "user-1", rv.ID), ErrNotFound)

			// Deletion frees the pair for a new review.
			_, err = be.repo.CreateReview(ctx, validParams("user-1", "rest-1", 2))
			assert.NoError(t, err)
		})
	}
}

func TestGetRestaurantReviews_PaginationAndAggregates(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			ratings := []int{5, 4, 4, 3, 1}
			for i, rating := range ratings {
				_, err := be.repo.CreateReview(ctx, validParams(fmt.Sprintf("user-%d", i), "rest-1", rating))
				require.NoError(t, err)
			}

			page, err := be.repo.GetRestaurantReviews(ctx, "rest-1", 2, 0)
			require.NoError(t, err)
			assert.Len(t, page.Reviews, 2)
			// Aggregates cover the full set regardless of the page.
			assert.Equal(t, int64(5), page.Total)
			assert.Equal(t, int64(5), page.TotalRatings)
			assert.Equal(t, 3.4, page.AverageRating) // (5+4+4+3+1)/5 = 3.4

			second, err := be.repo.GetRestaurantReviews(ctx, "rest-1", 2, 2)
			require.NoError(t, err)
			assert.Len(t, second.Reviews, 2)
			assert.Equal(t, int64(5), second.Total)

			tail, err := be.repo.GetRestaurantReviews(ctx, "rest-1", 2, 4)
			require.NoError(t, err)
			assert.Len(t, tail.Reviews, 1)

			beyond, err := be.repo.GetRestaurantReviews(ctx, "rest-1", 2, 10)
			require.NoError(t, err)
			assert.Empty(t, beyond.Reviews)
			assert.Equal(t, int64(5), beyond.Total)

			empty, err := be.repo.GetRestaurantReviews(ctx, "no-such-restaurant", 10, 0)
			require.NoError(t, err)
			assert.Empty(t, empty.Reviews)
			assert.Equal(t, int64(0), empty.Total)
			assert.Equal(t, float64(0), empty.AverageRating)
		})
	}
}

func TestPagination_NoLimitStillAppliesOffset(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			for i := 1; i <= 3; i++ {
				_, err := be.repo.CreateReview(ctx, validParams("user-1", fmt.Sprintf("rest-%d", i), 4))
				require.NoError(t, err)
				_, err = be.repo.CreateReview(ctx, validParams(fmt.Sprintf("rater-%d", i), "rest-9", 4))
				require.NoError(t, err)
			}

			// limit <= 0 means no limit, never "no offset".
			mine, err := be.repo.GetUserReviews(ctx, "user-1", 0, 1)
			require.NoError(t, err)
			assert.Len(t, mine, 2)

			page, err := be.repo.GetRestaurantReviews(ctx, "rest-9", 0, 2)
			require.NoError(t, err)
			assert.Len(t, page.Reviews, 1)
			assert.Equal(t, int64(3), page.Total)

			all, err := be.repo.GetRestaurantReviews(ctx, "rest-9", -1, 0)
			require.NoError(t, err)
			assert.Len(t, all.Reviews, 3)
		})
	}
}

func TestGetRestaurantReviews_RoundsAverage(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			for i, rating := range []int{5, 4, 4} {
				_, err := be.repo.CreateReview(ctx, validParams(fmt.Sprintf("user-%d", i), "rest-1", rating))
				require.NoError(t, err)
			}

			page, err := be.repo.GetRestaurantReviews(ctx, "rest-1", 10, 0)
			require.NoError(t, err)
			assert.Equal(t, 4.3, page.AverageRating) // 13/3 = 4.333... -> 4.3
		})
	}
}

func TestReportedReviews_ExcludedFromPublicListings(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			visible, err := be.repo.CreateReview(ctx, validParams("user-1", "rest-1", 5))
			require.NoError(t, err)
			reported, err := be.repo.CreateReview(ctx, validParams("user-2", "rest-1", 1))
			require.NoError(t, err)

			require.NoError(t, be.repo.ReportReview(ctx, reported.ID))

			page, err := be.repo.GetRestaurantReviews(ctx, "rest-1", 10, 0)
			require.NoError(t, err)
			require.Len(t, page.Reviews, 1)
			assert.Equal(t, visible.ID, page.Reviews[0].ID)
			assert.Equal(t, int64(1), page.Total)
			assert.Equal(t, 5.0, page.AverageRating)

			// The owner still sees it, and it still blocks a second review.
			mine, err := be.repo.GetUserReview(ctx, "user-2", "rest-1")
			require.NoError(t, err)
			require.NotNil(t, mine)
			assert.True(t, mine.IsReported)

			_, err = be.repo.CreateReview(ctx, validParams("user-2", "rest-1", 3))
			assert.ErrorIs(t, err, ErrDuplicateReview)

			own, err := be.repo.GetUserReviews(ctx, "user-2", 10, 0)
			require.NoError(t, err)
			assert.Len(t, own, 1)
		})
	}
}

func TestMarkReviewHelpful(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			rv, err := be.repo.CreateReview(ctx, validParams("user-1", "rest-1", 5))
			require.NoError(t, err)

			// Not idempotent: each call increments by exactly one.
			for i := 1; i <= 3; i++ {
				count, err := be.repo.MarkReviewHelpful(ctx, rv.ID)
				require.NoError(t, err)
				assert.Equal(t, i, count)
			}

			_, err = be.repo.MarkReviewHelpful(ctx, "missing-id")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestReportReview_Idempotent(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			rv, err := be.repo.CreateReview(ctx, validParams("user-1", "rest-1", 5))
			require.NoError(t, err)

			require.NoError(t, be.repo.ReportReview(ctx, rv.ID))
			require.NoError(t, be.repo.ReportReview(ctx, rv.ID))

			assert.ErrorIs(t, be.repo.ReportReview(ctx, "missing-id"), ErrNotFound)
		})
	}
}

func TestGetReviewStats(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			// Empty restaurant: zero stats with a full distribution.
			stats, err := be.repo.GetReviewStats(ctx, "rest-1")
			require.NoError(t, err)
			assert.Equal(t, float64(0), stats.AverageRating)
			assert.Equal(t, int64(0), stats.TotalRatings)
			assert.Equal(t, map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, stats.RatingDistribution)

			for i, rating := range []int{5, 5, 4, 2} {
				_, err := be.repo.CreateReview(ctx, validParams(fmt.Sprintf("user-%d", i), "rest-1", rating))
				require.NoError(t, err)
			}

			stats, err = be.repo.GetReviewStats(ctx, "rest-1")
			require.NoError(t, err)
			assert.Equal(t, 4.0, stats.AverageRating) // 16/4
			assert.Equal(t, int64(4), stats.TotalRatings)
			assert.Equal(t, map[int]int64{1: 0, 2: 1, 3: 0, 4: 1, 5: 2}, stats.RatingDistribution)
		})
	}
}

func TestGetReviewStats_OnlyReportedReviews(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			rv, err := be.repo.CreateReview(ctx, validParams("user-1", "rest-1", 5))
			require.NoError(t, err)
			require.NoError(t, be.repo.ReportReview(ctx, rv.ID))

			stats, err := be.repo.GetReviewStats(ctx, "rest-1")
			require.NoError(t, err)
			assert.Equal(t, float64(0), stats.AverageRating)
			assert.Equal(t, int64(0), stats.TotalRatings)
			assert.Equal(t, map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, stats.RatingDistribution)
		})
	}
}

func TestToggleFavorite_Involution(t *testing.T) {
	snap := FavoriteSnapshot{
		Name:       "Mario's Pizza",
		Address:    "1 Main St",
		Rating:     4.6,
		PriceLevel: 2,
		PhotoURL:   "https://example.com/p.jpg",
	}

	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			first, err := be.repo.ToggleFavorite(ctx, "user-1", "rest-1", snap)
			require.NoError(t, err)
			assert.True(t, first.IsFavorited)
			require.NotNil(t, first.Favorite)
			assert.Equal(t, "Mario's Pizza", first.Favorite.Name)
			assert.Equal(t, 2, first.Favorite.PriceLevel)

			second, err := be.repo.ToggleFavorite(ctx, "user-1", "rest-1", snap)
			require.NoError(t, err)
			assert.False(t, second.IsFavorited)
			assert.Nil(t, second.Favorite)

			third, err := be.repo.ToggleFavorite(ctx, "user-1", "rest-1", snap)
			require.NoError(t, err)
			assert.True(t, third.IsFavorited)

			// Odd number of toggles: exactly one favorite exists.
			favorites, err := be.repo.GetUserFavorites(ctx, "user-1")
			require.NoError(t, err)
			assert.Len(t, favorites, 1)

			exists, err := be.repo.IsFavorited(ctx, "user-1", "rest-1")
			require.NoError(t, err)
			assert.True(t, exists)

			fourth, err := be.repo.ToggleFavorite(ctx, "user-1", "rest-1", snap)
			require.NoError(t, err)
			assert.False(t, fourth.IsFavorited)

			favorites, err = be.repo.GetUserFavorites(ctx, "user-1")
			require.NoError(t, err)
			assert.Empty(t, favorites)
		})
	}
}

func TestRemoveFavorite(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			removed, err := be.repo.RemoveFavorite(ctx, "user-1", "rest-1")
			require.NoError(t, err)
			assert.False(t, removed)

			_, err = be.repo.ToggleFavorite(ctx, "user-1", "rest-1", FavoriteSnapshot{Name: "Spot"})
			require.NoError(t, err)

			removed, err = be.repo.RemoveFavorite(ctx, "user-1", "rest-1")
			require.NoError(t, err)
			assert.True(t, removed)

			exists, err := be.repo.IsFavorited(ctx, "user-1", "rest-1")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

// The §8-style end-to-end scenario: create, restate, report, and watch the
// public aggregates move while the owner's view stays intact.
func TestReviewLifecycleScenario(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			rv, err := be.repo.CreateReview(ctx, CreateReviewParams{
				UserID:       "user-a",
				RestaurantID: "rest-r",
				Rating:       5,
				Content:      "Excellent food and service",
				UserName:     "Alice",
			})
			require.NoError(t, err)

			stats, err := be.repo.GetReviewStats(ctx, "rest-r")
			require.NoError(t, err)
			assert.Equal(t, 5.0, stats.AverageRating)
			assert.Equal(t, int64(1), stats.TotalRatings)
			assert.Equal(t, map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 1}, stats.RatingDistribution)

			_, err = be.repo.UpdateReview(ctx, "user-a", rv.ID, UpdateReviewParams{Rating: intPtr(3)})
			require.NoError(t, err)

			stats, err = be.repo.GetReviewStats(ctx, "rest-r")
			require.NoError(t, err)
			assert.Equal(t, 3.0, stats.AverageRating)

			// Anyone may report; the review vanishes from public view only.
			require.NoError(t, be.repo.ReportReview(ctx, rv.ID))

			stats, err = be.repo.GetReviewStats(ctx, "rest-r")
			require.NoError(t, err)
			assert.Equal(t, float64(0), stats.AverageRating)
			assert.Equal(t, int64(0), stats.TotalRatings)

			page, err := be.repo.GetRestaurantReviews(ctx, "rest-r", 10, 0)
			require.NoError(t, err)
			assert.Empty(t, page.Reviews)

			mine, err := be.repo.GetUserReview(ctx, "user-a", "rest-r")
			require.NoError(t, err)
			require.NotNil(t, mine)
			assert.Equal(t, 3, mine.Rating)
			assert.True(t, mine.IsReported)
		})
	}
}

// Ordering is most-recent-first with ID as the deterministic tie-breaker.
// Timestamps are pinned per backend: the memory store through its clock
// hook, the database store by rewriting created_at directly.
func TestRestaurantReviews_OrderingWithTies(t *testing.T) {
	pinned := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			if mem, ok := be.repo.(*MemoryStore); ok {
				mem.now = func() time.Time { return pinned }
			}

			var ids []string
			for i := 0; i < 3; i++ {
				rv, err := be.repo.CreateReview(ctx, validParams(fmt.Sprintf("user-%d", i), "rest-1", 4))
				require.NoError(t, err)
				ids = append(ids, rv.ID)
			}

			if be.db != nil {
				err := be.db.Model(&domain.Review{}).
					Where("restaurant_id = ?", "rest-1").
					UpdateColumn("created_at", pinned).Error
				require.NoError(t, err)
			}

			page, err := be.repo.GetRestaurantReviews(ctx, "rest-1", 10, 0)
			require.NoError(t, err)
			require.Len(t, page.Reviews, 3)

			for i := 1; i < len(page.Reviews); i++ {
				prev, cur := page.Reviews[i-1], page.Reviews[i]
				assert.Equal(t, prev.CreatedAt, cur.CreatedAt)
				assert.Greater(t, prev.ID, cur.ID, "equal timestamps must order by ID descending")
			}
			assert.ElementsMatch(t, ids, []string{page.Reviews[0].ID, page.Reviews[1].ID, page.Reviews[2].ID})
		})
	}
}

func TestConcurrentCreateReview_OneWinner(t *testing.T) {
	for _, be := range newBackends(t) {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()

			const attempts = 8
			errs := make(chan error, attempts)
			for i := 0; i < attempts; i++ {
				go func() {
					_, err := be.repo.CreateReview(ctx, validParams("user-1", "rest-1", 4))
					errs <- err
				}()
			}

			var succeeded, duplicates int
			for i := 0; i < attempts; i++ {
				switch err := <-errs; {
				case err == nil:
					succeeded++
				default:
					require.ErrorIs(t, err, ErrDuplicateReview)
					duplicates++
				}
			}

			assert.Equal(t, 1, succeeded, "exactly one concurrent create may win")
			assert.Equal(t, attempts-1, duplicates)
		})
	}
}
