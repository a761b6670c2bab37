package engagement

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"dinespot/internal/domain"

	"github.com/google/uuid"
)

// Shared business rules. Both backends call these so validation and the
// aggregate arithmetic cannot drift apart.

const minContentLength = 10

func newID() string {
	return uuid.NewString()
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	return nil
}

// normalizeContent trims the content and enforces the minimum length.
func normalizeContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if utf8.RuneCountInString(trimmed) < minContentLength {
		return "", ErrInvalidContent
	}
	return trimmed, nil
}

// normalizeTitle trims the title; an all-whitespace title becomes absent.
func normalizeTitle(title string) string {
	return strings.TrimSpace(title)
}

// roundedAverage computes the mean rating rounded to one decimal place,
// always in Go, never in SQL, so both backends produce identical values.
func roundedAverage(sum, count int64) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(count)*10) / 10
}

func emptyDistribution() map[int]int64 {
	dist := make(map[int]int64, 5)
	for rating := 1; rating <= 5; rating++ {
		dist[rating] = 0
	}
	return dist
}

// sortReviewsNewestFirst orders by created_at descending, ties broken by ID
// descending. The durable store's ORDER BY must match this comparator.
func sortReviewsNewestFirst(reviews []domain.Review) {
	sort.Slice(reviews, func(i, j int) bool {
		if !reviews[i].CreatedAt.Equal(reviews[j].CreatedAt) {
			return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
		}
		return reviews[i].ID > reviews[j].ID
	})
}

func sortFavoritesNewestFirst(favorites []domain.Favorite) {
	sort.Slice(favorites, func(i, j int) bool {
		if !favorites[i].CreatedAt.Equal(favorites[j].CreatedAt) {
			return favorites[i].CreatedAt.After(favorites[j].CreatedAt)
		}
		return favorites[i].ID > favorites[j].ID
	})
}

// pageBounds clamps limit/offset to the slice. limit <= 0 means no limit.
func pageBounds(total, limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return offset, end
}
