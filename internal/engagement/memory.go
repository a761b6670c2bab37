package engagement

import (
	"context"
	"sync"
	"time"

	"dinespot/internal/domain"
)

type pairKey struct {
	userID       string
	restaurantID string
}

// MemoryStore is the volatile backend: records live in process memory,
// indexed by primary key plus secondary indexes for pair lookups and
// per-restaurant / per-user enumeration. A single coarse lock guards every
// operation; the access pattern is read-mostly and low-contention, so one
// RWMutex per store instance is enough.
type MemoryStore struct {
	mu sync.RWMutex

	reviews             map[string]*domain.Review
	reviewByPair        map[pairKey]string
	reviewsByRestaurant map[string]map[string]struct{}
	reviewsByUser       map[string]map[string]struct{}

	favorites       map[string]*domain.Favorite
	favoriteByPair  map[pairKey]string
	favoritesByUser map[string]map[string]struct{}

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reviews:             make(map[string]*domain.Review),
		reviewByPair:        make(map[pairKey]string),
		reviewsByRestaurant: make(map[string]map[string]struct{}),
		reviewsByUser:       make(map[string]map[string]struct{}),
		favorites:           make(map[string]*domain.Favorite),
		favoriteByPair:      make(map[pairKey]string),
		favoritesByUser:     make(map[string]map[string]struct{}),
		now:                 func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) CreateReview(ctx context.Context, p CreateReviewParams) (*domain.Review, error) {
	if err := validateRating(p.Rating); err != nil {
		return nil, err
	}
	content, err := normalizeContent(p.Content)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pair := pairKey{p.UserID, p.RestaurantID}
	if _, exists := s.reviewByPair[pair]; exists {
		return nil, ErrDuplicateReview
	}

	now := s.now()
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

	s.reviews[rv.ID] = rv
	s.reviewByPair[pair] = rv.ID
	addToIndex(s.reviewsByRestaurant, rv.RestaurantID, rv.ID)
	addToIndex(s.reviewsByUser, rv.UserID, rv.ID)

	return copyReview(rv), nil
}

func (s *MemoryStore) UpdateReview(ctx context.Context, userID, reviewID string, p UpdateReviewParams) (*domain.Review, error) {
	// Validate before taking the lock so a bad request mutates nothing.
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

	s.mu.Lock()
	defer s.mu.Unlock()

	rv, ok := s.reviews[reviewID]
	if !ok {
		return nil, ErrNotFound
	}
	if rv.UserID != userID {
		return nil, ErrUnauthorized
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
	rv.UpdatedAt = s.now()

	return copyReview(rv), nil
}

func (s *MemoryStore) DeleteReview(ctx context.Context, userID, reviewID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rv, ok := s.reviews[reviewID]
	if !ok {
		return ErrNotFound
	}
	if rv.UserID != userID {
		return ErrUnauthorized
	}

	delete(s.reviews, reviewID)
	delete(s.reviewByPair, pairKey{rv.UserID, rv.RestaurantID})
	removeFromIndex(s.reviewsByRestaurant, rv.RestaurantID, reviewID)
	removeFromIndex(s.reviewsByUser, rv.UserID, reviewID)

	return nil
}

func (s *MemoryStore) GetUserReview(ctx context.Context, userID, restaurantID string) (*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.reviewByPair[pairKey{userID, restaurantID}]
	if !ok {
		return nil, nil
	}
	return copyReview(s.reviews[id]), nil
}

func (s *MemoryStore) GetRestaurantReviews(ctx context.Context, restaurantID string, limit, offset int) (*RestaurantReviews, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		matching []domain.Review
		sum      int64
	)
	for id := range s.reviewsByRestaurant[restaurantID] {
		rv := s.reviews[id]
		if rv.IsReported {
			continue
		}
		matching = append(matching, *rv)
		sum += int64(rv.Rating)
	}
	sortReviewsNewestFirst(matching)

	total := int64(len(matching))
	start, end := pageBounds(len(matching), limit, offset)

	page := make([]domain.Review, end-start)
	copy(page, matching[start:end])

	return &RestaurantReviews{
		Reviews:       page,
		Total:         total,
		AverageRating: roundedAverage(sum, total),
		TotalRatings:  total,
	}, nil
}

func (s *MemoryStore) GetUserReviews(ctx context.Context, userID string, limit, offset int) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Own reviews include reported ones.
	var matching []domain.Review
	for id := range s.reviewsByUser[userID] {
		matching = append(matching, *s.reviews[id])
	}
	sortReviewsNewestFirst(matching)

	start, end := pageBounds(len(matching), limit, offset)
	page := make([]domain.Review, end-start)
	copy(page, matching[start:end])

	return page, nil
}

func (s *MemoryStore) MarkReviewHelpful(ctx context.Context, reviewID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rv, ok := s.reviews[reviewID]
	if !ok {
		return 0, ErrNotFound
	}
	rv.HelpfulCount++
	return rv.HelpfulCount, nil
}

func (s *MemoryStore) ReportReview(ctx context.Context, reviewID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rv, ok := s.reviews[reviewID]
	if !ok {
		return ErrNotFound
	}
	rv.IsReported = true
	return nil
}

func (s *MemoryStore) GetReviewStats(ctx context.Context, restaurantID string) (*ReviewStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dist := emptyDistribution()
	var sum, total int64
	for id := range s.reviewsByRestaurant[restaurantID] {
		rv := s.reviews[id]
		if rv.IsReported {
			continue
		}
		dist[rv.Rating]++
		sum += int64(rv.Rating)
		total++
	}

	return &ReviewStats{
		AverageRating:      roundedAverage(sum, total),
		TotalRatings:       total,
		RatingDistribution: dist,
	}, nil
}

func (s *MemoryStore) ToggleFavorite(ctx context.Context, userID, restaurantID string, snap FavoriteSnapshot) (*ToggleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair := pairKey{userID, restaurantID}
	if id, exists := s.favoriteByPair[pair]; exists {
		delete(s.favorites, id)
		delete(s.favoriteByPair, pair)
		removeFromIndex(s.favoritesByUser, userID, id)
		return &ToggleResult{IsFavorited: false}, nil
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
		CreatedAt:    s.now(),
	}
	s.favorites[fav.ID] = fav
	s.favoriteByPair[pair] = fav.ID
	addToIndex(s.favoritesByUser, userID, fav.ID)

	return &ToggleResult{IsFavorited: true, Favorite: copyFavorite(fav)}, nil
}

func (s *MemoryStore) IsFavorited(ctx context.Context, userID, restaurantID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.favoriteByPair[pairKey{userID, restaurantID}]
	return exists, nil
}

func (s *MemoryStore) GetUserFavorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	favorites := make([]domain.Favorite, 0, len(s.favoritesByUser[userID]))
	for id := range s.favoritesByUser[userID] {
		favorites = append(favorites, *s.favorites[id])
	}
	sortFavoritesNewestFirst(favorites)
	return favorites, nil
}

func (s *MemoryStore) RemoveFavorite(ctx context.Context, userID, restaurantID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair := pairKey{userID, restaurantID}
	id, exists := s.favoriteByPair[pair]
	if !exists {
		return false, nil
	}
	delete(s.favorites, id)
	delete(s.favoriteByPair, pair)
	removeFromIndex(s.favoritesByUser, userID, id)
	return true, nil
}

func addToIndex(index map[string]map[string]struct{}, key, id string) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[id] = struct{}{}
}

func removeFromIndex(index map[string]map[string]struct{}, key, id string) {
	if set, ok := index[key]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(index, key)
		}
	}
}

// Returned records are copies so callers can never mutate indexed state.
func copyReview(rv *domain.Review) *domain.Review {
	out := *rv
	return &out
}

func copyFavorite(f *domain.Favorite) *domain.Favorite {
	out := *f
	return &out
}
