package engagement

import "errors"

var (
	ErrInvalidRating      = errors.New("invalid_rating")
	ErrInvalidContent     = errors.New("invalid_content")
	ErrDuplicateReview    = errors.New("duplicate_review")
	ErrNotFound           = errors.New("not_found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrStorageUnavailable = errors.New("storage_unavailable")
)
