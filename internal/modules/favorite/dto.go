package favorite

import "dinespot/internal/engagement"

// SnapshotRequest is the restaurant snapshot sent by the client on toggle,
// captured so the favorites list renders without a live places call.
type SnapshotRequest struct {
	Name       string  `json:"name" binding:"required"`
	Address    string  `json:"address,omitempty"`
	Rating     float64 `json:"rating,omitempty"`
	PriceLevel int     `json:"price_level,omitempty"`
	PhotoURL   string  `json:"photo_url,omitempty"`
}

func (r SnapshotRequest) toSnapshot() engagement.FavoriteSnapshot {
	return engagement.FavoriteSnapshot{
		Name:       r.Name,
		Address:    r.Address,
		Rating:     r.Rating,
		PriceLevel: r.PriceLevel,
		PhotoURL:   r.PhotoURL,
	}
}
