package places

// Restaurant is the trimmed-down projection of a places API result that the
// mobile client renders in lists and cards.
type Restaurant struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Address      string  `json:"address,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	RatingsTotal int     `json:"ratings_total,omitempty"`
	PriceLevel   int     `json:"price_level,omitempty"`
	PhotoRef     string  `json:"photo_ref,omitempty"`
	Lat          float64 `json:"lat,omitempty"`
	Lng          float64 `json:"lng,omitempty"`
	OpenNow      *bool   `json:"open_now,omitempty"`
}

type searchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID          string  `json:"place_id"`
		Name             string  `json:"name"`
		FormattedAddress string  `json:"formatted_address"`
		Vicinity         string  `json:"vicinity"`
		Rating           float64 `json:"rating"`
		UserRatingsTotal int     `json:"user_ratings_total"`
		PriceLevel       int     `json:"price_level"`
		Photos           []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		OpeningHours *struct {
			OpenNow bool `json:"open_now"`
		} `json:"opening_hours"`
	} `json:"results"`
}
