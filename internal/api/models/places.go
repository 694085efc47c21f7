package models

// PlaceSuggestion is one autocomplete result.
type PlaceSuggestion struct {
	Description string   `json:"description"`
	PlaceID     string   `json:"placeId"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
}

// PlaceSuggestions wraps autocomplete results.
type PlaceSuggestions struct {
	Items []PlaceSuggestion `json:"items"`
}
