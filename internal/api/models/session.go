package models

// Session is the state of one planner session.
type Session struct {
	ID            string         `json:"id"`
	Form          Form           `json:"form"`
	Loading       bool           `json:"loading"`
	Error         string         `json:"error,omitempty"`
	Routes        []RouteSummary `json:"routes"`
	SelectedRoute *RouteDetails  `json:"selectedRoute,omitempty"`
}

// Form holds the route request fields.
type Form struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Stops       []string `json:"stops"`
}

// RouteSummary is one entry of the route list.
type RouteSummary struct {
	RouteNumber          int    `json:"routeNumber"`
	Content              string `json:"content"`
	Distance             string `json:"distance"`
	Duration             string `json:"duration"`
	FuelUsed             string `json:"fuelUsed"`
	Color                string `json:"color"`
	FuelSavingPrediction string `json:"fuelSavingPrediction"`
	Selected             bool   `json:"selected"`
}

// RouteDetails is the expanded view of the selected route.
type RouteDetails struct {
	RouteNumber          int    `json:"routeNumber"`
	Content              string `json:"content"`
	Distance             string `json:"distance"`
	Duration             string `json:"duration"`
	FuelUsed             string `json:"fuelUsed"`
	FuelSavingPrediction string `json:"fuelSavingPrediction"`
	Efficiency           string `json:"efficiency"`
}

// TextUpdateRequest replaces a text field. Value may be empty but not absent.
type TextUpdateRequest struct {
	Value *string `json:"value" validate:"required"`
}

// SelectionRequest selects a route by number or by list position. Exactly
// one of the two is given.
type SelectionRequest struct {
	RouteNumber *int `json:"routeNumber,omitempty" validate:"required_without=Index,excluded_with=Index"`
	Index       *int `json:"index,omitempty" validate:"omitempty,min=0"`
}
