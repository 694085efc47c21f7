// Package planner holds the route request form of each planner session and
// drives searches against the route backend.
package planner

import (
	"errors"

	"github.com/greenroute/greenroute/internal/routing"
)

// Form errors.
var (
	ErrStopIndexOutOfRange = errors.New("stop index out of range")
	ErrRouteNotFound       = errors.New("route not found")
)

// noSelection marks a form without a selected route.
const noSelection = -1

// Form is the state of the route request form. It is not safe for concurrent
// use; Session guards it.
type Form struct {
	origin      string
	destination string
	stops       []string

	routes   []routing.Candidate
	selected int
	loading  bool
	err      string
}

// NewForm returns a form with empty fields and one empty stop entry.
func NewForm() *Form {
	return &Form{
		stops:    []string{""},
		selected: noSelection,
	}
}

// UpdateOrigin replaces the origin text.
func (f *Form) UpdateOrigin(text string) {
	f.origin = text
}

// UpdateDestination replaces the destination text.
func (f *Form) UpdateDestination(text string) {
	f.destination = text
}

// UpdateStop replaces the stop at index.
func (f *Form) UpdateStop(index int, text string) error {
	if index < 0 || index >= len(f.stops) {
		return ErrStopIndexOutOfRange
	}
	f.stops[index] = text
	return nil
}

// AddStop appends an empty stop.
func (f *Form) AddStop() {
	f.stops = append(f.stops, "")
}

// RemoveStop removes the stop at index; later stops move down by one.
func (f *Form) RemoveStop(index int) error {
	if index < 0 || index >= len(f.stops) {
		return ErrStopIndexOutOfRange
	}
	f.stops = append(f.stops[:index], f.stops[index+1:]...)
	return nil
}

// SwapOriginDestination exchanges origin and destination.
func (f *Form) SwapOriginDestination() {
	f.origin, f.destination = f.destination, f.origin
}

// Query builds the backend query from the current fields.
func (f *Form) Query() routing.Query {
	return routing.Query{
		Origin:      f.origin,
		Destination: f.destination,
		Stops:       append([]string(nil), f.stops...),
	}
}

// begin puts the form into the loading state and clears the previous outcome.
func (f *Form) begin() {
	f.loading = true
	f.routes = nil
	f.selected = noSelection
	f.err = ""
}

// complete applies the outcome of a search. On success the first route is
// selected; on failure the error message replaces the list.
func (f *Form) complete(routes []routing.Candidate, err error) {
	if err != nil {
		f.routes = nil
		f.selected = noSelection
		f.err = routing.UserMessage(err)
	} else {
		f.routes = routes
		f.selected = 0
		f.err = ""
	}
	f.loading = false
}

// SelectRoute selects the route with the given number. Route numbers are
// unique within a well-formed batch; if the backend repeats one, the first
// entry wins and SelectRouteAt reaches the others.
func (f *Form) SelectRoute(routeNumber int) error {
	for i := range f.routes {
		if f.routes[i].RouteNumber == routeNumber {
			f.selected = i
			return nil
		}
	}
	return ErrRouteNotFound
}

// SelectRouteAt selects the route at position index of the current list.
func (f *Form) SelectRouteAt(index int) error {
	if index < 0 || index >= len(f.routes) {
		return ErrRouteNotFound
	}
	f.selected = index
	return nil
}

// SelectedIndex returns the list position of the selected route, or -1.
func (f *Form) SelectedIndex() int {
	if f.Selected() == nil {
		return noSelection
	}
	return f.selected
}

// Origin returns the origin text.
func (f *Form) Origin() string { return f.origin }

// Destination returns the destination text.
func (f *Form) Destination() string { return f.destination }

// Stops returns a copy of the stop entries.
func (f *Form) Stops() []string { return append([]string(nil), f.stops...) }

// Routes returns the current route list.
func (f *Form) Routes() []routing.Candidate { return f.routes }

// Selected returns the selected route, or nil.
func (f *Form) Selected() *routing.Candidate {
	if f.selected == noSelection || f.selected >= len(f.routes) {
		return nil
	}
	return &f.routes[f.selected]
}

// Loading reports whether a search is in flight.
func (f *Form) Loading() bool { return f.loading }

// Error returns the message shown instead of the route list, or "".
func (f *Form) Error() string { return f.err }
