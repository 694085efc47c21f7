package routing

import (
	"net/url"
	"strings"
)

// WaypointSeparator joins stops in the waypoints parameter.
const WaypointSeparator = "|"

// Query is the input of one route lookup.
type Query struct {
	Origin      string
	Destination string
	Stops       []string
}

// Waypoints returns the non-blank stops in order joined by WaypointSeparator.
// It returns "" when every stop is blank.
func (q Query) Waypoints() string {
	kept := make([]string, 0, len(q.Stops))
	for _, s := range q.Stops {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, WaypointSeparator)
}

// Values encodes the query parameters of GET /route. Origin and destination are
// always present, even when empty; waypoints only when at least one stop is set.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("origin", q.Origin)
	v.Set("destination", q.Destination)
	if wp := q.Waypoints(); wp != "" {
		v.Set("waypoints", wp)
	}
	return v
}
