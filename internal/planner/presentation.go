package planner

import (
	"strings"
	"unicode/utf8"

	"github.com/greenroute/greenroute/internal/routing"
)

// Ellipsis is appended to a truncated prediction.
const Ellipsis = "..."

// ColorNotAvailable is shown when a route has no efficiency label.
const ColorNotAvailable = "N/A"

// ListItem is one entry of the route list.
type ListItem struct {
	RouteNumber int
	Content     string
	Distance    string
	Duration    string
	FuelUsed    string
	Color       string
	Prediction  string
	Selected    bool
}

// Details is the expanded view of the selected route.
type Details struct {
	RouteNumber int
	Content     string
	Distance    string
	Duration    string
	FuelUsed    string
	Prediction  string
	ColorLabel  string
}

// Truncate shortens s to at most n characters and appends Ellipsis when
// anything was cut.
func Truncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	cut := 0
	for i := range s {
		if n == 0 {
			cut = i
			break
		}
		n--
	}
	return s[:cut] + Ellipsis
}

// NewListItem builds the list entry for c with the prediction cut to predictionLength.
func NewListItem(c *routing.Candidate, predictionLength int, selected bool) ListItem {
	return ListItem{
		RouteNumber: c.RouteNumber,
		Content:     c.Content,
		Distance:    c.Distance,
		Duration:    c.Duration,
		FuelUsed:    c.FuelUsed,
		Color:       c.Color,
		Prediction:  Truncate(c.FuelSavingPrediction, predictionLength),
		Selected:    selected,
	}
}

// NewDetails builds the details view for c.
func NewDetails(c *routing.Candidate) Details {
	label := strings.ToUpper(c.Color)
	if label == "" {
		label = ColorNotAvailable
	}
	return Details{
		RouteNumber: c.RouteNumber,
		Content:     c.Content,
		Distance:    c.Distance,
		Duration:    c.Duration,
		FuelUsed:    c.FuelUsed,
		Prediction:  c.FuelSavingPrediction,
		ColorLabel:  label,
	}
}
