// Package polyline encodes and decodes paths with Google's encoded polyline
// algorithm and provides small geometry helpers for route paths.
// The algorithm is documented at: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"math"
)

// ErrTruncated is returned when an encoded string ends in the middle of a value
// or carries a latitude without its longitude.
var ErrTruncated = errors.New("polyline: truncated input")

// DefaultPrecision is the number of decimal places used by Google and most
// routing backends.
const DefaultPrecision = 5

// Coordinate is a geographic point.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Bounds is the smallest box containing a set of coordinates.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Encode encodes coords with DefaultPrecision.
func Encode(coords []Coordinate) string {
	return EncodePrecision(coords, DefaultPrecision)
}

// EncodePrecision encodes coords keeping the given number of decimal places.
func EncodePrecision(coords []Coordinate, precision int) string {
	if len(coords) == 0 {
		return ""
	}

	factor := math.Pow10(precision)
	buf := make([]byte, 0, len(coords)*6)
	var prevLat, prevLng int

	for _, c := range coords {
		lat := int(math.Round(c.Lat * factor))
		lng := int(math.Round(c.Lng * factor))

		buf = appendValue(buf, lat-prevLat)
		buf = appendValue(buf, lng-prevLng)

		prevLat, prevLng = lat, lng
	}

	return string(buf)
}

// Decode decodes a string produced with DefaultPrecision.
func Decode(encoded string) ([]Coordinate, error) {
	return DecodePrecision(encoded, DefaultPrecision)
}

// DecodePrecision decodes a string produced with the given precision.
func DecodePrecision(encoded string, precision int) ([]Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}

	factor := math.Pow10(precision)
	var coords []Coordinate
	var lat, lng, i int

	for i < len(encoded) {
		dLat, next, ok := readValue(encoded, i)
		if !ok || next >= len(encoded) {
			return nil, ErrTruncated
		}
		dLng, next, ok := readValue(encoded, next)
		if !ok {
			return nil, ErrTruncated
		}
		i = next

		lat += dLat
		lng += dLng
		coords = append(coords, Coordinate{
			Lat: float64(lat) / factor,
			Lng: float64(lng) / factor,
		})
	}

	return coords, nil
}

// readValue reads one zig-zag varint starting at i.
func readValue(encoded string, i int) (value, next int, ok bool) {
	var result, shift int
	for i < len(encoded) {
		b := int(encoded[i]) - 63
		i++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), i, true
			}
			return result >> 1, i, true
		}
	}
	return 0, i, false
}

func appendValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}

// Length returns the haversine length of the path in meters.
func Length(coords []Coordinate) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += haversine(coords[i-1], coords[i])
	}
	return total
}

// BoundsOf returns the bounds of coords. ok is false for an empty slice.
func BoundsOf(coords []Coordinate) (b Bounds, ok bool) {
	if len(coords) == 0 {
		return Bounds{}, false
	}

	b = Bounds{South: coords[0].Lat, North: coords[0].Lat, West: coords[0].Lng, East: coords[0].Lng}
	for _, c := range coords[1:] {
		b = b.Extend(c)
	}
	return b, true
}

// Extend returns b grown to include c.
func (b Bounds) Extend(c Coordinate) Bounds {
	b.South = math.Min(b.South, c.Lat)
	b.North = math.Max(b.North, c.Lat)
	b.West = math.Min(b.West, c.Lng)
	b.East = math.Max(b.East, c.Lng)
	return b
}

const earthRadiusMeters = 6371000

func haversine(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLng := math.Sin(dLng / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLng*sinDLng
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
