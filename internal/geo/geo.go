package geo

import (
	"errors"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/memomap/memomap/internal/model"
)

// Pin positions are projected to EPSG:3857 because that is what tiled map
// widgets consume; the stored model stays in plain WGS84 lat/lng.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PositionFromString parses a "lat,lng" string into a model.Position.
// Geocoder responses carry coordinates as strings.
func PositionFromString(coords string) (model.Position, error) {
	split := strings.Split(coords, ",")
	if len(split) != 2 {
		return model.Position{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(split[0]), 64)
	if err != nil {
		return model.Position{}, ErrInvalidCoordinates
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(split[1]), 64)
	if err != nil {
		return model.Position{}, ErrInvalidCoordinates
	}
	pos := model.Position{Lat: lat, Lng: lng}
	if !pos.Valid() {
		return model.Position{}, ErrInvalidCoordinates
	}
	return pos, nil
}

// Project3857 converts a WGS84 position to an EPSG:3857 web-mercator point.
func Project3857(pos model.Position) (geom.Point, error) {
	if !pos.Valid() {
		return geom.Point{}, ErrInvalidCoordinates
	}
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(pos.Lng, pos.Lat, 0)
	point, err := geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
		},
	)
	if err != nil {
		return geom.Point{}, err
	}
	return point, nil
}

// Viewport is a WGS84 bounding box used to bias place search.
type Viewport struct {
	SouthWest model.Position
	NorthEast model.Position
}

// Valid reports whether both corners are in range and ordered.
func (v Viewport) Valid() bool {
	if !v.SouthWest.Valid() || !v.NorthEast.Valid() {
		return false
	}
	return v.SouthWest.Lat <= v.NorthEast.Lat && v.SouthWest.Lng <= v.NorthEast.Lng
}

// Contains reports whether the position lies inside the viewport.
func (v Viewport) Contains(pos model.Position) bool {
	return pos.Lat >= v.SouthWest.Lat && pos.Lat <= v.NorthEast.Lat &&
		pos.Lng >= v.SouthWest.Lng && pos.Lng <= v.NorthEast.Lng
}

// Envelope returns the viewport as a simplefeatures envelope in lng/lat order.
func (v Viewport) Envelope() (geom.Envelope, error) {
	return geom.NewEnvelope([]geom.XY{
		{X: v.SouthWest.Lng, Y: v.SouthWest.Lat},
		{X: v.NorthEast.Lng, Y: v.NorthEast.Lat},
	})
}

// ViewboxParam renders the viewport in the geocoder's viewbox parameter
// order: left,top,right,bottom (lng,lat).
func (v Viewport) ViewboxParam() string {
	format := func(f float64) string {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Join([]string{
		format(v.SouthWest.Lng),
		format(v.NorthEast.Lat),
		format(v.NorthEast.Lng),
		format(v.SouthWest.Lat),
	}, ",")
}
