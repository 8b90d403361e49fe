package geo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/perimetra/sentinel/internal/model/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Device placements are always stored in EPSG:3857, including for site plans
// georeferenced from GPS, because SQLite has no spatial awareness and the
// point columns must round-trip through the inherent Scan function.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Point3857FromString parses a string in the format "x,y" or "x,y,elev" into
// a planar point, and returns the point and elevation.
func Point3857FromString(
	coords string,
) (
	point geom.Point,
	elev float64,
	err error,
) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return geom.NewEmptyPoint(geom.DimXYZ), 0, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(coordsSplit[0], 64)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ), 0, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(coordsSplit[1], 64)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ), 0, ErrInvalidCoordinates
	}
	if len(coordsSplit) > 2 {
		elev, err = strconv.ParseFloat(coordsSplit[2], 64)
		if err != nil {
			return geom.NewEmptyPoint(geom.DimXYZ), 0, ErrInvalidCoordinates
		}
	}
	point = geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: x, Y: y},
			Z:    elev,
			Type: geom.CoordinatesType(geom.DimXYZ),
		},
	)
	return point, elev, nil
}

// PlacementFromString parses an "x,y" or "x,y,elev" string into a core.Placement.
func PlacementFromString(coords string) (core.Placement, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.Placement{}, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(coordsSplit[0], 64)
	if err != nil {
		return core.Placement{}, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(coordsSplit[1], 64)
	if err != nil {
		return core.Placement{}, ErrInvalidCoordinates
	}
	var elev float64
	if len(coordsSplit) > 2 {
		elev, err = strconv.ParseFloat(coordsSplit[2], 64)
		if err != nil {
			return core.Placement{}, ErrInvalidCoordinates
		}
	}
	return core.Placement{X: x, Y: y, Z: elev}, nil
}

// PlacementFrom4326 converts GPS longitude and latitude into a planar
// placement. Elevation is metric already and passes through unprojected.
func PlacementFrom4326(longitude, latitude, elev float64) (core.Placement, error) {
	if longitude < -180 || longitude > 180 || latitude < -90 || latitude > 90 {
		return core.Placement{}, ErrInvalidCoordinates
	}
	point, err := Point3857From4326(longitude, latitude)
	if err != nil {
		return core.Placement{}, err
	}
	coords, ok := point.Coordinates()
	if !ok {
		return core.Placement{}, ErrInvalidCoordinates
	}
	return core.Placement{X: coords.XY.X, Y: coords.XY.Y, Z: elev}, nil
}

// Point3857From4326 converts GPS longitude and latitude into a planar point,
// for devices commissioned from survey coordinates.
func Point3857From4326(
	longitude float64,
	latitude float64,
) (
	point geom.Point,
	err error,
) {
	var x, y float64
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ = f(longitude, latitude, 0)
	point = geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
			Z:  0,
		},
	)
	return point, nil
}
