package region

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Boundary is the study-region outline used to mask environmental layers.
// The source path is kept because GDAL cutline operations take a file, not
// a parsed geometry.
type Boundary struct {
	Path     string
	Geometry orb.MultiPolygon
}

func LoadBoundary(path string) (*Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read boundary file: %v", err)
	}
	geometry, err := parseGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse boundary file %s: %v", path, err)
	}
	multi, err := asMultiPolygon(geometry)
	if err != nil {
		return nil, fmt.Errorf("invalid boundary geometry in %s: %v", path, err)
	}
	return &Boundary{Path: path, Geometry: multi}, nil
}

// parseGeometry accepts a bare geometry, a single feature or a collection
// holding exactly one feature.
func parseGeometry(data []byte) (orb.Geometry, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	switch probe.Type {
	case "FeatureCollection":
		collection, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, err
		}
		if len(collection.Features) != 1 {
			return nil, fmt.Errorf("expected exactly one feature, got %d", len(collection.Features))
		}
		return collection.Features[0].Geometry, nil
	case "Feature":
		feature, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, err
		}
		return feature.Geometry, nil
	default:
		geometry, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, err
		}
		return geometry.Geometry(), nil
	}
}

func asMultiPolygon(g orb.Geometry) (orb.MultiPolygon, error) {
	switch geometry := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{geometry}, nil
	case orb.MultiPolygon:
		return geometry, nil
	default:
		return nil, fmt.Errorf("expected a polygon or multipolygon, got %s", g.GeoJSONType())
	}
}

// Centroid returns the planar centroid of the boundary as latitude and
// longitude.
func (b *Boundary) Centroid() (float64, float64, error) {
	centroid, area := planar.CentroidArea(b.Geometry)
	if area <= 0 {
		return 0, 0, errors.New("boundary has no area")
	}
	return centroid.Y(), centroid.X(), nil
}

// Bound returns the geographic bounding box of the boundary.
func (b *Boundary) Bound() orb.Bound {
	return b.Geometry.Bound()
}
