package occurrence

import (
	"errors"
	"fmt"
	"os"

	"github.com/airbusgeo/godal"
	"github.com/gocarina/gocsv"
)

// ErrData marks malformed or unusable occurrence input.
var ErrData = errors.New("occurrence data error")

// Record mirrors one row of the raw occurrence CSV. Pointer fields let rows
// with empty cells survive parsing so they can be counted and dropped.
type Record struct {
	Longitude *float64 `csv:"longitude"`
	Latitude  *float64 `csv:"latitude"`
}

// Point is a species location in geographic coordinates (WGS84).
type Point struct {
	Longitude float64
	Latitude  float64
}

// Load reads presence records from path, drops rows with missing
// coordinates and reprojects the rest from the given projected EPSG code
// to WGS84.
func Load(path string, epsg int) ([]Point, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrData, path, err)
	}
	defer file.Close()

	var records []Record
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrData, path, err)
	}

	xs, ys, dropped := collectCoordinates(records)
	if dropped > 0 {
		fmt.Printf("Dropped %d occurrence rows with missing coordinates\n", dropped)
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("%w: no usable rows in %s", ErrData, path)
	}

	if err := Transform(xs, ys, epsg, 4326); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrData, err)
	}

	points := make([]Point, len(xs))
	for i := range xs {
		points[i] = Point{Longitude: xs[i], Latitude: ys[i]}
	}
	return points, nil
}

func collectCoordinates(records []Record) (xs, ys []float64, dropped int) {
	for _, record := range records {
		if record.Longitude == nil || record.Latitude == nil {
			dropped++
			continue
		}
		xs = append(xs, *record.Longitude)
		ys = append(ys, *record.Latitude)
	}
	return xs, ys, dropped
}

// Transform reprojects coordinate slices in place between two EPSG codes.
// After transforming to a geographic CRS, xs holds longitudes and ys holds
// latitudes.
func Transform(xs, ys []float64, fromEPSG, toEPSG int) error {
	src, err := godal.NewSpatialRefFromEPSG(fromEPSG)
	if err != nil {
		return fmt.Errorf("failed to create spatial ref for EPSG:%d: %v", fromEPSG, err)
	}
	defer src.Close()

	dst, err := godal.NewSpatialRefFromEPSG(toEPSG)
	if err != nil {
		return fmt.Errorf("failed to create spatial ref for EPSG:%d: %v", toEPSG, err)
	}
	defer dst.Close()

	transform, err := godal.NewTransform(src, dst)
	if err != nil {
		return fmt.Errorf("failed to create transform EPSG:%d -> EPSG:%d: %v", fromEPSG, toEPSG, err)
	}
	defer transform.Close()

	if err := transform.TransformEx(xs, ys, nil, nil); err != nil {
		return fmt.Errorf("failed to reproject %d points: %v", len(xs), err)
	}
	return nil
}
