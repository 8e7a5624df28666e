package sample

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/envstack"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/occurrence"
)

// ErrSampling marks a stack with no cells left to sample background
// points from.
var ErrSampling = errors.New("background sampling error")

// LabeledPoint ties a location to a presence (1) or background (0) label.
type LabeledPoint struct {
	Longitude float64
	Latitude  float64
	Label     int
}

// DrawBackground samples n distinct cells uniformly from the cells where
// every stack layer has a value and returns their centers. The same rng
// state always yields the same sample.
func DrawBackground(stack *envstack.Stack, n int, rng *rand.Rand) ([]occurrence.Point, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: background count must be positive, got %d", ErrSampling, n)
	}
	cells := stack.ValidCells()
	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: the environmental stack has no cells with all layers defined", ErrSampling)
	}
	if n > len(cells) {
		fmt.Printf("Only %d valid cells available for %d background points, using all of them\n", len(cells), n)
		n = len(cells)
	}

	// Partial Fisher-Yates: after i swaps the first i entries are a
	// uniform draw without replacement.
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(cells)-i)
		cells[i], cells[j] = cells[j], cells[i]
	}

	grid := stack.Grid()
	points := make([]occurrence.Point, n)
	for i, cell := range cells[:n] {
		x, y := grid.CellCenter(cell%grid.Width, cell/grid.Width)
		points[i] = occurrence.Point{Longitude: x, Latitude: y}
	}
	return points, nil
}

// Label merges presences and background points into one labeled set,
// presences first. The two sets are kept apart by construction, so no
// deduplication happens here.
func Label(presences, background []occurrence.Point) []LabeledPoint {
	labeled := make([]LabeledPoint, 0, len(presences)+len(background))
	for _, point := range presences {
		labeled = append(labeled, LabeledPoint{Longitude: point.Longitude, Latitude: point.Latitude, Label: 1})
	}
	for _, point := range background {
		labeled = append(labeled, LabeledPoint{Longitude: point.Longitude, Latitude: point.Latitude, Label: 0})
	}
	return labeled
}
