package envstack

import (
	"errors"
	"fmt"
	"math"
)

// ErrGeometry marks CRS, extent or resolution mismatches between
// environmental layers.
var ErrGeometry = errors.New("environmental layer geometry error")

type Kind int

const (
	Continuous Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "continuous"
}

// Layer is one environmental variable sampled on a grid. Values are stored
// row-major; undefined cells hold NaN.
type Layer struct {
	Name   string
	Kind   Kind
	Values []float64
}

// Stack is a set of layers sharing one grid. Extraction and prediction
// treat a cell as usable only when every layer has a value there.
type Stack struct {
	grid   Grid
	layers []Layer
}

func NewStack(grid Grid, layers []Layer) (*Stack, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: a stack needs at least one layer", ErrGeometry)
	}
	seen := make(map[string]bool, len(layers))
	for _, layer := range layers {
		if len(layer.Values) != grid.Cells() {
			return nil, fmt.Errorf("%w: layer %s has %d values for a %dx%d grid",
				ErrGeometry, layer.Name, len(layer.Values), grid.Width, grid.Height)
		}
		if seen[layer.Name] {
			return nil, fmt.Errorf("%w: duplicate layer name %s", ErrGeometry, layer.Name)
		}
		seen[layer.Name] = true
	}
	return &Stack{grid: grid, layers: layers}, nil
}

func (s *Stack) Grid() Grid {
	return s.grid
}

func (s *Stack) Layers() []Layer {
	return s.layers
}

func (s *Stack) Names() []string {
	names := make([]string, len(s.layers))
	for i, layer := range s.layers {
		names[i] = layer.Name
	}
	return names
}

func (s *Stack) Kinds() []Kind {
	kinds := make([]Kind, len(s.layers))
	for i, layer := range s.layers {
		kinds[i] = layer.Kind
	}
	return kinds
}

func (s *Stack) LayerIndex(name string) (int, bool) {
	for i, layer := range s.layers {
		if layer.Name == name {
			return i, true
		}
	}
	return 0, false
}

// CellValues returns the value of every layer at one row-major cell index.
// ok is false when any layer is undefined there.
func (s *Stack) CellValues(cell int) ([]float64, bool) {
	values := make([]float64, len(s.layers))
	for i, layer := range s.layers {
		value := layer.Values[cell]
		if math.IsNaN(value) {
			return nil, false
		}
		values[i] = value
	}
	return values, true
}

// Extract samples every layer at a coordinate. ok is false outside the
// grid or where any layer is undefined.
func (s *Stack) Extract(x, y float64) ([]float64, bool) {
	col, row, ok := s.grid.CellAt(x, y)
	if !ok {
		return nil, false
	}
	return s.CellValues(row*s.grid.Width + col)
}

// ValidCells lists the row-major indices of cells where every layer has a
// defined value.
func (s *Stack) ValidCells() []int {
	var cells []int
	for cell := 0; cell < s.grid.Cells(); cell++ {
		if _, ok := s.CellValues(cell); ok {
			cells = append(cells, cell)
		}
	}
	return cells
}
