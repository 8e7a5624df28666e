package predict

import (
	"fmt"
	"math"

	"github.com/schollz/progressbar/v3"

	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/envstack"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/model"
)

// Surface holds one value per grid cell, row-major; NaN marks cells
// without a prediction.
type Surface struct {
	Grid   envstack.Grid
	Values []float64
}

// Probability predicts suitability for every cell where all layers are
// defined. Covariates are matched to stack layers by name, so layer order
// in the stack does not matter.
func Probability(stack *envstack.Stack, fitted *model.Fitted) (*Surface, error) {
	order := make([]int, len(fitted.Design.Covariates))
	for i, covariate := range fitted.Design.Covariates {
		index, ok := stack.LayerIndex(covariate.Name)
		if !ok {
			return nil, fmt.Errorf("covariate %s has no matching stack layer", covariate.Name)
		}
		order[i] = index
	}

	grid := stack.Grid()
	surface := &Surface{Grid: grid, Values: make([]float64, grid.Cells())}
	values := make([]float64, len(order))

	bar := progressbar.Default(int64(grid.Cells()), "Predicting suitability")
	for cell := 0; cell < grid.Cells(); cell++ {
		bar.Add(1)
		cellValues, ok := stack.CellValues(cell)
		if !ok {
			surface.Values[cell] = math.NaN()
			continue
		}
		for i, layer := range order {
			values[i] = cellValues[layer]
		}
		surface.Values[cell] = fitted.Predict(values)
	}
	return surface, nil
}

// Binary converts probabilities into a 0/1 suitability surface. A cell is
// suitable when its probability is at least the threshold.
func (s *Surface) Binary(threshold float64) *Surface {
	out := &Surface{Grid: s.Grid, Values: make([]float64, len(s.Values))}
	for i, value := range s.Values {
		switch {
		case math.IsNaN(value):
			out.Values[i] = math.NaN()
		case value >= threshold:
			out.Values[i] = 1
		default:
			out.Values[i] = 0
		}
	}
	return out
}

// DefinedCells counts the cells carrying a prediction.
func (s *Surface) DefinedCells() int {
	count := 0
	for _, value := range s.Values {
		if !math.IsNaN(value) {
			count++
		}
	}
	return count
}
