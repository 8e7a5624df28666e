package predict

import (
	"math"
	"testing"

	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/envstack"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/model"
)

// predictionStack carries its layers in the opposite order of the model's
// covariates to exercise name-based alignment. Cell 2 is missing bio1 and
// cell 3 is missing bio12.
func predictionStack(t *testing.T) *envstack.Stack {
	t.Helper()
	grid := envstack.Grid{EPSG: 4326, Transform: [6]float64{0, 0.5, 0, 1, 0, -0.5}, Width: 2, Height: 2}
	stack, err := envstack.NewStack(grid, []envstack.Layer{
		{Name: "bio12", Kind: envstack.Continuous, Values: []float64{5, 6, 7, math.NaN()}},
		{Name: "bio1", Kind: envstack.Continuous, Values: []float64{1, 2, math.NaN(), 4}},
	})
	if err != nil {
		t.Fatalf("Failed to build stack: %v", err)
	}
	return stack
}

func linearModel() *model.Fitted {
	return &model.Fitted{
		Design: model.Design{Covariates: []model.Covariate{
			{Name: "bio1"},
			{Name: "bio12"},
		}},
		Coefficients: []float64{0.5, 1.0, -0.25},
	}
}

func TestProbabilityAlignsLayersByName(t *testing.T) {
	surface, err := Probability(predictionStack(t), linearModel())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// eta = 0.5 + 1.0*bio1 - 0.25*bio12 regardless of stack layer order.
	expected := []float64{
		model.Logistic(0.5 + 1.0*1 - 0.25*5),
		model.Logistic(0.5 + 1.0*2 - 0.25*6),
	}
	for cell, want := range expected {
		if math.Abs(surface.Values[cell]-want) > 1e-12 {
			t.Errorf("Cell %d: expected %v, got %v", cell, want, surface.Values[cell])
		}
	}
	for _, cell := range []int{2, 3} {
		if !math.IsNaN(surface.Values[cell]) {
			t.Errorf("Cell %d: expected NaN for a cell with a missing layer, got %v", cell, surface.Values[cell])
		}
	}
	if surface.DefinedCells() != 2 {
		t.Errorf("Expected 2 defined cells, got %d", surface.DefinedCells())
	}
}

func TestProbabilityFailsOnMissingLayer(t *testing.T) {
	fitted := &model.Fitted{
		Design:       model.Design{Covariates: []model.Covariate{{Name: "bio7"}}},
		Coefficients: []float64{0, 1},
	}
	if _, err := Probability(predictionStack(t), fitted); err == nil {
		t.Fatal("Expected an error for a covariate without a stack layer, got nil")
	}
}

func TestBinaryAppliesThresholdInclusively(t *testing.T) {
	grid := envstack.Grid{EPSG: 4326, Transform: [6]float64{0, 0.5, 0, 1, 0, -0.5}, Width: 2, Height: 2}
	surface := &Surface{Grid: grid, Values: []float64{0.2, 0.5, 0.8, math.NaN()}}

	binary := surface.Binary(0.5)
	if binary.Values[0] != 0 {
		t.Errorf("Expected 0 below the threshold, got %v", binary.Values[0])
	}
	if binary.Values[1] != 1 {
		t.Errorf("Expected a probability equal to the threshold to be suitable, got %v", binary.Values[1])
	}
	if binary.Values[2] != 1 {
		t.Errorf("Expected 1 above the threshold, got %v", binary.Values[2])
	}
	if !math.IsNaN(binary.Values[3]) {
		t.Errorf("Expected NaN to stay NaN, got %v", binary.Values[3])
	}
	if binary.DefinedCells() != 3 {
		t.Errorf("Expected 3 defined cells, got %d", binary.DefinedCells())
	}
}
