package output

import (
	"fmt"
	"math"
	"strings"

	"github.com/fogleman/gg"

	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/predict"
)

// RenderQuicklook draws the probability surface as a gray ramp with
// suitable cells highlighted in green, one pixel per grid cell, for a
// quick visual check of a run. Cells without a prediction are drawn dark
// blue.
func RenderQuicklook(probability, suitability *predict.Surface, path string) error {
	if !strings.HasSuffix(path, ".png") {
		path += ".png"
	}

	grid := probability.Grid
	dc := gg.NewContext(grid.Width, grid.Height)
	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			cell := row*grid.Width + col
			value := probability.Values[cell]
			switch {
			case math.IsNaN(value):
				dc.SetRGB(0.05, 0.05, 0.2)
			case suitability != nil && suitability.Values[cell] == 1:
				dc.SetRGB(0.1, 0.5+0.5*value, 0.1)
			default:
				dc.SetRGB(value, value, value)
			}
			dc.SetPixel(col, row)
		}
	}

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save quicklook image: %v", err)
	}
	fmt.Println("Quicklook image created successfully as", path)
	return nil
}
