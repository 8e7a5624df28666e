package envstack

import "math"

const geoTransformTolerance = 1e-6

// Grid describes the cell geometry shared by every layer in a stack: a
// north-up regular grid in a single CRS.
type Grid struct {
	EPSG      int
	Transform [6]float64 // GDAL geotransform
	Width     int
	Height    int
}

func (g Grid) Cells() int {
	return g.Width * g.Height
}

// CellCenter returns the coordinates of the center of the cell at
// (col, row).
func (g Grid) CellCenter(col, row int) (float64, float64) {
	x := g.Transform[0] + (float64(col)+0.5)*g.Transform[1] + (float64(row)+0.5)*g.Transform[2]
	y := g.Transform[3] + (float64(col)+0.5)*g.Transform[4] + (float64(row)+0.5)*g.Transform[5]
	return x, y
}

// CellAt maps a coordinate to the cell containing it. ok is false outside
// the grid.
func (g Grid) CellAt(x, y float64) (col, row int, ok bool) {
	col = int(math.Floor((x - g.Transform[0]) / g.Transform[1]))
	row = int(math.Floor((y - g.Transform[3]) / g.Transform[5]))
	if col < 0 || col >= g.Width || row < 0 || row >= g.Height {
		return 0, 0, false
	}
	return col, row, true
}

// Matches reports whether two grids share CRS, extent and resolution
// closely enough to treat their layers as cell-aligned.
func (g Grid) Matches(other Grid) bool {
	if g.EPSG != other.EPSG || g.Width != other.Width || g.Height != other.Height {
		return false
	}
	for i := range g.Transform {
		if math.Abs(g.Transform[i]-other.Transform[i]) > geoTransformTolerance {
			return false
		}
	}
	return true
}
