package predict

import (
	"fmt"
	"math"

	"github.com/airbusgeo/godal"
)

const (
	probabilityNoData = -9999
	suitabilityNoData = 255
)

// WriteProbability saves a probability surface as a single-band Float32
// GeoTIFF with -9999 marking cells without a prediction.
func WriteProbability(surface *Surface, path string) error {
	return writeGeoTIFF(surface, path, godal.Float32, probabilityNoData)
}

// WriteSuitability saves a binary surface as a single-band Byte GeoTIFF
// with 255 marking cells without a prediction.
func WriteSuitability(surface *Surface, path string) error {
	return writeGeoTIFF(surface, path, godal.Byte, suitabilityNoData)
}

func writeGeoTIFF(surface *Surface, path string, dtype godal.DataType, noData float64) error {
	grid := surface.Grid
	ds, err := godal.Create(godal.GTiff, path, 1, dtype, grid.Width, grid.Height)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", path, err)
	}

	if err := ds.SetGeoTransform(grid.Transform); err != nil {
		ds.Close()
		return fmt.Errorf("failed to set geotransform on %s: %v", path, err)
	}
	sr, err := godal.NewSpatialRefFromEPSG(grid.EPSG)
	if err != nil {
		ds.Close()
		return fmt.Errorf("failed to create spatial ref for EPSG:%d: %v", grid.EPSG, err)
	}
	err = ds.SetSpatialRef(sr)
	sr.Close()
	if err != nil {
		ds.Close()
		return fmt.Errorf("failed to set spatial ref on %s: %v", path, err)
	}

	band := ds.Bands()[0]
	if err := band.SetNoData(noData); err != nil {
		ds.Close()
		return fmt.Errorf("failed to set nodata on %s: %v", path, err)
	}

	buffer := make([]float64, len(surface.Values))
	for i, value := range surface.Values {
		if math.IsNaN(value) {
			buffer[i] = noData
		} else {
			buffer[i] = value
		}
	}
	if err := band.Write(0, 0, buffer, grid.Width, grid.Height); err != nil {
		ds.Close()
		return fmt.Errorf("failed to write %s: %v", path, err)
	}

	if err := ds.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %v", path, err)
	}
	return nil
}
