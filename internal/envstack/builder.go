package envstack

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/region"
)

// Fallback code for land-cover cells outside the boundary, used only when
// the source raster does not declare its own nodata value. Sources that use
// 255 as a real category must carry an explicit nodata value.
const landCoverFallbackNoData = 255

// LandCoverLayerName is the name the categorical layer carries inside the
// stack and in the feature table.
const LandCoverLayerName = "landcover"

// BandNumber maps a bioclimatic variable name like "bio12" to its band
// number inside a WorldClim bio tile.
func BandNumber(variable string) (int, error) {
	name := strings.ToLower(strings.TrimSpace(variable))
	if !strings.HasPrefix(name, "bio") {
		return 0, fmt.Errorf("unsupported climate variable %q", variable)
	}
	number, err := strconv.Atoi(strings.TrimPrefix(name, "bio"))
	if err != nil || number < 1 || number > 19 {
		return 0, fmt.Errorf("unsupported climate variable %q", variable)
	}
	return number, nil
}

// Build harmonizes the selected climate bands and the land-cover raster
// onto one grid, cropped to the study boundary, and loads the result into
// memory. The climate tile defines the target grid and must be in WGS84
// (EPSG:4326, the CRS WorldClim country tiles ship in); the land cover is
// warped to match. Intermediate rasters are written under workDir.
func Build(climatePath string, variables []string, landCoverPath string, boundary *region.Boundary, workDir string) (*Stack, error) {
	if len(variables) == 0 {
		return nil, fmt.Errorf("%w: no climate variables selected", ErrGeometry)
	}
	if err := os.MkdirAll(workDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create work directory %s: %v", workDir, err)
	}

	climate, err := cropClimate(climatePath, variables, boundary, workDir)
	if err != nil {
		return nil, err
	}
	defer climate.Close()

	grid, err := gridOf(climate)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Climate grid: %dx%d cells, %.6f degree resolution\n", grid.Width, grid.Height, grid.Transform[1])

	layers, err := readLayers(climate, variables, Continuous)
	if err != nil {
		return nil, err
	}

	landCover, err := alignLandCover(landCoverPath, boundary, grid, workDir)
	if err != nil {
		return nil, err
	}
	defer landCover.Close()

	landCoverGrid, err := gridOf(landCover)
	if err != nil {
		return nil, err
	}
	if !grid.Matches(landCoverGrid) {
		return nil, fmt.Errorf("%w: land-cover grid %dx%d does not match climate grid %dx%d",
			ErrGeometry, landCoverGrid.Width, landCoverGrid.Height, grid.Width, grid.Height)
	}

	landCoverLayers, err := readLayers(landCover, []string{LandCoverLayerName}, Categorical)
	if err != nil {
		return nil, err
	}

	return NewStack(grid, append(layers, landCoverLayers...))
}

// cropClimate selects the requested bio bands and crops them to the
// boundary's bounding box in one translate pass.
func cropClimate(path string, variables []string, boundary *region.Boundary, workDir string) (*godal.Dataset, error) {
	source, err := openRaster(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open climate raster %s: %v", path, err)
	}
	defer source.Close()

	switches := []string{"-of", "GTiff"}
	for _, variable := range variables {
		band, err := BandNumber(variable)
		if err != nil {
			return nil, err
		}
		if band > source.Structure().NBands {
			return nil, fmt.Errorf("%w: climate raster %s has %d bands but %s needs band %d",
				ErrGeometry, path, source.Structure().NBands, variable, band)
		}
		switches = append(switches, "-b", strconv.Itoa(band))
	}

	bound := boundary.Bound()
	switches = append(switches,
		"-projwin",
		formatCoord(bound.Min.X()), formatCoord(bound.Max.Y()),
		formatCoord(bound.Max.X()), formatCoord(bound.Min.Y()),
	)

	cropped, err := source.Translate(filepath.Join(workDir, "climate_crop.tif"), switches)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to crop climate raster to the boundary: %v", ErrGeometry, err)
	}
	return cropped, nil
}

// alignLandCover reprojects the land-cover raster to the climate CRS,
// masks it with the boundary polygon and snaps it onto the climate grid.
// Every resampling step uses nearest neighbor so category codes survive.
func alignLandCover(path string, boundary *region.Boundary, target Grid, workDir string) (*godal.Dataset, error) {
	source, err := openRaster(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open land-cover raster %s: %v", path, err)
	}
	defer source.Close()

	noData := float64(landCoverFallbackNoData)
	if value, ok := source.Bands()[0].NoData(); ok {
		noData = value
	} else {
		fmt.Printf("Land-cover raster declares no nodata value, masking with %d\n", landCoverFallbackNoData)
	}

	masked, err := source.Warp(filepath.Join(workDir, "landcover_mask.tif"), []string{
		"-of", "GTiff",
		"-t_srs", fmt.Sprintf("EPSG:%d", target.EPSG),
		"-r", "near",
		"-cutline", boundary.Path,
		"-crop_to_cutline",
		"-dstnodata", formatCoord(noData),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to reproject and mask land cover: %v", ErrGeometry, err)
	}
	defer masked.Close()

	xMin := target.Transform[0]
	yMax := target.Transform[3]
	xMax := xMin + float64(target.Width)*target.Transform[1]
	yMin := yMax + float64(target.Height)*target.Transform[5]

	aligned, err := masked.Warp(filepath.Join(workDir, "landcover_grid.tif"), []string{
		"-of", "GTiff",
		"-te", formatCoord(xMin), formatCoord(yMin), formatCoord(xMax), formatCoord(yMax),
		"-ts", strconv.Itoa(target.Width), strconv.Itoa(target.Height),
		"-r", "near",
		"-dstnodata", formatCoord(noData),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to align land cover with the climate grid: %v", ErrGeometry, err)
	}
	return aligned, nil
}

func gridOf(ds *godal.Dataset) (Grid, error) {
	transform, err := ds.GeoTransform()
	if err != nil {
		return Grid{}, fmt.Errorf("%w: raster has no geotransform: %v", ErrGeometry, err)
	}
	if transform[2] != 0 || transform[4] != 0 {
		return Grid{}, fmt.Errorf("%w: rotated rasters are not supported", ErrGeometry)
	}

	sr := ds.SpatialRef()
	defer sr.Close()
	wgs84, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return Grid{}, fmt.Errorf("failed to create spatial ref for EPSG:4326: %v", err)
	}
	defer wgs84.Close()
	if !sr.IsSame(wgs84) {
		return Grid{}, fmt.Errorf("%w: raster is not in EPSG:4326", ErrGeometry)
	}

	structure := ds.Structure()
	return Grid{EPSG: 4326, Transform: transform, Width: structure.SizeX, Height: structure.SizeY}, nil
}

func readLayers(ds *godal.Dataset, names []string, kind Kind) ([]Layer, error) {
	structure := ds.Structure()
	bands := ds.Bands()
	if len(bands) < len(names) {
		return nil, fmt.Errorf("%w: expected %d bands, got %d", ErrGeometry, len(names), len(bands))
	}

	layers := make([]Layer, 0, len(names))
	for i, name := range names {
		band := bands[i]
		values := make([]float64, structure.SizeX*structure.SizeY)
		if err := band.Read(0, 0, values, structure.SizeX, structure.SizeY); err != nil {
			return nil, fmt.Errorf("failed to read band %d (%s): %v", i+1, name, err)
		}
		if noData, ok := band.NoData(); ok {
			for j, value := range values {
				if value == noData {
					values[j] = math.NaN()
				}
			}
		}
		layers = append(layers, Layer{Name: name, Kind: kind, Values: values})
	}
	return layers, nil
}

func openRaster(path string) (*godal.Dataset, error) {
	return godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("%s", msg)
	}))
}

func formatCoord(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
