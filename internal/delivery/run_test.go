package delivery

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/airbusgeo/godal"

	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/climate"
)

func TestMain(m *testing.M) {
	godal.RegisterAll()
	os.Exit(m.Run())
}

const fixtureNoData = -9999

// writeClimateFixture creates the cached tile a run would download: a
// 10x10 two-band raster over lon 0..1, lat 10..11 where band 1 holds the
// source column and band 2 the source row.
func writeClimateFixture(t *testing.T, path string) {
	t.Helper()
	width, height := 10, 10
	ds, err := godal.Create(godal.GTiff, path, 2, godal.Float32, width, height)
	if err != nil {
		t.Fatalf("Failed to create climate fixture: %v", err)
	}
	if err := ds.SetGeoTransform([6]float64{0, 0.1, 0, 11, 0, -0.1}); err != nil {
		t.Fatalf("Failed to set geotransform: %v", err)
	}
	sr, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		t.Fatalf("Failed to create spatial ref: %v", err)
	}
	defer sr.Close()
	if err := ds.SetSpatialRef(sr); err != nil {
		t.Fatalf("Failed to set spatial ref: %v", err)
	}

	for bandIndex, band := range ds.Bands() {
		values := make([]float64, width*height)
		for row := 0; row < height; row++ {
			for col := 0; col < width; col++ {
				if bandIndex == 0 {
					values[row*width+col] = float64(col)
				} else {
					values[row*width+col] = float64(row)
				}
			}
		}
		if err := band.SetNoData(fixtureNoData); err != nil {
			t.Fatalf("Failed to set nodata: %v", err)
		}
		if err := band.Write(0, 0, values, width, height); err != nil {
			t.Fatalf("Failed to write band %d: %v", bandIndex+1, err)
		}
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("Failed to close climate fixture: %v", err)
	}
}

func writeLandCoverFixture(t *testing.T, path string) {
	t.Helper()
	width, height := 24, 26
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Byte, width, height)
	if err != nil {
		t.Fatalf("Failed to create land-cover fixture: %v", err)
	}
	if err := ds.SetGeoTransform([6]float64{-6000, 5125, 0, 1240000, 0, -5000}); err != nil {
		t.Fatalf("Failed to set geotransform: %v", err)
	}
	sr, err := godal.NewSpatialRefFromEPSG(3857)
	if err != nil {
		t.Fatalf("Failed to create spatial ref: %v", err)
	}
	defer sr.Close()
	if err := ds.SetSpatialRef(sr); err != nil {
		t.Fatalf("Failed to set spatial ref: %v", err)
	}

	values := make([]float64, width*height)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			values[row*width+col] = float64((col%3)*10 + 10)
		}
	}
	if err := ds.Bands()[0].Write(0, 0, values, width, height); err != nil {
		t.Fatalf("Failed to write land cover: %v", err)
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("Failed to close land-cover fixture: %v", err)
	}
}

// fixtureConfig stages every input a run needs inside dir. Occurrences
// cluster in the eastern half of the study area so the model has a signal
// to pick up.
func fixtureConfig(t *testing.T, dir string) Config {
	t.Helper()

	climateDir := filepath.Join(dir, "climate")
	if err := os.MkdirAll(climateDir, 0755); err != nil {
		t.Fatalf("Failed to create climate dir: %v", err)
	}
	key := climate.Key{Region: "BEN", Class: "bio", Resolution: "30s"}
	writeClimateFixture(t, filepath.Join(climateDir, key.FileName()))

	landCoverPath := filepath.Join(dir, "landcover.tif")
	writeLandCoverFixture(t, landCoverPath)

	boundaryPath := filepath.Join(dir, "boundary.geojson")
	boundary := `{"type":"Polygon","coordinates":[[[0.25,10.15],[0.95,10.15],[0.95,10.85],[0.25,10.85],[0.25,10.15]]]}`
	if err := os.WriteFile(boundaryPath, []byte(boundary), 0644); err != nil {
		t.Fatalf("Failed to write boundary: %v", err)
	}

	occurrencePath := filepath.Join(dir, "occurrences.csv")
	occurrences := []string{"longitude,latitude"}
	for _, lat := range []string{"10.25", "10.45", "10.65", "10.75"} {
		for _, lon := range []string{"0.65", "0.75", "0.85"} {
			occurrences = append(occurrences, lon+","+lat)
		}
	}
	occurrences = append(occurrences, "0.35,10.35", "0.45,10.55")
	if err := os.WriteFile(occurrencePath, []byte(strings.Join(occurrences, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("Failed to write occurrences: %v", err)
	}

	return Config{
		OccurrencePath:    occurrencePath,
		OccurrenceEPSG:    4326,
		BoundaryPath:      boundaryPath,
		LandCoverPath:     landCoverPath,
		Region:            key.Region,
		Resolution:        key.Resolution,
		Variables:         []string{"bio1", "bio2"},
		BackgroundSamples: 30,
		Folds:             2,
		TestFold:          2,
		Seed:              7,
		Climate:           &climate.LocalStore{Dir: climateDir},
		WorkDir:           filepath.Join(dir, "work"),
		OutputDir:         filepath.Join(dir, "result"),
	}
}

func TestRunProducesModelAndRasters(t *testing.T) {
	cfg := fixtureConfig(t, t.TempDir())

	result, err := Run(cfg)
	if err != nil {
		t.Fatalf("Expected the run to succeed, got %v", err)
	}

	presences, background := result.Table.CountLabels()
	if presences != 14 {
		t.Errorf("Expected 14 presence rows, got %d", presences)
	}
	if background != cfg.BackgroundSamples {
		t.Errorf("Expected %d background rows, got %d", cfg.BackgroundSamples, background)
	}

	evaluation := result.Evaluation
	if evaluation.Threshold < 0 || evaluation.Threshold > 1 {
		t.Errorf("Expected a threshold in [0,1], got %v", evaluation.Threshold)
	}
	if evaluation.AUC < 0 || evaluation.AUC > 1 {
		t.Errorf("Expected an AUC in [0,1], got %v", evaluation.AUC)
	}
	if evaluation.TestPresences == 0 || evaluation.TestBackground == 0 {
		t.Errorf("Expected both classes in the held-out fold, got %d presences and %d background",
			evaluation.TestPresences, evaluation.TestBackground)
	}

	if result.Probability.DefinedCells() == 0 {
		t.Fatal("Expected predictions on some cells")
	}
	if result.Probability.DefinedCells() != result.Suitability.DefinedCells() {
		t.Errorf("Expected probability and suitability to share defined cells, got %d and %d",
			result.Probability.DefinedCells(), result.Suitability.DefinedCells())
	}
	for _, value := range result.Probability.Values {
		if math.IsNaN(value) {
			continue
		}
		if value < 0 || value > 1 {
			t.Fatalf("Expected probabilities in [0,1], got %v", value)
		}
	}
}

func TestRunWritesOutputs(t *testing.T) {
	cfg := fixtureConfig(t, t.TempDir())

	result, err := Run(cfg)
	if err != nil {
		t.Fatalf("Expected the run to succeed, got %v", err)
	}

	features, err := os.ReadFile(result.FeaturesPath)
	if err != nil {
		t.Fatalf("Expected a feature table at %s: %v", result.FeaturesPath, err)
	}
	if !strings.HasPrefix(string(features), "label,bio1,bio2,landcover") {
		t.Errorf("Expected the feature table header, got %q", strings.SplitN(string(features), "\n", 2)[0])
	}

	for _, path := range []string{result.ProbabilityPath, result.SuitabilityPath} {
		ds, err := godal.Open(path)
		if err != nil {
			t.Fatalf("Expected a readable raster at %s: %v", path, err)
		}
		structure := ds.Structure()
		if structure.SizeX != result.Probability.Grid.Width || structure.SizeY != result.Probability.Grid.Height {
			t.Errorf("Expected a %dx%d raster at %s, got %dx%d",
				result.Probability.Grid.Width, result.Probability.Grid.Height, path, structure.SizeX, structure.SizeY)
		}
		if err := ds.Close(); err != nil {
			t.Errorf("Failed to close %s: %v", path, err)
		}
	}
}

func TestRunRejectsTestFoldOutOfRange(t *testing.T) {
	_, err := Run(Config{Folds: 2, TestFold: 3})
	if err == nil {
		t.Fatal("Expected an error for a test fold outside 1..folds")
	}
}
