package delivery

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/climate"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/envstack"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/model"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/occurrence"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/predict"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/region"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/sample"
)

// Config collects everything one model run needs. The climate provider is
// injected so several runs can share the same download cache.
type Config struct {
	OccurrencePath string
	OccurrenceEPSG int

	BoundaryPath  string
	LandCoverPath string

	Region     string
	Resolution string
	Variables  []string

	BackgroundSamples int
	Folds             int
	TestFold          int
	Seed              int64

	Climate   climate.Provider
	WorkDir   string
	OutputDir string
}

// Result carries the fitted model, its held-out evaluation and the paths
// of everything the run wrote.
type Result struct {
	Table      *sample.FeatureTable
	Fitted     *model.Fitted
	Evaluation *model.Evaluation

	Probability *predict.Surface
	Suitability *predict.Surface

	FeaturesPath    string
	ProbabilityPath string
	SuitabilityPath string
}

// Run executes the whole pipeline: load occurrences, harmonize the
// environmental layers, draw background samples, train and evaluate the
// model on a held-out fold, and predict suitability across the study area.
func Run(cfg Config) (*Result, error) {
	start := time.Now()
	fmt.Println("Starting distribution model run...")

	if cfg.TestFold < 1 || cfg.TestFold > cfg.Folds {
		return nil, fmt.Errorf("test fold %d is outside 1..%d", cfg.TestFold, cfg.Folds)
	}
	if err := os.MkdirAll(cfg.OutputDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	presences, err := occurrence.Load(cfg.OccurrencePath, cfg.OccurrenceEPSG)
	if err != nil {
		return nil, fmt.Errorf("failed to load occurrences: %w", err)
	}
	fmt.Printf("Loaded %d occurrence points from %s\n", len(presences), cfg.OccurrencePath)

	boundary, err := region.LoadBoundary(cfg.BoundaryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load study area boundary: %w", err)
	}
	if lat, lon, err := boundary.Centroid(); err == nil {
		fmt.Printf("Study area centroid: %.4f, %.4f\n", lat, lon)
	}

	stepStart := time.Now()
	climatePath, err := cfg.Climate.Acquire(climate.Key{
		Region:     cfg.Region,
		Class:      "bio",
		Resolution: cfg.Resolution,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire climate raster: %w", err)
	}
	fmt.Printf("Climate acquisition took %v\n", time.Since(stepStart))

	stepStart = time.Now()
	stack, err := envstack.Build(climatePath, cfg.Variables, cfg.LandCoverPath, boundary, cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to build environmental stack: %w", err)
	}
	fmt.Printf("Environmental stack build took %v\n", time.Since(stepStart))

	rng := rand.New(rand.NewSource(cfg.Seed))

	background, err := sample.DrawBackground(stack, cfg.BackgroundSamples, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to draw background samples: %w", err)
	}
	fmt.Printf("Drew %d background points\n", len(background))

	table, err := sample.Extract(stack, sample.Label(presences, background))
	if err != nil {
		return nil, fmt.Errorf("failed to extract features: %w", err)
	}
	tablePresences, tableBackground := table.CountLabels()
	fmt.Printf("Feature table has %d rows: %d presences, %d background\n",
		len(table.Rows), tablePresences, tableBackground)

	result := &Result{Table: table, FeaturesPath: filepath.Join(cfg.OutputDir, "features.csv")}
	if err := table.WriteCSV(result.FeaturesPath); err != nil {
		return nil, fmt.Errorf("failed to write feature table: %w", err)
	}

	folds, err := model.AssignFolds(table.Labels(), cfg.Folds, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to assign folds: %w", err)
	}
	train, test := model.Split(folds, cfg.TestFold)
	fmt.Printf("Split data: %d training rows, %d test rows (fold %d of %d held out)\n",
		len(train), len(test), cfg.TestFold, cfg.Folds)

	stepStart = time.Now()
	result.Fitted, err = model.Fit(table, train)
	if err != nil {
		return nil, fmt.Errorf("failed to fit model: %w", err)
	}
	fmt.Printf("Model fit took %v\n", time.Since(stepStart))

	result.Evaluation, err = model.Evaluate(result.Fitted, table, test)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate model: %w", err)
	}

	stepStart = time.Now()
	result.Probability, err = predict.Probability(stack, result.Fitted)
	if err != nil {
		return nil, fmt.Errorf("failed to predict suitability: %w", err)
	}
	result.Suitability = result.Probability.Binary(result.Evaluation.Threshold)
	fmt.Printf("Prediction took %v\n", time.Since(stepStart))

	result.ProbabilityPath = filepath.Join(cfg.OutputDir, "probability.tif")
	if err := predict.WriteProbability(result.Probability, result.ProbabilityPath); err != nil {
		return nil, fmt.Errorf("failed to write probability raster: %w", err)
	}
	result.SuitabilityPath = filepath.Join(cfg.OutputDir, "suitability.tif")
	if err := predict.WriteSuitability(result.Suitability, result.SuitabilityPath); err != nil {
		return nil, fmt.Errorf("failed to write suitability raster: %w", err)
	}

	fmt.Printf("Total model run time: %v\n", time.Since(start))
	return result, nil
}
