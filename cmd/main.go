package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/joho/godotenv"

	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/climate"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/delivery"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/notification"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/output"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/properties"
)

func splitVariables(list string) []string {
	var variables []string
	for _, item := range strings.Split(list, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			variables = append(variables, trimmed)
		}
	}
	return variables
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using the environment as-is")
	}
	godal.RegisterAll()

	occurrences := flag.String("occurrences", properties.DataPath("occurrences.csv"), "species occurrence CSV with longitude,latitude columns")
	occurrenceEPSG := flag.Int("occurrence-epsg", 32631, "EPSG code the occurrence coordinates are projected in")
	boundary := flag.String("boundary", properties.DataPath("boundary.geojson"), "study area boundary GeoJSON")
	landCover := flag.String("landcover", properties.DataPath("landcover.tif"), "categorical land-cover GeoTIFF")
	vars := flag.String("vars", "bio1,bio7,bio12", "comma-separated bioclim variables to model with")
	background := flag.Int("background", 200, "number of background points to draw")
	folds := flag.Int("folds", 5, "number of stratified folds")
	testFold := flag.Int("test-fold", 1, "fold held out for evaluation")
	seed := flag.Int64("seed", 42, "random seed for background sampling and fold assignment")
	out := flag.String("out", properties.DataPath("result"), "output directory")
	quicklook := flag.Bool("png", false, "also render a PNG quicklook of the suitability surface")
	flag.Parse()

	fmt.Println("=== Geotraining SDM ===")
	fmt.Printf("Region: %s\n", properties.Region())
	fmt.Printf("Variables: %s\n", *vars)
	fmt.Println()

	fetcher := climate.NewFetcher(properties.ClimateBaseURL())
	if creds, ok := properties.ClimateAuth(); ok {
		fetcher = fetcher.WithClientCredentials(creds.ClientID, creds.ClientSecret, creds.TokenURL)
		fmt.Println("Using OAuth2 client credentials for climate downloads")
	}

	cfg := delivery.Config{
		OccurrencePath:    *occurrences,
		OccurrenceEPSG:    *occurrenceEPSG,
		BoundaryPath:      *boundary,
		LandCoverPath:     *landCover,
		Region:            properties.Region(),
		Resolution:        properties.ClimateResolution(),
		Variables:         splitVariables(*vars),
		BackgroundSamples: *background,
		Folds:             *folds,
		TestFold:          *testFold,
		Seed:              *seed,
		Climate: &climate.CachingProvider{
			Store:   &climate.LocalStore{Dir: properties.DataPath("climate")},
			Fetcher: fetcher,
		},
		WorkDir:   properties.DataPath("work"),
		OutputDir: *out,
	}

	result, err := delivery.Run(cfg)
	if err != nil {
		fmt.Printf("Model run failed: %v\n", err)
		if notifyErr := notification.SendDiscordErrorNotification(err.Error()); notifyErr != nil {
			fmt.Printf("Failed to send notification: %v\n", notifyErr)
		}
		os.Exit(1)
	}

	fmt.Println()
	fmt.Print(result.Fitted.Summary())
	fmt.Println(result.Evaluation.Report())
	fmt.Printf("Feature table: %s\n", result.FeaturesPath)
	fmt.Printf("Probability raster: %s\n", result.ProbabilityPath)
	fmt.Printf("Suitability raster: %s\n", result.SuitabilityPath)

	if *quicklook {
		pngPath := strings.TrimSuffix(result.SuitabilityPath, ".tif") + ".png"
		if err := output.RenderQuicklook(result.Probability, result.Suitability, pngPath); err != nil {
			fmt.Printf("Failed to render quicklook: %v\n", err)
		}
	}

	message := fmt.Sprintf("Suitability model run finished for region %s.\n%s",
		properties.Region(), result.Evaluation.Report())
	if err := notification.SendDiscordSuccessNotification(message); err != nil {
		fmt.Printf("Failed to send notification: %v\n", err)
	}
}
