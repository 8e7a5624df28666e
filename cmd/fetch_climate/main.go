package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/joho/godotenv"

	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/climate"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/properties"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using the environment as-is")
	}

	region := flag.String("region", properties.Region(), "ISO-3 country code of the tiles to fetch")
	resolution := flag.String("res", properties.ClimateResolution(), "tile resolution, e.g. 30s or 2.5m")
	classes := flag.String("classes", "bio,elev", "comma-separated variable classes to fetch")
	workers := flag.Int("workers", 4, "number of concurrent downloads")
	flag.Parse()

	fetcher := climate.NewFetcher(properties.ClimateBaseURL())
	if creds, ok := properties.ClimateAuth(); ok {
		fetcher = fetcher.WithClientCredentials(creds.ClientID, creds.ClientSecret, creds.TokenURL)
		fmt.Println("Using OAuth2 client credentials for climate downloads")
	}
	provider := &climate.CachingProvider{
		Store:   &climate.LocalStore{Dir: properties.DataPath("climate")},
		Fetcher: fetcher,
	}

	var keys []climate.Key
	for _, class := range strings.Split(*classes, ",") {
		class = strings.TrimSpace(class)
		if class == "" {
			continue
		}
		keys = append(keys, climate.Key{Region: *region, Class: class, Resolution: *resolution})
	}
	if len(keys) == 0 {
		fmt.Println("No variable classes requested")
		os.Exit(1)
	}

	fmt.Printf("Fetching %d climate tiles for %s at %s resolution\n", len(keys), *region, *resolution)

	wp := workerpool.New(*workers)
	errChan := make(chan error, 1)
	var stopProcessing sync.Once

	for _, key := range keys {
		k := key // capture range variable
		wp.Submit(func() {
			path, err := provider.Acquire(k)
			if err != nil {
				stopProcessing.Do(func() { errChan <- err })
				return
			}
			fmt.Printf("Tile %s ready at %s\n", k.FileName(), path)
		})
	}

	// Wait for all downloads
	go func() {
		wp.StopWait()
		close(errChan)
	}()

	if err := <-errChan; err != nil {
		fmt.Printf("Climate prefetch failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("All climate tiles ready")
}
