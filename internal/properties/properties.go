package properties

import (
	"os"
	"path/filepath"
)

const (
	DefaultRegion            = "BEN"
	DefaultClimateResolution = "30s"
	DefaultClimateBaseURL    = "https://geodata.ucdavis.edu/climate/worldclim/2_1/tiles/iso"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func RootPath() string {
	return getEnv("ROOT_PATH", ".")
}

// DataPath resolves a path under the data directory of the project root.
func DataPath(parts ...string) string {
	return filepath.Join(append([]string{RootPath(), "data"}, parts...)...)
}

func Region() string {
	return getEnv("SDM_REGION", DefaultRegion)
}

func ClimateResolution() string {
	return getEnv("SDM_CLIMATE_RES", DefaultClimateResolution)
}

func ClimateBaseURL() string {
	return getEnv("SDM_CLIMATE_BASE_URL", DefaultClimateBaseURL)
}

// ClimateCredentials holds optional OAuth2 client credentials for climate
// servers that sit behind an authenticated proxy. All three values must be
// set for authentication to be used.
type ClimateCredentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

func ClimateAuth() (ClimateCredentials, bool) {
	creds := ClimateCredentials{
		ClientID:     os.Getenv("SDM_CLIMATE_CLIENT_ID"),
		ClientSecret: os.Getenv("SDM_CLIMATE_CLIENT_SECRET"),
		TokenURL:     os.Getenv("SDM_CLIMATE_TOKEN_URL"),
	}
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.TokenURL == "" {
		return ClimateCredentials{}, false
	}
	return creds, true
}

func DiscordNotificationURL() string {
	return os.Getenv("DISCORD_NOTIFICATION_URL")
}
