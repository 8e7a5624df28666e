package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/properties"
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

// SendDiscordSuccessNotification posts a green embed to the configured
// webhook. Without a configured webhook URL the run just stays silent.
func SendDiscordSuccessNotification(message string) error {
	url := properties.DiscordNotificationURL()
	if url == "" {
		return nil
	}
	return postDiscord(url, DiscordMessage{
		Embeds: []DiscordEmbed{
			{
				Title:       "✅ Model Run Finished",
				Description: message,
				Color:       65280, // Green color
			},
		},
	})
}

func SendDiscordErrorNotification(errorMessage string) error {
	url := properties.DiscordNotificationURL()
	if url == "" {
		return nil
	}
	return postDiscord(url, DiscordMessage{
		Embeds: []DiscordEmbed{
			{
				Title:       "🚨 Model Run Failed",
				Description: fmt.Sprintf("An error occurred: %s", errorMessage),
				Color:       16711680, // Red color
			},
		},
	})
}

func postDiscord(url string, message DiscordMessage) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}
	return nil
}
