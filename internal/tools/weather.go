package tools

import (
	"context"
	"log/slog"
	"math/rand/v2"
)

// WeatherName is the registered name of the weather tool.
const WeatherName = "weather"

// Fahrenheit bounds for the simulated report.
const (
	minTemperature = 32
	maxTemperature = 90
)

// WeatherInput defines input for the weather tool.
type WeatherInput struct {
	Location string `json:"location" jsonschema:"the location to get the weather for" jsonschema_description:"The location to get the weather for"`
}

// WeatherReport is the weather tool's result.
type WeatherReport struct {
	Location    string `json:"location"`
	Temperature int    `json:"temperature"`
}

// NewWeather creates the weather tool. The report is simulated: a random
// fahrenheit temperature between 32 and 90, inclusive.
func NewWeather(logger *slog.Logger) *Tool {
	if logger == nil {
		logger = slog.Default()
	}

	return MustNew(WeatherName,
		"Get the weather in a location (fahrenheit). "+
			"Returns the location and its current temperature. "+
			"Use this whenever the user asks about weather conditions.",
		func(_ context.Context, in WeatherInput) (WeatherReport, error) {
			report := WeatherReport{
				Location:    in.Location,
				Temperature: rand.IntN(maxTemperature-minTemperature+1) + minTemperature,
			}
			logger.Debug("weather tool called", "location", in.Location, "temperature", report.Temperature)
			return report, nil
		})
}
