package tools

import (
	"context"
	"log/slog"
	"time"
)

// CurrentTimeName is the registered name of the current time tool.
const CurrentTimeName = "currentTime"

// CurrentTimeInput defines input for the currentTime tool (no input needed).
type CurrentTimeInput struct{}

// CurrentTimeResult is the currentTime tool's result.
type CurrentTimeResult struct {
	Formatted string `json:"formatted"`
	Unix      int64  `json:"unix"`
	ISO8601   string `json:"iso8601"`
	Timezone  string `json:"timezone"`
}

// NewCurrentTime creates the currentTime tool.
// Always reports the server's local time zone.
func NewCurrentTime(logger *slog.Logger) *Tool {
	if logger == nil {
		logger = slog.Default()
	}

	return MustNew(CurrentTimeName,
		"Get the current system date and time. "+
			"Returns: formatted time string, Unix timestamp, and ISO 8601 format. "+
			"You MUST call this tool before answering ANY question about current dates, "+
			"times, ages, durations, or 'how long ago' something happened.",
		func(_ context.Context, _ CurrentTimeInput) (CurrentTimeResult, error) {
			logger.Debug("currentTime tool called")
			now := time.Now()
			zone, _ := now.Zone()
			return CurrentTimeResult{
				Formatted: now.Format("Monday, January 2, 2006 at 3:04:05 PM"),
				Unix:      now.Unix(),
				ISO8601:   now.Format(time.RFC3339),
				Timezone:  zone,
			}, nil
		})
}
