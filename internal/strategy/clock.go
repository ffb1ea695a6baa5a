package strategy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yourusername/hoop-signals/internal/models"
)

// ParseClock converts an "M:SS" clock string to seconds remaining.
// Malformed input resolves to 0.
func ParseClock(clock string) int {
	secs, err := parseClockStrict(clock)
	if err != nil {
		return 0
	}
	return secs
}

func parseClockStrict(clock string) (int, error) {
	clock = strings.TrimSpace(clock)
	minStr, secStr, ok := strings.Cut(clock, ":")
	if !ok || minStr == "" || len(secStr) != 2 {
		return 0, fmt.Errorf("%w: %q", models.ErrInvalidClock, clock)
	}
	minutes, err := strconv.Atoi(minStr)
	if err != nil || minutes < 0 {
		return 0, fmt.Errorf("%w: %q", models.ErrInvalidClock, clock)
	}
	seconds, err := strconv.Atoi(secStr)
	if err != nil || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("%w: %q", models.ErrInvalidClock, clock)
	}
	return minutes*60 + seconds, nil
}

// FormatClock renders seconds as "M:SS"
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
