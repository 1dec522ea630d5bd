package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ClinicFlow2/frontend/internal/clinic"
)

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// titleCase turns "lab_result" into "Lab Result".
func titleCase(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// oneLine collapses whitespace, newlines included.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// describeError renders an error for the status line, preferring the
// backend's own message.
func describeError(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *clinic.APIError
	if errors.As(err, &apiErr) {
		if detail := apiErr.Detail(); detail != "" {
			return fmt.Sprintf("%d: %s", apiErr.StatusCode, detail)
		}
		return fmt.Sprintf("%s %s failed (%d)", apiErr.Method, apiErr.Path, apiErr.StatusCode)
	}
	return err.Error()
}
