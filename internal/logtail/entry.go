package logtail

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

// Entry is one decoded log event.
type Entry struct {
	Time      time.Time
	Level     zerolog.Level
	Component string
	Message   string
	Error     string
	Fields    map[string]string
	Raw       string
}

// Parse decodes a zerolog JSON line. Anything else becomes an entry with no
// level whose message is the line itself.
func Parse(line string) Entry {
	entry := Entry{Level: zerolog.NoLevel, Raw: line}
	var event map[string]any
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		entry.Message = line
		return entry
	}

	if ts, ok := event[zerolog.TimestampFieldName].(string); ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			entry.Time = t
		}
	}
	if lvl, ok := event[zerolog.LevelFieldName].(string); ok {
		if parsed, err := zerolog.ParseLevel(lvl); err == nil {
			entry.Level = parsed
		}
	}
	entry.Message = fieldString(event[zerolog.MessageFieldName])
	entry.Error = fieldString(event[zerolog.ErrorFieldName])
	entry.Component = fieldString(event["component"])

	for key, value := range event {
		switch key {
		case zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName,
			zerolog.ErrorFieldName, "component":
			continue
		}
		if entry.Fields == nil {
			entry.Fields = make(map[string]string)
		}
		entry.Fields[key] = fieldString(value)
	}
	return entry
}

// AtLeast reports whether the entry should be shown for the minimum level.
// Undecoded lines are always shown.
func (e Entry) AtLeast(min zerolog.Level) bool {
	return e.Level == zerolog.NoLevel || e.Level >= min
}

func fieldString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return fmt.Sprintf("%g", value)
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(data)
	}
}

var (
	timeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	componentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#87AFFF"))
	fieldKeyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	levelStyles = map[zerolog.Level]lipgloss.Style{
		zerolog.TraceLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Bold(true),
		zerolog.DebugLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true),
		zerolog.InfoLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")).Bold(true),
		zerolog.WarnLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true),
		zerolog.ErrorLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		zerolog.FatalLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		zerolog.PanicLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
	}
)

// Format renders the entry on one line:
//
//	2025-10-08 21:01:05 INFO [clinic] token refreshed attempt=1 error=...
func Format(e Entry) string {
	if e.Level == zerolog.NoLevel && e.Time.IsZero() {
		return e.Raw
	}

	parts := make([]string, 0, 5)
	if !e.Time.IsZero() {
		parts = append(parts, timeStyle.Render(e.Time.Local().Format("2006-01-02 15:04:05")))
	}
	if e.Level != zerolog.NoLevel {
		label := strings.ToUpper(e.Level.String())
		if style, ok := levelStyles[e.Level]; ok {
			label = style.Render(label)
		}
		parts = append(parts, label)
	}
	if e.Component != "" {
		parts = append(parts, componentStyle.Render("["+e.Component+"]"))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts = append(parts, fieldKeyStyle.Render(key+"=")+e.Fields[key])
	}
	if e.Error != "" {
		parts = append(parts, errorStyle.Render("error="+e.Error))
	}
	return strings.Join(parts, " ")
}

// FormatAll renders entries in order.
func FormatAll(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = Format(e)
	}
	return out
}
