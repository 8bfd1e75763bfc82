package logs

import (
	"encoding/json"
	"strings"
	"time"

	"docflow/internal/logging"
)

// Entry is one decoded log line.
type Entry struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	EpisodeID string
	Phase     string
	EventType string
	Fields    map[string]any
}

// Filter selects entries. Empty fields match everything.
type Filter struct {
	EpisodeID string
	Component string
	MinLevel  string
}

var levelRank = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if f.EpisodeID != "" && e.EpisodeID != f.EpisodeID {
		return false
	}
	if f.Component != "" && !strings.EqualFold(e.Component, f.Component) {
		return false
	}
	if min, ok := levelRank[strings.ToLower(f.MinLevel)]; ok {
		if rank, known := levelRank[e.Level]; known && rank < min {
			return false
		}
	}
	return true
}

// ParseEntry decodes a JSON log line. Lines that are not JSON objects are
// reported with ok=false.
func ParseEntry(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Entry{}, false
	}
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return Entry{}, false
	}
	e := Entry{
		Level:     popString(fields, "level"),
		Message:   popString(fields, "msg"),
		Component: popString(fields, logging.FieldComponent),
		EpisodeID: popString(fields, logging.FieldEpisodeID),
		Phase:     popString(fields, logging.FieldPhase),
		EventType: popString(fields, logging.FieldEventType),
		Fields:    fields,
	}
	if ts := popString(fields, "ts"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Time = parsed
		}
	}
	return e, true
}

func popString(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	delete(fields, key)
	s, _ := v.(string)
	return s
}
