package logs

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"stockmeta/internal/logging"
)

// Filter narrows log lines to one batch run, queue item or event type.
// Empty fields match every line.
type Filter struct {
	RunID     string
	ItemID    string
	EventType string
}

// IsZero reports whether the filter accepts every line.
func (f Filter) IsZero() bool {
	return f.RunID == "" && f.ItemID == "" && f.EventType == ""
}

// Match reports whether line carries every field the filter names. Both the
// console and JSON log formats are understood.
func (f Filter) Match(line string) bool {
	if f.IsZero() {
		return true
	}
	fields := Fields(line)
	return fieldMatches(fields, logging.FieldRunID, f.RunID) &&
		fieldMatches(fields, logging.FieldItemID, f.ItemID) &&
		fieldMatches(fields, logging.FieldEventType, f.EventType)
}

func fieldMatches(fields map[string]string, key, want string) bool {
	if want == "" {
		return true
	}
	got, ok := fields[key]
	return ok && got == want
}

// Fields extracts the structured attributes of a single log line. Lines that
// carry no attributes yield an empty map.
func Fields(line string) map[string]string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "{") {
		if fields, ok := jsonFields(line); ok {
			return fields
		}
	}
	return consoleFields(line)
}

func jsonFields(line string) (map[string]string, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return nil, false
	}
	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
		case string:
			fields[key] = v
		default:
			fields[key] = fmt.Sprint(v)
		}
	}
	return fields, true
}

// consoleFields reads the trailing key=value pairs of a console line. Values
// may be Go-quoted.
func consoleFields(line string) map[string]string {
	fields := make(map[string]string)
	rest := line
	for {
		eq := strings.IndexByte(rest, '=')
		if eq < 0 {
			return fields
		}
		key := rest[:eq]
		if sp := strings.LastIndexByte(key, ' '); sp >= 0 {
			key = key[sp+1:]
		}
		var value string
		value, rest = consoleValue(rest[eq+1:])
		if key != "" {
			fields[key] = value
		}
	}
}

func consoleValue(s string) (string, string) {
	if strings.HasPrefix(s, `"`) {
		if quoted, err := strconv.QuotedPrefix(s); err == nil {
			if value, err := strconv.Unquote(quoted); err == nil {
				return value, s[len(quoted):]
			}
		}
	}
	if sp := strings.IndexByte(s, ' '); sp >= 0 {
		return s[:sp], s[sp:]
	}
	return s, ""
}
