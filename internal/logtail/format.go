package logtail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// Format renders one slog JSON record. Anything else is returned as is.
func Format(line string) string {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return line
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return line
	}

	ts := text(record["time"])
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		ts = parsed.In(time.Local).Format(timeLayout)
	}
	level := strings.ToUpper(text(record["level"]))
	if level == "" {
		level = "INFO"
	}

	parts := make([]string, 0, 4)
	if ts != "" {
		parts = append(parts, ts)
	}
	parts = append(parts, level)
	header := strings.Join(parts, " ")
	if msg := strings.TrimSpace(text(record["msg"])); msg != "" {
		header += " – " + msg
	}

	keys := make([]string, 0, len(record))
	for k := range record {
		switch k {
		case "time", "level", "msg":
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return header
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(header)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(attrValue(record[k]))
	}
	return b.String()
}

// FormatLines applies Format to every line.
func FormatLines(lines []string) []string {
	if len(lines) == 0 {
		return nil
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = Format(line)
	}
	return out
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func attrValue(v any) string {
	switch t := v.(type) {
	case string:
		if t == "" || strings.ContainsAny(t, " =\"") {
			return fmt.Sprintf("%q", t)
		}
		return t
	case map[string]any, []any:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return fmt.Sprint(t)
		}
		return strings.TrimSpace(buf.String())
	default:
		return text(t)
	}
}
