package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRead(t *testing.T) {
	// Create a temporary log file
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	// Write 10 lines of content
	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Read() = %v, want nil", got)
	}
}

func TestFormat(t *testing.T) {
	stamp := "2026-10-16T14:32:15.123Z"
	parsed, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	local := parsed.In(time.Local).Format(timeLayout)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty line",
			input:    "",
			expected: "",
		},
		{
			name:     "plain text passes through",
			input:    "not json at all",
			expected: "not json at all",
		},
		{
			name:     "broken json passes through",
			input:    `{"time":`,
			expected: `{"time":`,
		},
		{
			name:     "message only",
			input:    `{"time":"` + stamp + `","level":"INFO","msg":"starting"}`,
			expected: local + " INFO – starting",
		},
		{
			name:     "attributes sorted",
			input:    `{"time":"` + stamp + `","level":"WARN","msg":"provider overloaded","mode":"full","media_id":"42","attempt":1}`,
			expected: local + " WARN – provider overloaded attempt=1 media_id=42 mode=full",
		},
		{
			name:     "quoted values",
			input:    `{"level":"ERROR","msg":"request failed","error":"cannot reach service"}`,
			expected: `ERROR – request failed error="cannot reach service"`,
		},
		{
			name:     "missing level",
			input:    `{"msg":"hello"}`,
			expected: "INFO – hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.input); got != tt.expected {
				t.Errorf("Format() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFormatLines(t *testing.T) {
	if got := FormatLines(nil); got != nil {
		t.Fatalf("FormatLines(nil) = %v, want nil", got)
	}
	input := []string{
		`{"level":"DEBUG","msg":"request","status":200}`,
		"raw line",
	}
	expected := []string{
		"DEBUG – request status=200",
		"raw line",
	}
	got := FormatLines(input)
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("FormatLines() = %q, want %q", got, expected)
	}
}
