package upload

import (
	"math"
	"strconv"
	"strings"

	"github.com/five82/smashtrack/internal/gateway"
)

// Validate runs the checks the backend would otherwise reject, so bad input
// never leaves the machine.
func Validate(name string, size int64, trim *TrimWindow, limits Limits) error {
	if strings.TrimSpace(name) == "" {
		return gateway.Validation("file name is required")
	}
	if MIMEType(name) == "" {
		return gateway.Validation("unsupported file format, allowed: %s", strings.Join(AllowedExtensions(), ", "))
	}
	if size <= 0 {
		return gateway.Validation("file is empty")
	}
	if limits.MaxBytes > 0 && size > limits.MaxBytes {
		return gateway.Validation("file too large, maximum is %dMB", limits.MaxBytes/(1024*1024))
	}
	if trim != nil {
		return ValidateTrim(*trim, limits)
	}
	return nil
}

// ValidateTrim checks 0 <= start < end and the clip length limit.
func ValidateTrim(w TrimWindow, limits Limits) error {
	if math.IsNaN(w.Start) || math.IsNaN(w.End) || math.IsInf(w.Start, 0) || math.IsInf(w.End, 0) {
		return gateway.Validation("trim window must be finite")
	}
	if w.Start < 0 {
		return gateway.Validation("trim start must not be negative")
	}
	if w.End <= w.Start {
		return gateway.Validation("trim end must be after trim start")
	}
	if limits.MaxClip > 0 && w.Length() > limits.MaxClip {
		return gateway.Validation("trimmed clip must not exceed %g seconds", limits.MaxClip.Seconds())
	}
	return nil
}

// ParseTrim reads "start:end" in seconds. An empty string means no trim.
// Only the syntax is checked here; ValidateTrim applies the limits.
func ParseTrim(s string) (*TrimWindow, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	startStr, endStr, ok := strings.Cut(s, ":")
	if !ok {
		return nil, gateway.Validation("trim must be start:end in seconds")
	}
	start, err := strconv.ParseFloat(strings.TrimSpace(startStr), 64)
	if err != nil {
		return nil, gateway.Validation("invalid trim start %q", startStr)
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(endStr), 64)
	if err != nil {
		return nil, gateway.Validation("invalid trim end %q", endStr)
	}
	return &TrimWindow{Start: start, End: end}, nil
}
