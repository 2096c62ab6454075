// Package dateutil converts user-friendly timestamp patterns to Go layouts.
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTimestampFormat indicates an invalid timestamp pattern.
var ErrInvalidTimestampFormat = errors.New("invalid timestamp format")

// MaxTimestampFormatLength limits pattern length to prevent abuse.
const MaxTimestampFormatLength = 50

// DefaultTimestampFormat yields second resolution, e.g. 20240102_030405.
const DefaultTimestampFormat = "YYYYMMDD_HHmmss"

// timestampTokens maps user-friendly tokens to Go time format components.
// Ordered by length descending for greedy matching.
var timestampTokens = []struct {
	token string
	goFmt string
}{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"HH", "15"},
	{"mm", "04"},
	{"ss", "05"},
	{"M", "1"},
	{"D", "2"},
}

// TimestampPresets provides named shortcuts for common patterns.
var TimestampPresets = map[string]string{
	"compact": DefaultTimestampFormat,
	"iso":     "YYYY-MM-DD_HH-mm-ss",
	"date":    "YYYYMMDD",
}

// ParseTimestampFormat converts a user-friendly pattern to Go's time layout.
// Tokens: YYYY, YY, MMMM, MMM, MM, M, DD, D, HH, mm, ss.
// Use brackets to escape literal text: [v] preserves "v" literally.
// Named presets (compact, iso, date) are accepted in place of a pattern.
// The result must be usable inside a file name, so path separators and
// colons are rejected.
func ParseTimestampFormat(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("%w: format cannot be empty", ErrInvalidTimestampFormat)
	}
	if len(format) > MaxTimestampFormatLength {
		return "", fmt.Errorf("%w: format exceeds %d characters", ErrInvalidTimestampFormat, MaxTimestampFormatLength)
	}
	if preset, ok := TimestampPresets[strings.ToLower(format)]; ok {
		format = preset
	}
	if strings.ContainsAny(format, "/\\:\x00") {
		return "", fmt.Errorf("%w: %q contains characters not allowed in file names", ErrInvalidTimestampFormat, format)
	}

	var result strings.Builder
	result.Grow(len(format) + 10)

	i := 0
	for i < len(format) {
		if format[i] == '[' {
			end := strings.Index(format[i+1:], "]")
			if end == -1 {
				return "", fmt.Errorf("%w: unclosed bracket at position %d", ErrInvalidTimestampFormat, i)
			}
			result.WriteString(format[i+1 : i+1+end])
			i += end + 2
			continue
		}

		matched := false
		for _, t := range timestampTokens {
			if strings.HasPrefix(format[i:], t.token) {
				result.WriteString(t.goFmt)
				i += len(t.token)
				matched = true
				break
			}
		}

		if !matched {
			result.WriteByte(format[i])
			i++
		}
	}

	return result.String(), nil
}

// FormatTimestamp renders t with a user-friendly pattern.
func FormatTimestamp(format string, t time.Time) (string, error) {
	layout, err := ParseTimestampFormat(format)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}
