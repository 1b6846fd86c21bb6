// Package logging provides logging utilities including sensitive data filtering.
// Build pipelines pass credentials to subprocesses through environment
// overrides; this package contains hooks and utilities for zerolog that help
// ensure those values are never written to log files.
package logging

import (
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// RedactedValue is the replacement string for sensitive data.
const RedactedValue = "[REDACTED]"

// sensitivePatterns contains compiled regular expressions for detecting sensitive values.
// These patterns match common credential formats that show up in build
// environments (signing keys, registry tokens, CI secrets).
var sensitivePatterns = []*regexp.Regexp{ //nolint:gochecknoglobals // Package-level patterns for reuse
	// GitHub tokens (ghp_, gho_, ghu_, ghs_, ghr_)
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{20,}`),

	// Generic API keys (any string with api_key, apikey, api-key followed by value)
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*["']?([a-zA-Z0-9_-]{16,})["']?`),

	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_-]{20,}`),

	// Generic secret patterns (secret, password, credential, token with values)
	regexp.MustCompile(`(?i)(secret|password|credential|passwd|pwd)\s*[:=]\s*["']?[^\s"']{8,}["']?`),

	// SSH/codesigning private keys (starts with -----)
	regexp.MustCompile(`(?i)-----BEGIN[A-Z\s]+PRIVATE KEY-----`),

	// Base64-encoded secrets that look like tokens (long alphanumeric strings)
	regexp.MustCompile(`(?i)(token|auth)\s*[:=]\s*["']?[a-zA-Z0-9+/=]{32,}["']?`),
}

// sensitiveFieldNames contains environment variable and field names whose
// values should always be redacted. Case-insensitive matching is performed.
var sensitiveFieldNames = []string{ //nolint:gochecknoglobals // Package-level patterns for reuse
	"api_key",
	"apikey",
	"api-key",
	"auth_token",
	"authtoken",
	"password",
	"passwd",
	"secret",
	"credential",
	"credentials",
	"private_key",
	"privatekey",
	"access_token",
	"signing_key",
	"keystore_password",
	"codesign_identity",
	"bearer",
	"authorization",
	"github_token",
}

// SensitiveDataHook is a zerolog hook that flags log entries containing
// sensitive data. Zerolog hooks cannot rewrite the message, so the hook
// only marks the entry; actual filtering happens at call sites via
// RedactIfSensitive and on disk via FilteringWriter.
type SensitiveDataHook struct{}

// NewSensitiveDataHook creates a new SensitiveDataHook for filtering sensitive data.
func NewSensitiveDataHook() *SensitiveDataHook {
	return &SensitiveDataHook{}
}

// Run implements the zerolog.Hook interface.
func (h *SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_filtered_data", true)
	}
}

// ContainsSensitiveData checks if a string contains any sensitive data patterns.
func ContainsSensitiveData(s string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// FilterSensitiveValue replaces any matches of sensitive patterns in value
// with [REDACTED]. Use when logging captured subprocess output or
// environment blocks.
func FilterSensitiveValue(value string) string {
	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// IsSensitiveFieldName checks if a field or environment variable name
// indicates sensitive data.
func IsSensitiveFieldName(fieldName string) bool {
	lowerName := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFieldNames {
		if lowerName == sensitive || strings.Contains(lowerName, sensitive) {
			return true
		}
	}
	return false
}

// RedactIfSensitive returns [REDACTED] if the field name indicates sensitive
// data, otherwise returns the value with any embedded patterns filtered.
// The executor uses this when logging task environment overrides.
func RedactIfSensitive(fieldName, value string) string {
	if IsSensitiveFieldName(fieldName) {
		return RedactedValue
	}
	return FilterSensitiveValue(value)
}

// FilteringWriter wraps an io.Writer and filters sensitive data from output.
// This is used to wrap log file writers to ensure sensitive data is never
// written to disk, even if it appears in log messages or field values.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter creates a new FilteringWriter that wraps the given writer.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write implements io.Writer, filtering sensitive data before writing.
func (fw *FilteringWriter) Write(p []byte) (n int, err error) {
	filtered := FilterSensitiveValue(string(p))
	_, err = fw.w.Write([]byte(filtered))
	if err != nil {
		return 0, err
	}
	// Return original length so callers don't think there was a short write
	return len(p), nil
}
