package logger

import (
	"io"
	"regexp"
	"strings"
	"sync"
)

const redacted = "[REDACTED]"

// Redactor redacts credentials from log output
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	secrets  []string
}

// NewRedactor creates a new redactor with default patterns
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			// OpenAI and Anthropic API keys (sk-, sk-proj-, sk-ant-)
			regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),

			// Authorization headers
			regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`),
			regexp.MustCompile(`(?i)x-api-key"?\s*[:=]\s*"?[^\s",}]+`),

			// Key-valued config fields, e.g. api_key=... or "credential":"..."
			regexp.MustCompile(`(?i)api_?key"?\s*[:=]\s*"?[^\s",}]+`),
			regexp.MustCompile(`(?i)credential"?\s*[:=]\s*"?[^\s",}]+`),
		},
	}
}

// AddPattern adds a custom redaction pattern
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.patterns = append(r.patterns, re)
	r.mu.Unlock()
	return nil
}

// AddSecret redacts an exact value, e.g. the configured API key
func (r *Redactor) AddSecret(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	r.secrets = append(r.secrets, secret)
	r.mu.Unlock()
}

// Redact redacts sensitive information from a string
func (r *Redactor) Redact(s string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := s
	for _, secret := range r.secrets {
		result = strings.ReplaceAll(result, secret, redacted)
	}
	for _, pattern := range r.patterns {
		result = pattern.ReplaceAllString(result, redacted)
	}
	return result
}

// Wrap wraps an io.Writer to redact sensitive information
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{
		writer:   w,
		redactor: r,
	}
}

// redactingWriter is an io.Writer that redacts sensitive information
type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success so callers don't treat the shortened
// redacted output as a short write.
func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := w.writer.Write([]byte(w.redactor.Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
