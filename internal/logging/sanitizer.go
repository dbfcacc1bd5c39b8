package logging

import (
	"regexp"
)

// Sanitizer redacts sensitive information from log messages. The snapshot
// tool must stay secret-free end to end, including its own output.
type Sanitizer struct {
	patterns []*regexp.Regexp
	redacted string
}

// NewSanitizer creates a sanitizer with default patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns: defaultPatterns(),
		redacted: "[REDACTED]",
	}
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// Telegram bot token
		`\b\d{8,10}:[A-Za-z0-9_-]{35}\b`,
		// GitHub tokens
		`gh[pousr]_[A-Za-z0-9]{36}`,
		// AWS access key
		`AKIA[0-9A-Z]{16}`,
		// Slack tokens
		`xox[baprs]-[0-9a-zA-Z-]{10,}`,
		// Generic Bearer tokens
		`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`,
		// Generic API keys
		`(?i)api[_-]?key["'\s:=]+[a-zA-Z0-9_-]{20,}`,
		// Generic secrets
		`(?i)secret["'\s:=]+[a-zA-Z0-9_-]{20,}`,
		// Generic passwords
		`(?i)password["'\s:=]+[^\s"']{8,}`,
		// Generic tokens
		`(?i)token["'\s:=]+[a-zA-Z0-9_-]{20,}`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// Sanitize redacts sensitive information from a string.
func (s *Sanitizer) Sanitize(input string) string {
	result := input
	for _, pattern := range s.patterns {
		result = pattern.ReplaceAllString(result, s.redacted)
	}
	return result
}

// AddPattern adds a custom pattern.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, re)
	return nil
}
