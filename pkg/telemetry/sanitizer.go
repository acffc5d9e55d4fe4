package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// PIILevel defines how much of a search query may reach logs and traces
type PIILevel string

const (
	// PIILevelNone redacts all user content
	PIILevelNone PIILevel = "none"
	// PIILevelHashed hashes PII with a deployment salt
	PIILevelHashed PIILevel = "hashed"
	// PIILevelFull performs no sanitization
	PIILevelFull PIILevel = "full"
)

// ParsePIILevel maps a config value to a level, defaulting to hashed.
func ParsePIILevel(value string) PIILevel {
	switch PIILevel(strings.ToLower(strings.TrimSpace(value))) {
	case PIILevelNone:
		return PIILevelNone
	case PIILevelFull:
		return PIILevelFull
	default:
		return PIILevelHashed
	}
}

// Sanitizer scrubs search queries and upstream error text before they are logged
type Sanitizer struct {
	level PIILevel
	salt  string

	emailPattern      *regexp.Regexp
	phonePattern      *regexp.Regexp
	creditCardPattern *regexp.Regexp
	ipv4Pattern       *regexp.Regexp
	bearerPattern     *regexp.Regexp
	apiKeyPattern     *regexp.Regexp
}

// NewSanitizer creates a new sanitizer; salt keeps hashes stable per deployment
func NewSanitizer(level PIILevel, salt string) *Sanitizer {
	return &Sanitizer{
		level:             level,
		salt:              salt,
		emailPattern:      regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		phonePattern:      regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),
		creditCardPattern: regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`),
		ipv4Pattern:       regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
		bearerPattern:     regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]+`),
		apiKeyPattern:     regexp.MustCompile(`(?i)((?:api[_-]?key|x-api-key)["'\s:=]+)[A-Za-z0-9._-]{8,}`),
	}
}

// Level returns the configured PII level
func (s *Sanitizer) Level() PIILevel {
	return s.level
}

// SanitizeQuery sanitizes a search query based on the configured PII level
func (s *Sanitizer) SanitizeQuery(input string) string {
	switch s.level {
	case PIILevelNone:
		return "[REDACTED]"
	case PIILevelFull:
		return input
	default:
		return s.hashPII(input)
	}
}

// RedactSecrets strips credentials from text such as upstream error bodies.
// It applies regardless of the PII level.
func (s *Sanitizer) RedactSecrets(input string) string {
	result := s.bearerPattern.ReplaceAllString(input, "Bearer [REDACTED]")
	return s.apiKeyPattern.ReplaceAllString(result, "${1}[REDACTED]")
}

// hashPII detects and hashes PII in the input string
func (s *Sanitizer) hashPII(input string) string {
	result := input

	result = s.emailPattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[EMAIL:%s]", s.hash(match))
	})

	result = s.creditCardPattern.ReplaceAllStringFunc(result, func(match string) string {
		return "[CC:REDACTED]"
	})

	result = s.phonePattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[PHONE:%s]", s.hash(match))
	})

	result = s.ipv4Pattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[IP:%s]", s.hash(match))
	})

	return result
}

// hash creates a SHA-256 hash with the deployment salt
func (s *Sanitizer) hash(data string) string {
	h := sha256.New()
	h.Write([]byte(data + s.salt))
	hash := hex.EncodeToString(h.Sum(nil))
	// Return first 8 chars for readability
	return hash[:8]
}
