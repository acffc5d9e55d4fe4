package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeQuery_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    PIILevel
		input    string
		expected string
	}{
		{"none level", PIILevelNone, "weather for test@example.com", "[REDACTED]"},
		{"full level", PIILevelFull, "weather for test@example.com", "weather for test@example.com"},
		{"hashed without pii", PIILevelHashed, "latest go release notes", "latest go release notes"},
		{"hashed empty", PIILevelHashed, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSanitizer(tt.level, "deploy-1")
			assert.Equal(t, tt.expected, s.SanitizeQuery(tt.input))
		})
	}
}

func TestSanitizeQuery_Hashed_Email(t *testing.T) {
	s := NewSanitizer(PIILevelHashed, "deploy-1")
	result := s.SanitizeQuery("who owns jane.doe@example.com")

	assert.NotContains(t, result, "jane.doe@example.com")
	assert.Contains(t, result, "[EMAIL:")
	assert.Contains(t, result, "who owns")
}

func TestSanitizeQuery_Hashed_Phone(t *testing.T) {
	s := NewSanitizer(PIILevelHashed, "deploy-1")

	tests := []struct {
		name  string
		input string
	}{
		{"dashes", "reverse lookup 555-123-4567"},
		{"dots", "reverse lookup 555.123.4567"},
		{"no separator", "reverse lookup 5551234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.SanitizeQuery(tt.input)
			assert.NotContains(t, result, "4567")
			assert.Contains(t, result, "[PHONE:")
		})
	}
}

func TestSanitizeQuery_Hashed_CreditCardAndIP(t *testing.T) {
	s := NewSanitizer(PIILevelHashed, "deploy-1")

	result := s.SanitizeQuery("is 4532-1234-5678-9010 valid")
	assert.Contains(t, result, "[CC:REDACTED]")
	assert.NotContains(t, result, "4532")

	result = s.SanitizeQuery("geolocate 192.168.1.100")
	assert.Contains(t, result, "[IP:")
	assert.NotContains(t, result, "192.168.1.100")
}

func TestSanitizeQuery_URLUntouched(t *testing.T) {
	s := NewSanitizer(PIILevelHashed, "deploy-1")
	input := "https://go.dev/doc/devel/release"
	assert.Equal(t, input, s.SanitizeQuery(input))
}

func TestRedactSecrets(t *testing.T) {
	s := NewSanitizer(PIILevelFull, "deploy-1")

	tests := []struct {
		name    string
		input   string
		secret  string
		present string
	}{
		{"bearer header", "upstream said: Authorization: Bearer sk-abc123def456", "sk-abc123def456", "Bearer [REDACTED]"},
		{"api key assignment", `request failed api_key=abcdef0123456789`, "abcdef0123456789", "api_key=[REDACTED]"},
		{"json api key", `{"x-api-key": "abcdef0123456789"}`, "abcdef0123456789", "[REDACTED]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.RedactSecrets(tt.input)
			assert.NotContains(t, result, tt.secret)
			assert.Contains(t, result, tt.present)
		})
	}
}

func TestParsePIILevel(t *testing.T) {
	assert.Equal(t, PIILevelNone, ParsePIILevel("none"))
	assert.Equal(t, PIILevelFull, ParsePIILevel(" FULL "))
	assert.Equal(t, PIILevelHashed, ParsePIILevel("hashed"))
	assert.Equal(t, PIILevelHashed, ParsePIILevel("bogus"))
}

func TestHash_Deterministic(t *testing.T) {
	s := NewSanitizer(PIILevelHashed, "deploy-1")

	hash1 := s.hash("test@example.com")
	hash2 := s.hash("test@example.com")

	assert.Equal(t, hash1, hash2, "Same input should produce same hash")
	assert.Len(t, hash1, 8)
}

func TestHash_SaltSpecific(t *testing.T) {
	s1 := NewSanitizer(PIILevelHashed, "deploy-1")
	s2 := NewSanitizer(PIILevelHashed, "deploy-2")

	assert.NotEqual(t, s1.hash("test@example.com"), s2.hash("test@example.com"))
}

func BenchmarkSanitizeQuery(b *testing.B) {
	s := NewSanitizer(PIILevelHashed, "deploy-1")
	input := "contact john@example.com or call 555-123-4567 about the outage"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.SanitizeQuery(input)
	}
}
