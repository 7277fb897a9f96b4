// Package utils provides query sanitization for the search boundary.
package utils

import (
	"context"
	"net/url"
	"regexp"
	"strings"
)

// SecurityConfig defines the sanitization policy applied to search queries.
type SecurityConfig struct {
	// MaxQueryLength is the maximum allowed query length in bytes.
	MaxQueryLength int

	// DisallowedPatterns are regex patterns rejected outright.
	DisallowedPatterns []string

	// AllowedSpecialChars are characters exempt from the dangerous-character
	// check.
	AllowedSpecialChars []string

	// StripHTMLTags removes HTML markup from queries.
	StripHTMLTags bool

	// NormalizeWhitespace collapses runs of whitespace to single spaces.
	NormalizeWhitespace bool
}

const DefaultMaxQueryLength = 1000

// DefaultSecurityConfig returns the policy used for end-user search input.
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		MaxQueryLength:      DefaultMaxQueryLength,
		DisallowedPatterns:  []string{},
		AllowedSpecialChars: []string{"-", "_", ".", "!", "?", "&", "+", "@", "#"},
		StripHTMLTags:       true,
		NormalizeWhitespace: true,
	}
}

// QuerySanitizer validates and sanitizes free-text search queries before they
// reach the engine. Validation rejects, sanitization rewrites.
type QuerySanitizer struct {
	config *SecurityConfig
}

// Characters with meaning in filter or markup syntax. Rejected unless the
// config allows them.
var dangerousChars = []string{"<", ">", "'", "\"", ";", "\\", "/", "*"}

var scriptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)data:`),
	regexp.MustCompile(`(?i)on(load|error|click|mouseover)=`),
}

func NewQuerySanitizer(config *SecurityConfig) *QuerySanitizer {
	if config == nil {
		config = DefaultSecurityConfig()
	}
	return &QuerySanitizer{config: config}
}

// SanitizeQuery rewrites a query into a safe form: URL-decodes it, strips
// zero-width characters, HTML markup and script fragments, then normalizes
// whitespace. Returns an error only when a disallowed pattern matches.
func (s *QuerySanitizer) SanitizeQuery(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", nil
	}

	if decoded, err := url.QueryUnescape(query); err == nil {
		query = decoded
	}

	query = removeZeroWidthChars(query)

	if s.config.StripHTMLTags {
		query = stripHTMLTags(query)
	}

	for _, re := range scriptPatterns {
		query = re.ReplaceAllString(query, "")
	}

	for _, pattern := range s.config.DisallowedPatterns {
		if matched, _ := regexp.MatchString(pattern, strings.ToLower(query)); matched {
			return "", &SecurityError{
				Type:    "disallowed_pattern",
				Message: "Query contains disallowed pattern",
				Query:   query,
			}
		}
	}

	if s.config.NormalizeWhitespace {
		query = strings.Join(strings.Fields(query), " ")
	}

	return query, nil
}

// ValidateQuery rejects queries that are too long, contain control characters,
// or contain dangerous characters not on the allow list. Called before
// sanitization so malicious input fails loudly instead of being rewritten.
func (s *QuerySanitizer) ValidateQuery(ctx context.Context, query string) error {
	if len(query) > s.config.MaxQueryLength {
		return &SecurityError{
			Type:    "query_too_long",
			Message: "Query exceeds maximum length",
			Query:   query,
		}
	}

	for _, r := range query {
		if r == 0 || (r < 32 && r != '\t' && r != '\n' && r != '\r') {
			return &SecurityError{
				Type:    "dangerous_character",
				Message: "Query contains null byte or control character",
				Query:   query,
			}
		}
	}

	for _, char := range dangerousChars {
		if !strings.Contains(query, char) {
			continue
		}
		allowed := false
		for _, allowedChar := range s.config.AllowedSpecialChars {
			if char == allowedChar {
				allowed = true
				break
			}
		}
		if !allowed {
			return &SecurityError{
				Type:    "dangerous_character",
				Message: "Query contains potentially dangerous character: " + char,
				Query:   query,
			}
		}
	}

	return nil
}

// stripHTMLTags removes script elements with their content, then any
// remaining tags. Unterminated markup is truncated at the opening bracket.
func stripHTMLTags(input string) string {
	for {
		start := strings.Index(strings.ToLower(input), "<script")
		if start == -1 {
			break
		}
		end := strings.Index(strings.ToLower(input[start:]), "</script>")
		if end == -1 {
			input = input[:start]
			break
		}
		end += start + len("</script>")
		input = input[:start] + input[end:]
	}

	for {
		start := strings.Index(input, "<")
		if start == -1 {
			break
		}
		end := strings.Index(input[start:], ">")
		if end == -1 {
			input = input[:start]
			break
		}
		end += start + 1
		input = input[:start] + input[end:]
	}

	return input
}

func removeZeroWidthChars(input string) string {
	zeroWidth := []rune{
		'\u200B', // zero width space
		'\u200C', // zero width non-joiner
		'\u200D', // zero width joiner
		'\uFEFF', // BOM
		'\u200E', // left-to-right mark
		'\u200F', // right-to-left mark
	}
	for _, char := range zeroWidth {
		input = strings.ReplaceAll(input, string(char), "")
	}
	return input
}

// SecurityError reports a rejected or unrewritable query.
type SecurityError struct {
	Type    string
	Message string
	Query   string
}

func (e *SecurityError) Error() string {
	return e.Message
}
