package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	maxFilterValues      = 10
	maxFilterValueLength = 100
)

// Allowed characters in facet filter values: Unicode letters and digits,
// spaces, hyphens, underscores.
var validFilterValueRegex = regexp.MustCompile(`^[\p{L}\p{N}\s\-_]+$`)

// ValidateFilterTags validates facet filter values before they are embedded
// in an engine filter expression.
func ValidateFilterTags(values []string) error {
	if len(values) > maxFilterValues {
		return fmt.Errorf("too many filter values: maximum %d allowed, got %d", maxFilterValues, len(values))
	}

	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("empty or whitespace-only filter value not allowed")
		}
		if len(v) > maxFilterValueLength {
			return fmt.Errorf("filter value too long: maximum %d characters, got %d", maxFilterValueLength, len(v))
		}
		if !validFilterValueRegex.MatchString(v) {
			return fmt.Errorf("invalid characters in filter value: %s", v)
		}
		for _, r := range v {
			if unicode.IsControl(r) {
				return fmt.Errorf("control characters not allowed in filter value: %s", v)
			}
		}
	}

	return nil
}
