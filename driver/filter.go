package driver

import (
	"fmt"
	"strconv"
	"strings"
)

// escapeFilterValue escapes special characters in engine filter values.
func escapeFilterValue(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}

// eqClause builds a quoted exact-match clause.
func eqClause(field, value string) string {
	return fmt.Sprintf("%s = \"%s\"", field, escapeFilterValue(value))
}

// inClause builds an any-of clause. Empty value sets impose no constraint
// and yield an empty clause.
func inClause(field string, values []string) string {
	if len(values) == 0 {
		return ""
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "\"" + escapeFilterValue(v) + "\""
	}
	return fmt.Sprintf("%s IN [%s]", field, strings.Join(quoted, ", "))
}

// rangeClauses builds inclusive bound clauses for a numeric field. Either
// bound may be nil.
func rangeClauses(field string, from, to *int64) []string {
	var clauses []string
	if from != nil {
		clauses = append(clauses, field+" >= "+strconv.FormatInt(*from, 10))
	}
	if to != nil {
		clauses = append(clauses, field+" <= "+strconv.FormatInt(*to, 10))
	}
	return clauses
}

// andJoin joins non-empty clauses with AND.
func andJoin(clauses []string) string {
	nonEmpty := clauses[:0]
	for _, c := range clauses {
		if c != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}
	return strings.Join(nonEmpty, " AND ")
}

// TenantFilter builds the mandatory tenant scope clause.
func TenantFilter(tenantID string) string {
	return eqClause("tenantId", tenantID)
}
