package driver

import "testing"

func TestEscapeFilterValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{`has "quotes"`, `has \"quotes\"`},
		{`back\slash`, `back\\slash`},
		{`\"`, `\\\"`},
	}
	for _, tt := range tests {
		if got := escapeFilterValue(tt.in); got != tt.want {
			t.Errorf("escapeFilterValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEqClause(t *testing.T) {
	if got := eqClause("status", "open"); got != `status = "open"` {
		t.Errorf("eqClause() = %q", got)
	}
	if got := eqClause("title", `say "hi"`); got != `title = "say \"hi\""` {
		t.Errorf("eqClause() = %q", got)
	}
}

func TestInClause(t *testing.T) {
	if got := inClause("status", nil); got != "" {
		t.Errorf("empty value set must impose no constraint, got %q", got)
	}
	if got := inClause("status", []string{"open"}); got != `status IN ["open"]` {
		t.Errorf("inClause() = %q", got)
	}
	if got := inClause("status", []string{"open", "blocked"}); got != `status IN ["open", "blocked"]` {
		t.Errorf("inClause() = %q", got)
	}
}

func TestRangeClauses(t *testing.T) {
	from := int64(100)
	to := int64(200)

	if got := rangeClauses("dueDate", nil, nil); len(got) != 0 {
		t.Errorf("no bounds yields no clauses, got %v", got)
	}
	if got := rangeClauses("dueDate", &from, nil); len(got) != 1 || got[0] != "dueDate >= 100" {
		t.Errorf("rangeClauses() = %v", got)
	}
	if got := rangeClauses("dueDate", nil, &to); len(got) != 1 || got[0] != "dueDate <= 200" {
		t.Errorf("rangeClauses() = %v", got)
	}
	if got := rangeClauses("dueDate", &from, &to); len(got) != 2 {
		t.Errorf("rangeClauses() = %v", got)
	}
}

func TestAndJoin(t *testing.T) {
	if got := andJoin([]string{`a = "1"`, "", `b = "2"`}); got != `a = "1" AND b = "2"` {
		t.Errorf("andJoin() = %q", got)
	}
	if got := andJoin([]string{"", ""}); got != "" {
		t.Errorf("andJoin() = %q", got)
	}
}

func TestTenantFilter(t *testing.T) {
	if got := TenantFilter("t-1"); got != `tenantId = "t-1"` {
		t.Errorf("TenantFilter() = %q", got)
	}
}
