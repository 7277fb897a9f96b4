package usecase

import (
	"context"
	"testing"

	"search-indexer/domain"
)

func TestSuggest(t *testing.T) {
	engine := newStubEngine()
	engine.suggestions = []string{"Launch plan", "Launch retro"}
	uc := NewSuggestUsecase(engine)

	got := uc.Execute(context.Background(), "lau", "t-1")
	if len(got) != 2 || got[0] != "Launch plan" {
		t.Errorf("Execute() = %v", got)
	}
}

func TestSuggest_EmptyPrefix(t *testing.T) {
	uc := NewSuggestUsecase(newStubEngine())

	for _, prefix := range []string{"", "   "} {
		if got := uc.Execute(context.Background(), prefix, "t-1"); len(got) != 0 {
			t.Errorf("Execute(%q) = %v, want empty", prefix, got)
		}
	}
}

func TestSuggest_DegradesOnEngineFailure(t *testing.T) {
	engine := newStubEngine()
	engine.err = &domain.UpstreamError{Op: "Suggest", Err: "timeout", Retryable: true}
	uc := NewSuggestUsecase(engine)

	got := uc.Execute(context.Background(), "lau", "t-1")
	if got == nil || len(got) != 0 {
		t.Errorf("Execute() = %v, want empty non-nil slice", got)
	}
}
