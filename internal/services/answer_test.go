package services

import (
	"strings"
	"testing"
)

func TestEmptyResultResponse_YearOutOfRange(t *testing.T) {
	got := emptyResultResponse("Show me PRs from 2023", "en")
	if !strings.Contains(got, "2024 and 2025") {
		t.Errorf("expected year guidance, got %q", got)
	}

	got = emptyResultResponse("ما هي طلبات عام ٢٠٢٦؟", "ar")
	if !strings.Contains(got, "2024") {
		t.Errorf("expected Arabic year guidance, got %q", got)
	}
}

func TestEmptyResultResponse_ArabicDetectedFromQuestion(t *testing.T) {
	// Arabic script in the question wins even with language "en".
	got := emptyResultResponse("أرني سجلات عام 2023", "en")
	if !containsArabic(got) {
		t.Errorf("expected Arabic response, got %q", got)
	}
}

func TestEmptyResultResponse_BudgetCeiling(t *testing.T) {
	got := emptyResultResponse("Which PRs have budget over 500k?", "en")
	if !strings.Contains(got, "$499K") {
		t.Errorf("expected budget ceiling hint, got %q", got)
	}
}

func TestEmptyResultResponse_EvaluationDuration(t *testing.T) {
	got := emptyResultResponse("Show PRs in evaluation for more than 30 days", "en")
	if !strings.Contains(got, "30 days") {
		t.Errorf("expected evaluation duration hint, got %q", got)
	}
}

func TestEmptyResultResponse_MyDepartmentAsksForName(t *testing.T) {
	got := emptyResultResponse("Show my department PRs", "en")
	if !strings.Contains(got, "specify your department") {
		t.Errorf("expected department prompt, got %q", got)
	}
}

func TestEmptyResultResponse_RatingIsLetterGrade(t *testing.T) {
	got := emptyResultResponse("List suppliers with rating above 4", "en")
	if !strings.Contains(got, "letter grades") {
		t.Errorf("expected rating explanation, got %q", got)
	}
}

func TestEmptyResultResponse_DefaultFallback(t *testing.T) {
	got := emptyResultResponse("Show me purple unicorn procurements", "en")
	if !strings.Contains(got, "No records match") {
		t.Errorf("expected generic fallback, got %q", got)
	}
}

func TestExecutionFallback_HidesBackendMessage(t *testing.T) {
	cases := map[string]string{
		`column "budgt" does not exist`:                 "doesn't exist",
		`syntax error at or near "FORM"`:                "invalid query",
		`cannot cast type text to numeric`:              "type mismatch",
		`aggregate functions require GROUP BY clause`:   "aggregation",
		`connection refused`:                            "error processing your request",
		`invalid input syntax for type double precision`: "type mismatch",
	}

	for errMsg, want := range cases {
		got := executionFallback(errMsg)
		if !strings.Contains(got, want) {
			t.Errorf("executionFallback(%q) = %q, want substring %q", errMsg, got, want)
		}
		if strings.Contains(got, errMsg) {
			t.Errorf("backend error leaked to client: %q", got)
		}
	}
}
