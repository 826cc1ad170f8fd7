package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procura-backend/internal/models"
	"procura-backend/internal/repository"
)

// fakeGenerator scripts the model collaborator and counts every call so
// tests can assert the per-question call budget.
type fakeGenerator struct {
	queryResult  models.GeneratedQuery
	repairResult models.GeneratedQuery
	renderText   string
	suggestions  []string

	generateCalls int
	repairCalls   int
	renderCalls   int
}

func (f *fakeGenerator) GenerateQuery(ctx context.Context, question, language string, history []models.ChatMessage) models.GeneratedQuery {
	f.generateCalls++
	return f.queryResult
}

func (f *fakeGenerator) RepairQuery(ctx context.Context, failedSQL, errMsg, question string) models.GeneratedQuery {
	f.repairCalls++
	return f.repairResult
}

func (f *fakeGenerator) RenderRows(ctx context.Context, rows []map[string]any, question, language string, total int) (string, error) {
	f.renderCalls++
	return f.renderText, nil
}

func (f *fakeGenerator) RenderDetails(ctx context.Context, rows []map[string]any, question, language string) (string, error) {
	f.renderCalls++
	return f.renderText, nil
}

func (f *fakeGenerator) Suggest(ctx context.Context, partialInput, language string, conversationContext []string) ([]string, error) {
	return f.suggestions, nil
}

// fakeStore scripts query outcomes keyed by SQL text.
type fakeStore struct {
	results map[string][]map[string]any
	errors  map[string]error
	calls   []string
}

func (f *fakeStore) ExecuteQuery(ctx context.Context, sql string) ([]map[string]any, error) {
	f.calls = append(f.calls, sql)
	if err, ok := f.errors[sql]; ok {
		return nil, err
	}
	return f.results[sql], nil
}

func (f *fakeStore) RecordCount(ctx context.Context) (int, error) {
	return 42, nil
}

func (f *fakeStore) Stats(ctx context.Context) (models.DashboardStats, error) {
	return models.DashboardStats{TotalProjects: 42}, nil
}

func sqlPtr(s string) *string { return &s }

func makeRows(n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{"pr_number": fmt.Sprintf("PR-%d", i)}
	}
	return rows
}

func TestChat_HappyPath(t *testing.T) {
	gen := &fakeGenerator{
		queryResult: models.GeneratedQuery{
			SQL:         sqlPtr("SELECT * FROM procurement_records"),
			Explanation: "Fetching records",
		},
		renderText: "Here are your records.",
	}
	store := &fakeStore{results: map[string][]map[string]any{
		"SELECT * FROM procurement_records": makeRows(3),
	}}

	svc := NewChatService(gen, store, nil)
	resp := svc.Chat(context.Background(), models.ChatRequest{Message: "Show me all PRs"})

	assert.Equal(t, "Here are your records.", resp.Response)
	require.NotNil(t, resp.SQL)
	assert.Equal(t, "SELECT * FROM procurement_records", *resp.SQL)
	assert.Len(t, resp.Data, 3)
	assert.Equal(t, 0, gen.repairCalls)
}

func TestChat_ConversationalReplyHasNoSQL(t *testing.T) {
	gen := &fakeGenerator{
		queryResult: models.GeneratedQuery{SQL: nil, Explanation: "Hello! Ask me about procurement data."},
	}
	store := &fakeStore{}

	svc := NewChatService(gen, store, nil)
	resp := svc.Chat(context.Background(), models.ChatRequest{Message: "hello there"})

	assert.Equal(t, "Hello! Ask me about procurement data.", resp.Response)
	assert.Nil(t, resp.SQL)
	assert.Nil(t, resp.Data)
	assert.Empty(t, store.calls)
}

func TestChat_UnsafeGeneratedQueryNeverExecutes(t *testing.T) {
	gen := &fakeGenerator{
		queryResult: models.GeneratedQuery{
			SQL:         sqlPtr("DROP TABLE procurement_records"),
			Explanation: "I can only read data.",
		},
	}
	store := &fakeStore{}

	svc := NewChatService(gen, store, nil)
	resp := svc.Chat(context.Background(), models.ChatRequest{Message: "drop everything"})

	assert.Empty(t, store.calls, "unsafe query must never reach the store")
	assert.Nil(t, resp.SQL)
	assert.Equal(t, "I can only read data.", resp.Response)
}

func TestChat_RepairSucceedsOnSecondAttempt(t *testing.T) {
	bad := "SELECT budgt FROM procurement_records"
	good := "SELECT budget FROM procurement_records"

	gen := &fakeGenerator{
		queryResult:  models.GeneratedQuery{SQL: sqlPtr(bad)},
		repairResult: models.GeneratedQuery{SQL: sqlPtr(good), Explanation: "fixed column name"},
		renderText:   "Budget summary.",
	}
	store := &fakeStore{
		errors:  map[string]error{bad: &repository.ExecutionError{Message: `column "budgt" does not exist`}},
		results: map[string][]map[string]any{good: makeRows(2)},
	}

	svc := NewChatService(gen, store, nil)
	resp := svc.Chat(context.Background(), models.ChatRequest{Message: "Show budgets"})

	assert.Equal(t, 1, gen.repairCalls)
	require.NotNil(t, resp.SQL)
	assert.Equal(t, good, *resp.SQL, "response must carry the repaired query")
	assert.Equal(t, "Budget summary.", resp.Response)
	assert.Equal(t, []string{bad, good}, store.calls)
}

func TestChat_RepairBoundedToOneAttempt(t *testing.T) {
	bad := "SELECT budgt FROM procurement_records"
	stillBad := "SELECT budgets FROM procurement_records"

	gen := &fakeGenerator{
		queryResult:  models.GeneratedQuery{SQL: sqlPtr(bad)},
		repairResult: models.GeneratedQuery{SQL: sqlPtr(stillBad)},
	}
	store := &fakeStore{errors: map[string]error{
		bad:      &repository.ExecutionError{Message: `column "budgt" does not exist`},
		stillBad: &repository.ExecutionError{Message: `column "budgets" does not exist`},
	}}

	svc := NewChatService(gen, store, nil)
	resp := svc.Chat(context.Background(), models.ChatRequest{Message: "Show budgets"})

	assert.Equal(t, 1, gen.repairCalls, "repair must run exactly once")
	assert.Len(t, store.calls, 2, "one original and one repaired execution")
	// Terminal failure reports a friendly fallback and the original query.
	require.NotNil(t, resp.SQL)
	assert.Equal(t, bad, *resp.SQL)
	assert.Contains(t, resp.Response, "column that doesn't exist")
	assert.Nil(t, resp.Data)
}

func TestChat_UnsafeRepairNotExecuted(t *testing.T) {
	bad := "SELECT budgt FROM procurement_records"

	gen := &fakeGenerator{
		queryResult:  models.GeneratedQuery{SQL: sqlPtr(bad)},
		repairResult: models.GeneratedQuery{SQL: sqlPtr("DELETE FROM procurement_records")},
	}
	store := &fakeStore{errors: map[string]error{
		bad: &repository.ExecutionError{Message: "syntax error at or near"},
	}}

	svc := NewChatService(gen, store, nil)
	svc.Chat(context.Background(), models.ChatRequest{Message: "Show budgets"})

	assert.Equal(t, []string{bad}, store.calls, "unsafe repaired query must never execute")
}

func TestChat_RowCapAt100(t *testing.T) {
	sql := "SELECT * FROM procurement_records"
	gen := &fakeGenerator{
		queryResult: models.GeneratedQuery{SQL: sqlPtr(sql)},
		renderText:  "Many rows.",
	}
	store := &fakeStore{results: map[string][]map[string]any{sql: makeRows(150)}}

	svc := NewChatService(gen, store, nil)
	resp := svc.Chat(context.Background(), models.ChatRequest{Message: "Show me everything"})

	assert.Len(t, resp.Data, 100)
}

func TestChat_EmptyResultSkipsModelNarration(t *testing.T) {
	sql := "SELECT * FROM procurement_records WHERE year = 2026"
	gen := &fakeGenerator{
		queryResult: models.GeneratedQuery{SQL: sqlPtr(sql)},
	}
	store := &fakeStore{results: map[string][]map[string]any{sql: {}}}

	svc := NewChatService(gen, store, nil)
	resp := svc.Chat(context.Background(), models.ChatRequest{Message: "Show me PRs from 2026"})

	assert.Equal(t, 0, gen.renderCalls, "empty results must not call the model")
	assert.Contains(t, resp.Response, "2024 and 2025")
}

func TestChat_MultiQuestionJoinsAnswers(t *testing.T) {
	sql := "SELECT * FROM procurement_records"
	gen := &fakeGenerator{
		queryResult: models.GeneratedQuery{SQL: sqlPtr(sql)},
		renderText:  "Answer.",
	}
	store := &fakeStore{results: map[string][]map[string]any{sql: makeRows(30)}}

	svc := NewChatService(gen, store, nil)
	resp := svc.Chat(context.Background(), models.ChatRequest{
		Message: "How many PRs are delayed?\nWhat is the total budget?",
	})

	assert.Equal(t, 2, gen.generateCalls)
	assert.Equal(t, 2, strings.Count(resp.Response, "Answer."))
	assert.Contains(t, resp.Response, "\n\n---\n\n")
	// Combined answers carry no query or raw rows.
	assert.Nil(t, resp.SQL)
	assert.Nil(t, resp.Data)
}

func TestChat_DegradedModeWithoutStore(t *testing.T) {
	sql := "SELECT * FROM procurement_records"
	gen := &fakeGenerator{
		queryResult: models.GeneratedQuery{SQL: sqlPtr(sql)},
	}

	svc := NewChatService(gen, nil, nil)
	resp := svc.Chat(context.Background(), models.ChatRequest{Message: "Show me PRs from 2026"})

	// No store means no rows; the canned empty-result answer applies.
	assert.Contains(t, resp.Response, "2024 and 2025")
	assert.Equal(t, 0, gen.repairCalls)
}

func TestDirectQuery_RejectsUnsafeSQL(t *testing.T) {
	store := &fakeStore{}
	svc := NewChatService(&fakeGenerator{}, store, nil)

	_, err := svc.DirectQuery(context.Background(), "DROP TABLE procurement_records")

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, store.calls)
}

func TestDirectQuery_PassesRowsThrough(t *testing.T) {
	sql := "SELECT pr_number FROM procurement_records"
	store := &fakeStore{results: map[string][]map[string]any{sql: makeRows(5)}}
	svc := NewChatService(&fakeGenerator{}, store, nil)

	rows, err := svc.DirectQuery(context.Background(), sql)

	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestDetails_ReturnsUncappedRows(t *testing.T) {
	sql := "SELECT * FROM procurement_records"
	gen := &fakeGenerator{renderText: "Full table."}
	store := &fakeStore{results: map[string][]map[string]any{sql: makeRows(150)}}

	svc := NewChatService(gen, store, nil)
	resp, err := svc.Details(context.Background(), models.DetailRequest{
		Question: "Show me everything",
		SQL:      sql,
	})

	require.NoError(t, err)
	assert.Equal(t, 150, resp.TotalRecords)
	assert.Len(t, resp.Data, 150, "details view must not cap rows")
	assert.Equal(t, "Full table.", resp.Response)
}

func TestDetails_NoRepairOnFailure(t *testing.T) {
	sql := "SELECT budgt FROM procurement_records"
	gen := &fakeGenerator{repairResult: models.GeneratedQuery{SQL: sqlPtr("SELECT 1")}}
	store := &fakeStore{errors: map[string]error{
		sql: &repository.ExecutionError{Message: `column "budgt" does not exist`},
	}}

	svc := NewChatService(gen, store, nil)
	_, err := svc.Details(context.Background(), models.DetailRequest{Question: "q", SQL: sql})

	require.Error(t, err)
	assert.Equal(t, 0, gen.repairCalls, "details path must not repair")
}

func TestSuggestions_ShortInputReturnsEmpty(t *testing.T) {
	gen := &fakeGenerator{suggestions: []string{"should not appear"}}
	svc := NewChatService(gen, nil, nil)

	got := svc.Suggestions(context.Background(), models.SuggestionRequest{PartialInput: "sh"})

	assert.Empty(t, got)
}

func TestSuggestions_PassThrough(t *testing.T) {
	gen := &fakeGenerator{suggestions: []string{"Show me all delayed PRs", "Show me IT budgets"}}
	svc := NewChatService(gen, nil, nil)

	got := svc.Suggestions(context.Background(), models.SuggestionRequest{PartialInput: "show me"})

	assert.Len(t, got, 2)
}

func TestHealth_DegradedWithoutStore(t *testing.T) {
	svc := NewChatService(&fakeGenerator{}, nil, nil)

	status := svc.Health(context.Background())

	assert.Equal(t, "degraded", status.Status)
	assert.Zero(t, status.RecordCount)
}

func TestHealth_HealthyWithStore(t *testing.T) {
	svc := NewChatService(&fakeGenerator{}, &fakeStore{}, nil)

	status := svc.Health(context.Background())

	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, 42, status.RecordCount)
}
