package services

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"procura-backend/internal/models"
	"procura-backend/internal/observability"
)

const (
	// maxRepairAttempts caps repair rounds per failing execution. The bound
	// also caps external-call cost: at most 2 generation/repair model calls
	// and 2 store calls per sub-question.
	maxRepairAttempts = 1

	// chatRowLimit caps the raw row payload on the standard chat path. The
	// details endpoint returns the full set.
	chatRowLimit = 100

	// multiRowLimit caps rows per sub-question when a message fans out.
	multiRowLimit = 20

	suggestionCacheTTL = 10 * time.Minute
)

// ValidationError marks a candidate query rejected by the safety validator.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// QueryGenerator is the model collaborator as the pipeline consumes it.
type QueryGenerator interface {
	GenerateQuery(ctx context.Context, question, language string, history []models.ChatMessage) models.GeneratedQuery
	RepairQuery(ctx context.Context, failedSQL, errMsg, question string) models.GeneratedQuery
	RenderRows(ctx context.Context, rows []map[string]any, question, language string, total int) (string, error)
	RenderDetails(ctx context.Context, rows []map[string]any, question, language string) (string, error)
	Suggest(ctx context.Context, partialInput, language string, conversationContext []string) ([]string, error)
}

// RecordStore is the relational store as the pipeline consumes it. A nil
// store means the service runs in degraded, model-only mode.
type RecordStore interface {
	ExecuteQuery(ctx context.Context, sql string) ([]map[string]any, error)
	RecordCount(ctx context.Context) (int, error)
	Stats(ctx context.Context) (models.DashboardStats, error)
}

// ChatService drives the question → query → execute → repair → narrate
// pipeline. All state is request-scoped; the injected collaborators are the
// only shared objects.
type ChatService struct {
	gen   QueryGenerator
	store RecordStore
	cache *redis.Client // optional suggestion cache
}

func NewChatService(gen QueryGenerator, store RecordStore, cache *redis.Client) *ChatService {
	return &ChatService{gen: gen, store: store, cache: cache}
}

// Chat answers one request. Multi-question messages are processed
// sequentially in question order and joined with a visible separator.
func (s *ChatService) Chat(ctx context.Context, req models.ChatRequest) models.ChatResponse {
	language := req.Language
	if language == "" {
		language = "en"
	}

	questions, notice := Split(req.Message)
	if len(questions) > 1 {
		return s.chatMulti(ctx, questions, notice, language, req.History)
	}

	return s.chatSingle(ctx, req.Message, language, req.History)
}

func (s *ChatService) chatSingle(ctx context.Context, question, language string, history []models.ChatMessage) models.ChatResponse {
	result := s.gen.GenerateQuery(ctx, question, language, history)

	if result.SQL == nil || !IsSafeQuery(*result.SQL) {
		return models.ChatResponse{Response: result.Explanation}
	}

	rows, finalSQL, _, execErr := s.executeWithRepair(ctx, *result.SQL, question)
	if execErr != nil {
		// Both the original and the repaired execution failed; the backend
		// message never reaches the client.
		sql := *result.SQL
		return models.ChatResponse{
			Response: executionFallback(execErr.Error()),
			SQL:      &sql,
		}
	}

	text := s.renderAnswer(ctx, rows, question, language)

	data := rows
	if len(data) > chatRowLimit {
		data = data[:chatRowLimit]
	}

	return models.ChatResponse{
		Response: text,
		SQL:      &finalSQL,
		Data:     data,
	}
}

func (s *ChatService) chatMulti(ctx context.Context, questions []string, notice, language string, history []models.ChatMessage) models.ChatResponse {
	var answers []string

	for _, question := range questions {
		result := s.gen.GenerateQuery(ctx, question, language, history)

		if result.SQL == nil || !IsSafeQuery(*result.SQL) {
			answers = append(answers, result.Explanation)
			continue
		}

		rows, _, _, execErr := s.executeWithRepair(ctx, *result.SQL, question)
		if execErr != nil {
			answers = append(answers, executionFallback(execErr.Error()))
			continue
		}

		if len(rows) > multiRowLimit {
			rows = rows[:multiRowLimit]
		}
		answers = append(answers, s.renderAnswer(ctx, rows, question, language))
	}

	if notice != "" {
		answers = append(answers, notice)
	}

	// Sub-answers carry no sql/data; the combined text is the answer.
	return models.ChatResponse{Response: strings.Join(answers, "\n\n---\n\n")}
}

// executeWithRepair runs a validated query against the store, performing at
// most one repair round on failure. It returns the rows and the query that
// produced them, or the repair explanation plus the original execution
// error when every attempt failed. A nil store yields an empty result.
func (s *ChatService) executeWithRepair(ctx context.Context, sql, question string) (rows []map[string]any, finalSQL, repairNote string, err error) {
	if s.store == nil {
		return nil, sql, "", nil
	}

	rows, execErr := s.store.ExecuteQuery(ctx, sql)
	if execErr == nil {
		return rows, sql, "", nil
	}

	for attempt := 1; attempt <= maxRepairAttempts; attempt++ {
		observability.ObserveRepairAttempt()

		fixed := s.gen.RepairQuery(ctx, sql, execErr.Error(), question)
		if fixed.SQL == nil || !IsSafeQuery(*fixed.SQL) {
			return nil, sql, fixed.Explanation, execErr
		}

		retryRows, retryErr := s.store.ExecuteQuery(ctx, *fixed.SQL)
		if retryErr == nil {
			return retryRows, *fixed.SQL, "", nil
		}

		// The repaired query failed too; keep the original error for the
		// client-facing fallback.
		repairNote = fixed.Explanation
	}

	return nil, sql, repairNote, execErr
}

// renderAnswer narrates a result set. Empty results resolve to canned,
// language-aware explanations without a model call.
func (s *ChatService) renderAnswer(ctx context.Context, rows []map[string]any, question, language string) string {
	if len(rows) == 0 {
		return emptyResultResponse(question, language)
	}

	display := rows
	if len(display) > chatRowLimit {
		display = display[:chatRowLimit]
	}

	text, err := s.gen.RenderRows(ctx, display, question, language, len(rows))
	if err != nil || strings.TrimSpace(text) == "" {
		return fmt.Sprintf("Found %d records. Error generating summary.", len(rows))
	}
	return text
}

// DirectQuery bypasses generation but never validation.
func (s *ChatService) DirectQuery(ctx context.Context, sql string) ([]map[string]any, error) {
	if !IsSafeQuery(sql) {
		return nil, &ValidationError{Message: "Invalid or unsafe SQL query. Only SELECT queries are allowed."}
	}
	if s.store == nil {
		return []map[string]any{}, nil
	}
	return s.store.ExecuteQuery(ctx, sql)
}

// Details returns the uncapped narrated table view for a prior query.
func (s *ChatService) Details(ctx context.Context, req models.DetailRequest) (models.DetailResponse, error) {
	if !IsSafeQuery(req.SQL) {
		return models.DetailResponse{}, &ValidationError{Message: "Invalid SQL query"}
	}

	language := req.Language
	if language == "" {
		language = "en"
	}

	var rows []map[string]any
	if s.store != nil {
		var err error
		rows, err = s.store.ExecuteQuery(ctx, req.SQL)
		if err != nil {
			return models.DetailResponse{}, err
		}
	}

	text, err := s.gen.RenderDetails(ctx, rows, req.Question, language)
	if err != nil || strings.TrimSpace(text) == "" {
		text = fmt.Sprintf("Found %d records. Error generating summary.", len(rows))
	}

	if rows == nil {
		rows = []map[string]any{}
	}
	return models.DetailResponse{
		Response:     text,
		TotalRecords: len(rows),
		Data:         rows,
	}, nil
}

// Suggestions completes a partially typed question. Best effort only: every
// failure path degrades to an empty list.
func (s *ChatService) Suggestions(ctx context.Context, req models.SuggestionRequest) []string {
	partial := strings.TrimSpace(req.PartialInput)
	if len(partial) < 3 {
		return []string{}
	}

	language := req.Language
	if language == "" {
		language = "en"
	}

	cacheKey := suggestionCacheKey(partial, language, req.ConversationContext)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var suggestions []string
			if json.Unmarshal([]byte(cached), &suggestions) == nil {
				return suggestions
			}
		}
	}

	suggestions, err := s.gen.Suggest(ctx, partial, language, req.ConversationContext)
	if err != nil || suggestions == nil {
		return []string{}
	}

	if s.cache != nil {
		if data, err := json.Marshal(suggestions); err == nil {
			s.cache.Set(ctx, cacheKey, data, suggestionCacheTTL)
		}
	}

	return suggestions
}

func suggestionCacheKey(partial, language string, conversationContext []string) string {
	h := sha256.Sum256([]byte(partial + "|" + strings.Join(conversationContext, "|")))
	return fmt.Sprintf("suggest:%s:%x", language, h[:8])
}

// Health reports store reachability and dataset size.
func (s *ChatService) Health(ctx context.Context) models.HealthStatus {
	status := models.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if s.store == nil {
		status.Status = "degraded"
		return status
	}

	count, err := s.store.RecordCount(ctx)
	if err != nil {
		status.Status = "degraded"
		return status
	}
	status.RecordCount = count
	return status
}

// Stats aggregates dashboard numbers; zero values in degraded mode.
func (s *ChatService) Stats(ctx context.Context) (models.DashboardStats, error) {
	if s.store == nil {
		return models.DashboardStats{}, nil
	}
	return s.store.Stats(ctx)
}
