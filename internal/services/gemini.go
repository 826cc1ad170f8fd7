package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"procura-backend/internal/models"
	"procura-backend/internal/observability"
)

const geminiModelName = "gemini-3-flash-preview"

// GeminiService wraps the generative model collaborator. Each purpose gets
// its own model handle with a fixed temperature and output cap so one
// request never exceeds its call budget by accident.
type GeminiService struct {
	client       *genai.Client
	queryModel   *genai.GenerativeModel
	repairModel  *genai.GenerativeModel
	renderModel  *genai.GenerativeModel
	detailModel  *genai.GenerativeModel
	suggestModel *genai.GenerativeModel
	rateChan     chan struct{} // Token bucket
}

func NewGeminiService(apiKey string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	newModel := func(temperature float32, maxTokens int32, jsonOutput bool) *genai.GenerativeModel {
		m := client.GenerativeModel(geminiModelName)
		m.SetTemperature(temperature)
		m.SetTopP(0.95)
		m.SetMaxOutputTokens(maxTokens)
		if jsonOutput {
			m.GenerationConfig.ResponseMIMEType = "application/json"
		}
		return m
	}

	// Token bucket for concurrency limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:       client,
		queryModel:   newModel(0.3, 1000, true),
		repairModel:  newModel(0.1, 500, true),
		renderModel:  newModel(0.1, 1500, false),
		detailModel:  newModel(0.1, 3000, false),
		suggestModel: newModel(0.7, 300, true),
		rateChan:     rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

func (s *GeminiService) generate(ctx context.Context, model *genai.GenerativeModel, purpose, prompt string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	observability.ObserveModelCall(purpose)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	return extractText(resp), nil
}

// GenerateQuery turns a user question into a candidate query. It never
// returns an error: transport, timeout and parse failures all degrade to a
// nil-SQL reply carrying a human-readable explanation.
func (s *GeminiService) GenerateQuery(ctx context.Context, question, language string, history []models.ChatMessage) models.GeneratedQuery {
	raw, err := s.generate(ctx, s.queryModel, "query", buildQueryPrompt(question, language, history))
	if err != nil {
		return models.GeneratedQuery{Explanation: fmt.Sprintf("Error processing your request: %v", err)}
	}

	gq, err := parseGeneratedQuery(raw)
	if err != nil {
		return models.GeneratedQuery{Explanation: fmt.Sprintf("Error processing your request: %v", err)}
	}
	return gq
}

// RepairQuery asks for a single corrected query given a failed execution.
// Like GenerateQuery it degrades instead of failing.
func (s *GeminiService) RepairQuery(ctx context.Context, failedSQL, errMsg, question string) models.GeneratedQuery {
	raw, err := s.generate(ctx, s.repairModel, "repair", buildRepairPrompt(failedSQL, errMsg, question))
	if err != nil {
		return models.GeneratedQuery{Explanation: "Could not fix query"}
	}

	gq, err := parseGeneratedQuery(raw)
	if err != nil {
		return models.GeneratedQuery{Explanation: "Could not fix query"}
	}
	return gq
}

// RenderRows narrates a non-empty result set under the fixed formatting
// contract. The rows passed in are already capped by the caller.
func (s *GeminiService) RenderRows(ctx context.Context, rows []map[string]any, question, language string, total int) (string, error) {
	text, err := s.generate(ctx, s.renderModel, "render", buildRenderPrompt(rows, question, language, total))
	if err != nil {
		return "", err
	}
	return text, nil
}

// RenderDetails produces the uncapped table view for the details endpoint.
func (s *GeminiService) RenderDetails(ctx context.Context, rows []map[string]any, question, language string) (string, error) {
	text, err := s.generate(ctx, s.detailModel, "details", buildDetailPrompt(rows, question, language))
	if err != nil {
		return "", err
	}
	return text, nil
}

// Suggest returns up to five completion strings for a partially typed
// question.
func (s *GeminiService) Suggest(ctx context.Context, partialInput, language string, conversationContext []string) ([]string, error) {
	raw, err := s.generate(ctx, s.suggestModel, "suggest", buildSuggestionPrompt(partialInput, language, conversationContext))
	if err != nil {
		return nil, err
	}

	raw = stripCodeFences(raw)

	var obj struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		// Some replies are a bare array
		var list []string
		if json.Unmarshal([]byte(raw), &list) != nil {
			return nil, fmt.Errorf("unparseable suggestion reply")
		}
		obj.Suggestions = list
	}

	var suggestions []string
	for _, sg := range obj.Suggestions {
		sg = strings.TrimSpace(sg)
		if sg != "" {
			suggestions = append(suggestions, sg)
		}
	}
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}
	return suggestions, nil
}

// parseGeneratedQuery enforces the strict two-field reply contract. A reply
// that is not a JSON object with sql/explanation fields is a contract
// violation, not something to guess around.
func parseGeneratedQuery(raw string) (models.GeneratedQuery, error) {
	raw = stripCodeFences(raw)

	var gq models.GeneratedQuery
	if err := json.Unmarshal([]byte(raw), &gq); err != nil {
		// Salvage the outermost JSON object if the model wrapped it in prose
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return models.GeneratedQuery{}, fmt.Errorf("model reply is not valid JSON")
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &gq); err != nil {
			return models.GeneratedQuery{}, fmt.Errorf("model reply is not valid JSON")
		}
	}

	if gq.SQL != nil && strings.TrimSpace(*gq.SQL) == "" {
		gq.SQL = nil
	}
	return gq, nil
}

func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
