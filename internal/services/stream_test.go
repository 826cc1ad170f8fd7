package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procura-backend/internal/models"
	"procura-backend/internal/repository"
)

func collectEvents(t *testing.T, streamer *Streamer, req models.ChatRequest) []models.StreamEvent {
	t.Helper()
	var events []models.StreamEvent
	streamer.Run(context.Background(), req, func(ev models.StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	return events
}

func progressEvents(events []models.StreamEvent) []models.StreamEvent {
	var out []models.StreamEvent
	for _, ev := range events {
		if ev.Type == models.EventProgress {
			out = append(out, ev)
		}
	}
	return out
}

func TestStreamer_FullStageSequence(t *testing.T) {
	sql := "SELECT * FROM procurement_records"
	gen := &fakeGenerator{
		queryResult: models.GeneratedQuery{SQL: sqlPtr(sql)},
		renderText:  "Two records found.",
	}
	store := &fakeStore{results: map[string][]map[string]any{sql: makeRows(2)}}
	streamer := NewStreamer(NewChatService(gen, store, nil), NoPacing)

	events := collectEvents(t, streamer, models.ChatRequest{Message: "Show me PRs"})

	progress := progressEvents(events)
	require.Len(t, progress, 8, "four stages, active and completed each")

	for i, ev := range progress {
		wantStep := i/2 + 1
		assert.Equal(t, wantStep, ev.Step)
		assert.Equal(t, 4, ev.Total)
		if i%2 == 0 {
			assert.Equal(t, models.StatusActive, ev.Status, "step %d", wantStep)
		} else {
			assert.Equal(t, models.StatusCompleted, ev.Status, "step %d", wantStep)
		}
		assert.NotEmpty(t, ev.Message)
	}
}

func TestStreamer_ContentFragmentsReassemble(t *testing.T) {
	sql := "SELECT * FROM procurement_records"
	gen := &fakeGenerator{
		queryResult: models.GeneratedQuery{SQL: sqlPtr(sql)},
		renderText:  "Found two matching records today.",
	}
	store := &fakeStore{results: map[string][]map[string]any{sql: makeRows(2)}}
	streamer := NewStreamer(NewChatService(gen, store, nil), NoPacing)

	events := collectEvents(t, streamer, models.ChatRequest{Message: "Show me PRs"})

	var fragments strings.Builder
	var complete *models.StreamEvent
	for i := range events {
		switch events[i].Type {
		case models.EventContent:
			assert.False(t, events[i].Done)
			fragments.WriteString(events[i].Content)
		case models.EventComplete:
			complete = &events[i]
		}
	}

	require.NotNil(t, complete)
	assert.True(t, complete.Done)
	assert.Equal(t, "Found two matching records today.", complete.Content)
	assert.Equal(t, complete.Content, fragments.String(), "fragments must concatenate to the full text")
}

func TestStreamer_CompleteIsLastEvent(t *testing.T) {
	gen := &fakeGenerator{
		queryResult: models.GeneratedQuery{Explanation: "Hi! Ask me about procurement."},
	}
	streamer := NewStreamer(NewChatService(gen, nil, nil), NoPacing)

	events := collectEvents(t, streamer, models.ChatRequest{Message: "hello"})

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, models.EventComplete, last.Type)

	// Exactly one terminal event, and no error event alongside it.
	terminals := 0
	for _, ev := range events {
		if ev.Type == models.EventComplete || ev.Type == models.EventError {
			terminals++
			assert.Equal(t, models.EventComplete, ev.Type)
		}
	}
	assert.Equal(t, 1, terminals)
}

func TestStreamer_ConversationalPathRunsAllStages(t *testing.T) {
	gen := &fakeGenerator{
		queryResult: models.GeneratedQuery{Explanation: "I can answer procurement questions."},
	}
	store := &fakeStore{}
	streamer := NewStreamer(NewChatService(gen, store, nil), NoPacing)

	events := collectEvents(t, streamer, models.ChatRequest{Message: "what can you do"})

	progress := progressEvents(events)
	assert.Len(t, progress, 8, "clients rely on seeing every stage")
	assert.Empty(t, store.calls)
}

func TestStreamer_ExecutionFailureStillCompletes(t *testing.T) {
	bad := "SELECT budgt FROM procurement_records"
	gen := &fakeGenerator{
		queryResult:  models.GeneratedQuery{SQL: sqlPtr(bad)},
		repairResult: models.GeneratedQuery{Explanation: "I could not fix the query."},
	}
	store := &fakeStore{errors: map[string]error{
		bad: &repository.ExecutionError{Message: `column "budgt" does not exist`},
	}}
	streamer := NewStreamer(NewChatService(gen, store, nil), NoPacing)

	events := collectEvents(t, streamer, models.ChatRequest{Message: "Show budgets"})

	// A failed execution is still a successful stream: friendly text, no
	// error event.
	last := events[len(events)-1]
	require.Equal(t, models.EventComplete, last.Type)
	assert.Equal(t, "I could not fix the query.", last.Content)

	progress := progressEvents(events)
	assert.Len(t, progress, 8)
}

func TestStreamer_ActivePrecedesCompletedPerStage(t *testing.T) {
	sql := "SELECT * FROM procurement_records"
	gen := &fakeGenerator{
		queryResult: models.GeneratedQuery{SQL: sqlPtr(sql)},
		renderText:  "ok",
	}
	store := &fakeStore{results: map[string][]map[string]any{sql: makeRows(1)}}
	streamer := NewStreamer(NewChatService(gen, store, nil), NoPacing)

	events := collectEvents(t, streamer, models.ChatRequest{Message: "Show me PRs"})

	seenActive := map[int]bool{}
	lastStep := 0
	for _, ev := range progressEvents(events) {
		assert.GreaterOrEqual(t, ev.Step, lastStep, "steps must not go backwards")
		lastStep = ev.Step
		if ev.Status == models.StatusActive {
			seenActive[ev.Step] = true
		} else {
			assert.True(t, seenActive[ev.Step], "completed before active for step %d", ev.Step)
		}
	}
}

func TestStreamer_StopsWhenSinkCloses(t *testing.T) {
	sql := "SELECT * FROM procurement_records"
	gen := &fakeGenerator{
		queryResult: models.GeneratedQuery{SQL: sqlPtr(sql)},
		renderText:  "ok",
	}
	store := &fakeStore{results: map[string][]map[string]any{sql: makeRows(1)}}
	streamer := NewStreamer(NewChatService(gen, store, nil), NoPacing)

	var events []models.StreamEvent
	streamer.Run(context.Background(), models.ChatRequest{Message: "Show me PRs"}, func(ev models.StreamEvent) error {
		if len(events) == 3 {
			return errors.New("connection closed")
		}
		events = append(events, ev)
		return nil
	})

	assert.Len(t, events, 3, "no events after the sink reports a closed connection")
}
