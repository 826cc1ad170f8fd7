package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"procura-backend/internal/models"
)

// The four fixed stages of the streaming protocol, in execution order.
const (
	stageAnalyze  = 1
	stageSearch   = 2
	stageGenerate = 3
	stageFinalize = 4
	totalStages   = 4
)

var stageLabels = map[int]string{
	stageAnalyze:  "Analyzing your question",
	stageSearch:   "Searching for information",
	stageGenerate: "Generating response..",
	stageFinalize: "Finalizing answer..",
}

// EventSink receives stream events in emission order. A non-nil error means
// the receiving connection is gone and the state machine must stop
// advancing.
type EventSink func(ev models.StreamEvent) error

// PacingPolicy spaces out emitted events to pace the client-visible
// presentation. It is purely cosmetic: ordering guarantees hold under any
// policy, including zero delays.
type PacingPolicy struct {
	StageActive    time.Duration
	StageCompleted time.Duration
	PerWord        time.Duration
}

// DefaultPacing mirrors the presentation cadence the web client was tuned
// for.
var DefaultPacing = PacingPolicy{
	StageActive:    200 * time.Millisecond,
	StageCompleted: 50 * time.Millisecond,
	PerWord:        15 * time.Millisecond,
}

// NoPacing disables all presentation delays.
var NoPacing = PacingPolicy{}

// Streamer sequences one chat request through the staged protocol: for each
// stage an active event, the stage's work, then a completed event; after
// Finalize the answer streams as word fragments followed by exactly one
// complete event. A failure produces exactly one error event instead —
// never both.
type Streamer struct {
	chat   *ChatService
	pacing PacingPolicy
}

func NewStreamer(chat *ChatService, pacing PacingPolicy) *Streamer {
	return &Streamer{chat: chat, pacing: pacing}
}

// Run drives a single request to completion, emitting events through sink.
// It returns once the stream has finished, failed, or the sink reported a
// closed connection.
func (st *Streamer) Run(ctx context.Context, req models.ChatRequest, sink EventSink) {
	completed := false
	defer func() {
		if r := recover(); r != nil && !completed {
			sink(models.StreamEvent{
				Type:    models.EventError,
				Content: fmt.Sprintf("internal error: %v", r),
				Done:    true,
			})
		}
	}()

	if err := st.run(ctx, req, sink); err == nil {
		completed = true
	}
}

func (st *Streamer) run(ctx context.Context, req models.ChatRequest, sink EventSink) error {
	language := req.Language
	if language == "" {
		language = "en"
	}

	// Stage 1 — Analyze: resolve the question into a candidate query.
	if err := st.stageActive(ctx, sink, stageAnalyze); err != nil {
		return err
	}
	result := st.chat.gen.GenerateQuery(ctx, req.Message, language, req.History)
	if err := st.stageCompleted(ctx, sink, stageAnalyze); err != nil {
		return err
	}

	var responseText string

	if result.SQL != nil && IsSafeQuery(*result.SQL) {
		// Stage 2 — Search: execute, repairing at most once.
		if err := st.stageActive(ctx, sink, stageSearch); err != nil {
			return err
		}
		rows, _, repairNote, execErr := st.chat.executeWithRepair(ctx, *result.SQL, req.Message)
		if err := st.stageCompleted(ctx, sink, stageSearch); err != nil {
			return err
		}

		// Stage 3 — Generate: narrate rows or pick the fallback text.
		if err := st.stageActive(ctx, sink, stageGenerate); err != nil {
			return err
		}
		if execErr != nil {
			responseText = repairNote
			if responseText == "" {
				responseText = result.Explanation
			}
			if responseText == "" {
				responseText = executionFallback(execErr.Error())
			}
		} else {
			responseText = st.chat.renderAnswer(ctx, rows, req.Message, language)
		}
		if err := st.stageCompleted(ctx, sink, stageGenerate); err != nil {
			return err
		}
	} else {
		// Conversational reply: stages 2 and 3 still run so clients see the
		// full sequence, but there is no external work to do.
		if err := st.stageActive(ctx, sink, stageSearch); err != nil {
			return err
		}
		if err := st.stageCompleted(ctx, sink, stageSearch); err != nil {
			return err
		}
		if err := st.stageActive(ctx, sink, stageGenerate); err != nil {
			return err
		}
		responseText = result.Explanation
		if err := st.stageCompleted(ctx, sink, stageGenerate); err != nil {
			return err
		}
	}

	// Stage 4 — Finalize: no external work.
	if err := st.stageActive(ctx, sink, stageFinalize); err != nil {
		return err
	}
	if err := st.stageCompleted(ctx, sink, stageFinalize); err != nil {
		return err
	}

	// Word-granularity content fragments, then the single terminal event.
	words := strings.Split(responseText, " ")
	for i, word := range words {
		content := word
		if i < len(words)-1 {
			content += " "
		}
		if err := sink(models.StreamEvent{Type: models.EventContent, Content: content}); err != nil {
			return err
		}
		st.pause(ctx, st.pacing.PerWord)
	}

	return sink(models.StreamEvent{
		Type:    models.EventComplete,
		Content: responseText,
		Done:    true,
	})
}

func (st *Streamer) stageActive(ctx context.Context, sink EventSink, step int) error {
	err := sink(models.StreamEvent{
		Type:    models.EventProgress,
		Step:    step,
		Total:   totalStages,
		Status:  models.StatusActive,
		Message: stageLabels[step],
	})
	if err != nil {
		return err
	}
	st.pause(ctx, st.pacing.StageActive)
	return nil
}

func (st *Streamer) stageCompleted(ctx context.Context, sink EventSink, step int) error {
	err := sink(models.StreamEvent{
		Type:    models.EventProgress,
		Step:    step,
		Total:   totalStages,
		Status:  models.StatusCompleted,
		Message: stageLabels[step],
	})
	if err != nil {
		return err
	}
	st.pause(ctx, st.pacing.StageCompleted)
	return nil
}

func (st *Streamer) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
