// Package workflow implements the orchestration graph that turns one chat
// request into a routed answer: a bounded parallel fan-out of the
// Classifier, FAQ Responder and Document Retriever, a priority decision
// router, and dispatch to whichever terminal agent the router picks.
package workflow

import (
	"fmt"
	"unicode/utf8"

	"github.com/vtc-digital/rag-orchestrator/internal/model"
)

// EventType names one of the five SSE event kinds the streaming endpoint
// emits.
type EventType string

const (
	EventStart      EventType = "start"
	EventChunk      EventType = "chunk"
	EventReferences EventType = "references"
	EventEnd        EventType = "end"
	EventError      EventType = "error"
)

// Event is one line of the chat SSE stream. Fields irrelevant to a given
// Type are left nil so they marshal as JSON null rather than being omitted,
// matching the wire contract every event type shares.
type Event struct {
	Type       EventType          `json:"type"`
	Content    *string            `json:"content"`
	References []model.Reference `json:"references"`
	Status     *model.Status      `json:"status"`
}

func statusPtr(s model.Status) *model.Status { return &s }

func contentPtr(s string) *string { return &s }

// minQuestionRunes and maxQuestionRunes bound a well-formed question; the
// HTTP handler rejects anything outside this range before a workflow run is
// ever started.
const (
	minQuestionRunes = 3
	maxQuestionRunes = 1000
)

// ValidateQuestion reports whether question is long enough to be meaningful
// and short enough to stay within the system's prompt budget. Counting runes
// rather than bytes matters here: Vietnamese diacritics are multi-byte.
func ValidateQuestion(question string) error {
	n := utf8.RuneCountInString(question)
	if n < minQuestionRunes || n > maxQuestionRunes {
		return fmt.Errorf("câu hỏi phải có từ %d đến %d ký tự", minQuestionRunes, maxQuestionRunes)
	}
	return nil
}
