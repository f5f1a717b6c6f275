// Package model defines the value types threaded through a single chat
// request: the question, the classification it receives, the candidates
// retrieved and reranked along the way, and the final answer.
package model

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one caller-supplied message in the chat history.
// Callers own this data; it is passed by value on every request and never
// persisted by the service.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Label is the routing decision produced by the Classifier.
type Label string

const (
	LabelFAQ      Label = "FAQ"
	LabelChatter  Label = "CHATTER"
	LabelReporter Label = "REPORTER"
	LabelOther    Label = "OTHER"
)

// ValidLabel reports whether l is one of the four recognized routing labels.
func ValidLabel(l Label) bool {
	switch l {
	case LabelFAQ, LabelChatter, LabelReporter, LabelOther:
		return true
	}
	return false
}

// Classification is the Classifier's output: a routing label plus the
// standalone ("contextualized") rewrite of the question.
type Classification struct {
	Label                  Label
	ContextualizedQuestion string
	IsFollowup             bool
	ContextSummary         string
	Reasoning              string
}

// SearchCandidate is one hit returned by a vector-store search, before
// reranking.
type SearchCandidate struct {
	ID              string
	PayloadText     string
	SimilarityScore float64

	// FAQ-only fields; empty for document candidates.
	Question string
	Answer   string
}

// VariantBreakdown records the individual cross-encoder scores that fed a
// FAQ candidate's fused score, kept for observability and tests.
type VariantBreakdown struct {
	QuestionScore       float64
	QuestionAnswerScore float64
	AnswerScore         float64
}

// RankedCandidate is a SearchCandidate after cross-encoder scoring.
type RankedCandidate struct {
	SearchCandidate
	RerankScore float64
	Variants    *VariantBreakdown
}

// ReferenceKind classifies where an Answer's supporting reference came from.
type ReferenceKind string

const (
	ReferenceFAQ              ReferenceKind = "FAQ"
	ReferenceDocument         ReferenceKind = "DOCUMENT"
	ReferenceSupport          ReferenceKind = "SUPPORT"
	ReferenceSystem           ReferenceKind = "SYSTEM"
	ReferenceGeneralKnowledge ReferenceKind = "GENERAL_KNOWLEDGE"
)

// Reference is one citation returned to the caller alongside an answer.
type Reference struct {
	DocumentID      string        `json:"document_id"`
	Kind            ReferenceKind `json:"type"`
	Description     string        `json:"description,omitempty"`
	SimilarityScore *float64      `json:"similarity_score,omitempty"`
	RerankScore     *float64      `json:"rerank_score,omitempty"`
}

// Status is the terminal or intermediate outcome of a chat request.
type Status string

const (
	StatusSuccess      Status = "SUCCESS"
	StatusError        Status = "ERROR"
	StatusNotFound     Status = "NOT_FOUND"
	StatusInsufficient Status = "INSUFFICIENT"
	StatusStreaming    Status = "STREAMING"
)

// Answer is the terminal result of a request.
type Answer struct {
	Text       string
	Status     Status
	References []Reference
}

// DedupeReferences removes duplicate document IDs, preserving first-seen order.
func DedupeReferences(refs []Reference) []Reference {
	seen := make(map[string]bool, len(refs))
	out := make([]Reference, 0, len(refs))
	for _, r := range refs {
		if seen[r.DocumentID] {
			continue
		}
		seen[r.DocumentID] = true
		out = append(out, r)
	}
	return out
}

// RequestState is the mutable value threaded through the workflow for a
// single chat request. It is created at request entry, mutated by each
// workflow node, and discarded at exit; it is never shared across requests
// or goroutines except via the fan-out collection point.
type RequestState struct {
	OriginalQuestion string
	CurrentQuestion  string
	History          []ConversationTurn

	IsFollowup     bool
	ContextSummary string

	Classification     Classification
	FAQAnswer          *Answer
	DocumentCandidates []SearchCandidate

	QualifiedDocuments []RankedCandidate

	References []Reference
	Answer     Answer
}
