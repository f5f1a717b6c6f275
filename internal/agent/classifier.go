// Package agent implements the nine task-specific agents that the
// workflow dispatches to: the Classifier, the FAQ Responder, the
// Document Retriever, the Grader, the Generator, and the four scripted
// responders (Not-Enough-Info, Chatter, Reporter, Other).
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/vtc-digital/rag-orchestrator/internal/cache"
	"github.com/vtc-digital/rag-orchestrator/internal/model"
)

const clarifySentinel = "[cần làm rõ]"

// Classifier decides a request's routing label and, for follow-up
// questions, rewrites the question into a standalone form.
type Classifier struct {
	llm   completer
	probe livenessProber
	cache *cache.RewriteCache
}

// NewClassifier builds a Classifier. probe is consulted only for its
// liveness signal — the classifier never searches the store directly.
func NewClassifier(llm completer, probe livenessProber, rewriteCache *cache.RewriteCache) *Classifier {
	return &Classifier{llm: llm, probe: probe, cache: rewriteCache}
}

// Classify assigns a routing label and, when the question is a follow-up,
// a standalone rewrite plus a short context summary. It never returns an
// error: every failure path degrades to a usable Classification value.
func (c *Classifier) Classify(ctx context.Context, question string, history []model.ConversationTurn) model.Classification {
	if !c.probe.IsLive(ctx) {
		slog.Warn("classifier: vector store not live, routing to REPORTER")
		return model.Classification{
			Label:                  model.LabelReporter,
			ContextualizedQuestion: question,
		}
	}

	contextualized := question
	isFollowup := false
	contextSummary := ""

	if isFollowupCandidate(question, history) {
		contextSummary = slidingWindowContext(history)
		rewritten, ok := c.rewrite(ctx, question, contextSummary)
		if ok {
			contextualized = rewritten
			isFollowup = true
		}
	}

	label, summary, reasoning := c.classifyLabel(ctx, question, contextualized, history)
	if contextSummary == "" {
		contextSummary = summary
	}

	return model.Classification{
		Label:                  label,
		ContextualizedQuestion: contextualized,
		IsFollowup:             isFollowup,
		ContextSummary:         contextSummary,
		Reasoning:              reasoning,
	}
}

// rewrite resolves question into a standalone form given contextStr,
// consulting the rewrite cache before calling the LLM.
func (c *Classifier) rewrite(ctx context.Context, question, contextStr string) (string, bool) {
	key := contextStr + "||" + question

	if cached, ok := c.cache.Get(ctx, key); ok {
		return cached, true
	}

	prompt := fmt.Sprintf(
		"Lịch sử hội thoại:\n%s\n\nCâu hỏi hiện tại: %q\n\nViết lại câu hỏi trên thành một câu hỏi độc lập, đầy đủ ý nghĩa mà không cần ngữ cảnh trước đó. Nếu không thể viết lại, trả về đúng chuỗi %q. Chỉ trả về câu hỏi, không giải thích.",
		contextStr, question, clarifySentinel,
	)

	rewritten, err := c.llm.Complete(ctx, "Bạn là trợ lý viết lại câu hỏi hội thoại tiếng Việt.", prompt)
	if err != nil {
		slog.Warn("classifier: rewrite call failed", "error", err)
		return question, false
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" || rewritten == clarifySentinel {
		return question, false
	}

	c.cache.Put(ctx, key, rewritten)
	return rewritten, true
}

type classificationResponse struct {
	Label          string `json:"label"`
	ContextSummary string `json:"context_summary"`
	Reasoning      string `json:"reasoning"`
}

// classifyLabel asks the LLM to pick a routing label, falling back to a
// keyword heuristic when the call fails or the response can't be parsed.
func (c *Classifier) classifyLabel(ctx context.Context, original, contextualized string, history []model.ConversationTurn) (model.Label, string, string) {
	prompt := fmt.Sprintf(
		"Lịch sử gần đây:\n%s\n\nCâu hỏi gốc: %q\nCâu hỏi đã viết lại: %q\n\n"+
			"Phân loại câu hỏi vào một trong các nhãn: FAQ, CHATTER, REPORTER, OTHER. "+
			"Trả về JSON với các trường label, context_summary, reasoning.",
		formatHistory(history), original, contextualized,
	)

	raw, err := c.llm.Complete(ctx, "Bạn là bộ phân loại câu hỏi hỗ trợ khách hàng tiếng Việt.", prompt)
	if err != nil {
		slog.Warn("classifier: classification call failed, using keyword fallback", "error", err)
		return fallbackClassify(contextualized), "", ""
	}

	var parsed classificationResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		slog.Warn("classifier: failed to parse classification response, using keyword fallback", "error", err)
		return fallbackClassify(contextualized), "", ""
	}

	label := model.Label(strings.ToUpper(strings.TrimSpace(parsed.Label)))
	if !model.ValidLabel(label) {
		label = fallbackClassify(contextualized)
	}

	return label, parsed.ContextSummary, parsed.Reasoning
}

// extractJSON trims any leading/trailing prose around a single JSON object,
// tolerating LLMs that wrap their answer in a sentence or a code fence.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

var (
	negativeAffectWords = []string{"tệ", "kém", "tồi", "giận", "thất vọng", "tức giận"}
	systemFailureWords  = []string{"lỗi", "không hoạt động", "không kết nối", "hỏng"}
	interrogativeWords  = []string{"là gì", "như thế nào", "tại sao", "hướng dẫn", "cách"}
)

// fallbackClassify applies the keyword heuristic used when the LLM call or
// its JSON response can't be trusted.
func fallbackClassify(question string) model.Label {
	q := strings.ToLower(question)

	for _, w := range systemFailureWords {
		if strings.Contains(q, w) {
			return model.LabelReporter
		}
	}
	for _, w := range negativeAffectWords {
		if strings.Contains(q, w) {
			return model.LabelChatter
		}
	}
	for _, w := range interrogativeWords {
		if strings.Contains(q, w) {
			return model.LabelFAQ
		}
	}
	return model.LabelFAQ
}

var (
	anaphoraPattern     = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(nó|cái đó|điều đó|phần đó)(?:$|[^\p{L}\p{N}_])`)
	ordinalPattern      = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(thứ \d+|đầu tiên|cuối cùng)(?:$|[^\p{L}\p{N}_])`)
	continuationPattern = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(tiếp theo|còn|thêm|chi tiết)(?:$|[^\p{L}\p{N}_])`)
)

// isFollowupCandidate applies the lightweight pattern gate: anaphora,
// ordinal references, continuation markers, or a very short query. An empty
// or single-turn history never triggers follow-up resolution, regardless of
// pattern match, since there is nothing to resolve against.
func isFollowupCandidate(question string, history []model.ConversationTurn) bool {
	if len(history) < 2 {
		return false
	}

	normalized := strings.ToLower(norm.NFC.String(question))

	if anaphoraPattern.MatchString(normalized) ||
		ordinalPattern.MatchString(normalized) ||
		continuationPattern.MatchString(normalized) {
		return true
	}

	return tokenCount(normalized) < 5
}

func tokenCount(s string) int {
	return len(strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	}))
}

// slidingWindowContext builds a short context string from the last 2 turns,
// each truncated to ~150 characters.
func slidingWindowContext(history []model.ConversationTurn) string {
	start := len(history) - 2
	if start < 0 {
		start = 0
	}
	window := history[start:]

	var b strings.Builder
	for i, turn := range window {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(string(turn.Role))
		b.WriteString(": ")
		b.WriteString(truncateRunes(turn.Content, 150))
	}
	return b.String()
}

// formatHistory windows the most recent 6 messages (3 turns) for the
// classification prompt, each truncated to 200 characters.
func formatHistory(history []model.ConversationTurn) string {
	start := len(history) - 6
	if start < 0 {
		start = 0
	}
	window := history[start:]

	if len(window) == 0 {
		return "(không có)"
	}

	var b strings.Builder
	for i, turn := range window {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(string(turn.Role))
		b.WriteString(": ")
		b.WriteString(truncateRunes(turn.Content, 200))
	}
	return b.String()
}

func truncateRunes(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
