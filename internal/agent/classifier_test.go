package agent

import (
	"context"
	"testing"

	"github.com/vtc-digital/rag-orchestrator/internal/cache"
	"github.com/vtc-digital/rag-orchestrator/internal/model"
)

type stubCompleter struct {
	response string
	err      error
	calls    int
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type stubLiveness struct {
	live bool
}

func (s *stubLiveness) IsLive(ctx context.Context) bool {
	return s.live
}

func newTestCache() *cache.RewriteCache {
	return cache.New(10, nil)
}

func TestClassify_NotLive_RoutesToReporter(t *testing.T) {
	c := NewClassifier(&stubCompleter{}, &stubLiveness{live: false}, newTestCache())

	result := c.Classify(context.Background(), "hệ thống lỗi rồi", nil)

	if result.Label != model.LabelReporter {
		t.Errorf("expected REPORTER, got %s", result.Label)
	}
}

func TestClassify_EmptyHistory_NeverFollowup(t *testing.T) {
	llm := &stubCompleter{response: `{"label":"FAQ","context_summary":"","reasoning":""}`}
	c := NewClassifier(llm, &stubLiveness{live: true}, newTestCache())

	result := c.Classify(context.Background(), "nó là gì", nil)

	if result.IsFollowup {
		t.Error("expected no follow-up with empty history, regardless of anaphora")
	}
}

func TestClassify_ContinuationWithHistory_TriggersRewrite(t *testing.T) {
	llm := &stubCompleter{response: `{"label":"FAQ","context_summary":"tóm tắt","reasoning":""}`}
	c := NewClassifier(llm, &stubLiveness{live: true}, newTestCache())

	history := []model.ConversationTurn{
		{Role: model.RoleUser, Content: "Khung năng lực số có 6 nhóm kỹ năng"},
		{Role: model.RoleAssistant, Content: "Đúng vậy, đây là 6 nhóm kỹ năng số cơ bản"},
	}

	result := c.Classify(context.Background(), "chi tiết nhóm kỹ năng thứ 3", history)

	if !result.IsFollowup {
		t.Error("expected follow-up to be detected")
	}
	// Rewrite call + classification call both hit the LLM.
	if llm.calls < 2 {
		t.Errorf("expected at least 2 LLM calls (rewrite + classify), got %d", llm.calls)
	}
}

func TestClassify_RewriteSentinel_FallsBackToOriginal(t *testing.T) {
	calls := 0
	llm := &stubCompleter{}
	// Override behavior: first call (rewrite) returns sentinel, second (classify) returns JSON.
	originalComplete := func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		calls++
		if calls == 1 {
			return clarifySentinel, nil
		}
		return `{"label":"FAQ"}`, nil
	}
	c := NewClassifier(completerFunc(originalComplete), &stubLiveness{live: true}, newTestCache())

	history := []model.ConversationTurn{
		{Role: model.RoleUser, Content: "a"},
		{Role: model.RoleAssistant, Content: "b"},
	}

	result := c.Classify(context.Background(), "cái đó là gì", history)

	if result.IsFollowup {
		t.Error("expected sentinel rewrite to fall back to non-follow-up")
	}
	if result.ContextualizedQuestion != "cái đó là gì" {
		t.Errorf("expected original question preserved, got %q", result.ContextualizedQuestion)
	}
	_ = llm
}

func TestClassify_LLMFailure_UsesKeywordFallback(t *testing.T) {
	c := NewClassifier(&stubCompleter{err: errBoom}, &stubLiveness{live: true}, newTestCache())

	result := c.Classify(context.Background(), "hệ thống của bạn lỗi rồi", nil)

	if result.Label != model.LabelReporter {
		t.Errorf("expected REPORTER from keyword fallback, got %s", result.Label)
	}
}

func TestClassify_InvalidLabelInJSON_FallsBackToFAQ(t *testing.T) {
	llm := &stubCompleter{response: `{"label":"NONSENSE"}`}
	c := NewClassifier(llm, &stubLiveness{live: true}, newTestCache())

	result := c.Classify(context.Background(), "dịch vụ khung năng lực số là gì", nil)

	if result.Label != model.LabelFAQ {
		t.Errorf("expected FAQ fallback for invalid label, got %s", result.Label)
	}
}

func TestFallbackClassify_KeywordPriority(t *testing.T) {
	tests := []struct {
		question string
		want     model.Label
	}{
		{"hệ thống của bạn lỗi rồi", model.LabelReporter},
		{"dịch vụ quá tệ, tôi rất thất vọng", model.LabelChatter},
		{"khung năng lực số là gì", model.LabelFAQ},
		{"xin chào", model.LabelFAQ},
	}
	for _, tt := range tests {
		got := fallbackClassify(tt.question)
		if got != tt.want {
			t.Errorf("fallbackClassify(%q) = %s, want %s", tt.question, got, tt.want)
		}
	}
}

func TestIsFollowupCandidate_ShortQueryWithHistory(t *testing.T) {
	history := []model.ConversationTurn{
		{Role: model.RoleUser, Content: "a"},
		{Role: model.RoleAssistant, Content: "b"},
	}
	if !isFollowupCandidate("còn gì nữa", history) {
		t.Error("expected short query to be treated as a follow-up candidate")
	}
}

func TestIsFollowupCandidate_SingleTurnHistoryNeverTriggers(t *testing.T) {
	history := []model.ConversationTurn{
		{Role: model.RoleUser, Content: "a"},
	}
	if isFollowupCandidate("nó là gì", history) {
		t.Error("expected single-turn history to never trigger follow-up resolution")
	}
}

// errBoom is a sentinel error used across agent tests for stubbed failures.
var errBoom = &boomError{}

type boomError struct{}

func (e *boomError) Error() string { return "boom" }

// completerFunc adapts a plain function to the completer interface.
type completerFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

func (f completerFunc) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}
