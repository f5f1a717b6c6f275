package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vtc-digital/rag-orchestrator/internal/model"
	"github.com/vtc-digital/rag-orchestrator/internal/workflow"
)

type stubWorkflow struct {
	answer       model.Answer
	err          error
	streamEvents []workflow.Event
	streamErr    error
}

func (s *stubWorkflow) Run(ctx context.Context, question string, history []model.ConversationTurn) (model.Answer, error) {
	return s.answer, s.err
}

func (s *stubWorkflow) RunStreaming(ctx context.Context, question string, history []model.ConversationTurn) (<-chan workflow.Event, error) {
	if s.streamErr != nil {
		return nil, s.streamErr
	}
	ch := make(chan workflow.Event, len(s.streamEvents))
	for _, ev := range s.streamEvents {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

type stubMetrics struct{ notEnoughInfoCount int }

func (s *stubMetrics) IncrementNotEnoughInfoTrigger() { s.notEnoughInfoCount++ }

func doChatRequest(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestChat_BufferedSuccess(t *testing.T) {
	wf := &stubWorkflow{answer: model.Answer{
		Text:   "Đây là câu trả lời.",
		Status: model.StatusSuccess,
		References: []model.Reference{
			{DocumentID: "doc1", Kind: model.ReferenceDocument},
		},
	}}
	h := Chat(wf, &stubMetrics{})

	rec := doChatRequest(t, h, `{"question":"khung năng lực số là gì","history":[]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Answer != "Đây là câu trả lời." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.Status != model.StatusSuccess {
		t.Errorf("status = %q", resp.Status)
	}
	if len(resp.References) != 1 {
		t.Errorf("expected 1 reference, got %d", len(resp.References))
	}
}

func TestChat_RejectsTooShortQuestion(t *testing.T) {
	h := Chat(&stubWorkflow{}, &stubMetrics{})

	rec := doChatRequest(t, h, `{"question":"ab"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChat_RejectsMalformedJSON(t *testing.T) {
	h := Chat(&stubWorkflow{}, &stubMetrics{})

	rec := doChatRequest(t, h, `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChat_WorkflowFailure_Returns500(t *testing.T) {
	h := Chat(&stubWorkflow{err: errors.New("reranker down")}, &stubMetrics{})

	rec := doChatRequest(t, h, `{"question":"câu hỏi hợp lệ"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestChat_NotFoundStatus_IncrementsMetric(t *testing.T) {
	metrics := &stubMetrics{}
	wf := &stubWorkflow{answer: model.Answer{Text: "xin lỗi", Status: model.StatusNotFound}}
	h := Chat(wf, metrics)

	doChatRequest(t, h, `{"question":"câu hỏi hiếm gặp"}`)

	if metrics.notEnoughInfoCount != 1 {
		t.Errorf("expected 1 not-enough-info trigger, got %d", metrics.notEnoughInfoCount)
	}
}

func TestChat_Streaming_EmitsSSEEvents(t *testing.T) {
	status := model.StatusSuccess
	content1 := "Xin "
	content2 := "chào."
	wf := &stubWorkflow{streamEvents: []workflow.Event{
		{Type: workflow.EventStart},
		{Type: workflow.EventChunk, Content: &content1},
		{Type: workflow.EventChunk, Content: &content2},
		{Type: workflow.EventReferences, References: []model.Reference{}},
		{Type: workflow.EventEnd, Status: &status},
	}}
	h := Chat(wf, &stubMetrics{})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"question":"câu hỏi hợp lệ","stream":true}`))
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content-type = %q, want text/event-stream", ct)
	}

	blocks := bytes.Split(bytes.TrimRight(rec.Body.Bytes(), "\n"), []byte("\n\n"))
	if len(blocks) != 5 {
		t.Fatalf("expected 5 SSE events, got %d: %s", len(blocks), rec.Body.String())
	}
	if !strings.HasPrefix(string(blocks[0]), "data: ") {
		t.Errorf("expected SSE line prefix, got %q", blocks[0])
	}

	var start workflow.Event
	if err := json.Unmarshal(bytes.TrimPrefix(blocks[0], []byte("data: ")), &start); err != nil {
		t.Fatalf("failed to decode start event: %v", err)
	}
	if start.Type != workflow.EventStart {
		t.Errorf("first event type = %q, want start", start.Type)
	}

	var end workflow.Event
	if err := json.Unmarshal(bytes.TrimPrefix(blocks[4], []byte("data: ")), &end); err != nil {
		t.Fatalf("failed to decode end event: %v", err)
	}
	if end.Type != workflow.EventEnd {
		t.Errorf("last event type = %q, want end", end.Type)
	}
}

func TestChat_Streaming_FatalErrorBeforeStream_Returns500(t *testing.T) {
	h := Chat(&stubWorkflow{streamErr: errors.New("faq reranker down")}, &stubMetrics{})

	rec := doChatRequest(t, h, `{"question":"câu hỏi hợp lệ","stream":true}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
