package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/vtc-digital/rag-orchestrator/internal/model"
)

func TestChatterResponder_UsesLLMReply(t *testing.T) {
	r := NewChatterResponder(&stubCompleter{response: "Xin lỗi vì trải nghiệm chưa tốt, chúng tôi sẽ cải thiện ngay."}, ResponderConfig{SupportPhone: "1900 1234"})

	ans := r.Respond(context.Background(), "dịch vụ quá tệ")

	if ans.Status != model.StatusSuccess {
		t.Errorf("expected SUCCESS, got %s", ans.Status)
	}
	if len(ans.References) != 1 || ans.References[0].Kind != model.ReferenceSupport {
		t.Errorf("expected one SUPPORT reference, got %+v", ans.References)
	}
	if !strings.Contains(ans.Text, "cải thiện") {
		t.Errorf("expected LLM reply to be used, got %q", ans.Text)
	}
}

func TestChatterResponder_FallsBackOnLLMError(t *testing.T) {
	r := NewChatterResponder(&stubCompleter{err: errBoom}, ResponderConfig{SupportPhone: "1900 1234"})

	ans := r.Respond(context.Background(), "dịch vụ quá tệ")

	if !strings.Contains(ans.Text, "1900 1234") {
		t.Errorf("expected fallback to mention support phone, got %q", ans.Text)
	}
}

func TestChatterResponder_FallsBackOnTooShortReply(t *testing.T) {
	r := NewChatterResponder(&stubCompleter{response: "ok"}, ResponderConfig{SupportPhone: "1900 1234"})

	ans := r.Respond(context.Background(), "dịch vụ quá tệ")

	if !strings.Contains(ans.Text, "1900 1234") {
		t.Errorf("expected fallback for too-short reply, got %q", ans.Text)
	}
}

func TestReporterResponder_ReferencesSystem(t *testing.T) {
	r := NewReporterResponder(&stubCompleter{response: "Đã ghi nhận sự cố, đội kỹ thuật đang xử lý ngay."}, ResponderConfig{SupportPhone: "1900 1234"})

	ans := r.Respond(context.Background(), "hệ thống bị lỗi")

	if len(ans.References) != 1 || ans.References[0].Kind != model.ReferenceSystem {
		t.Errorf("expected one SYSTEM reference, got %+v", ans.References)
	}
}

func TestOtherResponder_ReferencesGeneralKnowledge(t *testing.T) {
	r := NewOtherResponder(&stubCompleter{response: "Đây là câu hỏi ngoài phạm vi hỗ trợ của chúng tôi."})

	ans := r.Respond(context.Background(), "thời tiết hôm nay thế nào")

	if len(ans.References) != 1 || ans.References[0].Kind != model.ReferenceGeneralKnowledge {
		t.Errorf("expected one GENERAL_KNOWLEDGE reference, got %+v", ans.References)
	}
}

func TestNotEnoughInfoResponder_CarriesCallerStatus(t *testing.T) {
	r := NewNotEnoughInfoResponder(&stubCompleter{response: "Xin lỗi, chúng tôi không tìm thấy thông tin phù hợp."}, ResponderConfig{SupportPhone: "1900 1234"})

	ans := r.Respond(context.Background(), "câu hỏi hiếm gặp", model.StatusInsufficient)

	if ans.Status != model.StatusInsufficient {
		t.Errorf("expected caller-supplied status INSUFFICIENT, got %s", ans.Status)
	}
	if len(ans.References) != 0 {
		t.Errorf("expected no references, got %+v", ans.References)
	}
}

func TestNotEnoughInfoResponder_NotFoundStatus(t *testing.T) {
	r := NewNotEnoughInfoResponder(&stubCompleter{response: "Xin lỗi, chúng tôi không tìm thấy thông tin phù hợp."}, ResponderConfig{SupportPhone: "1900 1234"})

	ans := r.Respond(context.Background(), "câu hỏi hiếm gặp", model.StatusNotFound)

	if ans.Status != model.StatusNotFound {
		t.Errorf("expected caller-supplied status NOT_FOUND, got %s", ans.Status)
	}
}

func TestResponderStream_ConcatenatesToRespondText(t *testing.T) {
	r := NewChatterResponder(&stubCompleter{response: "Xin lỗi vì trải nghiệm chưa tốt, chúng tôi sẽ cải thiện ngay."}, ResponderConfig{SupportPhone: "1900 1234"})

	ans := r.Respond(context.Background(), "dịch vụ quá tệ")
	textCh, errCh, refs, status := r.Stream(context.Background(), "dịch vụ quá tệ")

	var sb strings.Builder
	for tok := range textCh {
		sb.WriteString(tok)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if sb.String() != ans.Text {
		t.Errorf("stream text %q does not match Respond text %q", sb.String(), ans.Text)
	}
	if status != ans.Status || len(refs) != len(ans.References) {
		t.Errorf("stream metadata does not match Respond output")
	}
}
