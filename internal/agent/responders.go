package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/vtc-digital/rag-orchestrator/internal/model"
)

// ResponderConfig holds the one piece of template data every scripted
// responder substitutes into its prompt and its fallback string: the
// support line callers are pointed to when the LLM can't help further.
type ResponderConfig struct {
	SupportPhone string
}

// minReplyRunes is the floor below which a responder treats the LLM's reply
// as unusable and falls back to its hard-coded string, matching the FAQ
// Responder's own "too-short reply" floor (§4.2).
const minReplyRunes = 10

// streamFromText synthesizes a single-shot token sequence from a buffered
// string by splitting it on whitespace, the way every terminal agent except
// the Generator produces its streaming half (§9 "coroutine streaming").
func streamFromText(text string) (<-chan string, <-chan error) {
	words := strings.Fields(text)
	textCh := make(chan string, len(words))
	errCh := make(chan error)
	for i, w := range words {
		if i < len(words)-1 {
			textCh <- w + " "
		} else {
			textCh <- w
		}
	}
	close(textCh)
	close(errCh)
	return textCh, errCh
}

// ChatterResponder replies to complaints and negative-affect messages with
// an empathetic, scripted answer that points the caller at human support.
type ChatterResponder struct {
	llm completer
	cfg ResponderConfig
}

// NewChatterResponder builds a ChatterResponder.
func NewChatterResponder(llm completer, cfg ResponderConfig) *ChatterResponder {
	return &ChatterResponder{llm: llm, cfg: cfg}
}

// Respond produces a single scripted answer. It never returns an error: an
// LLM failure or an implausibly short reply falls back to a hard-coded
// Vietnamese apology.
func (r *ChatterResponder) Respond(ctx context.Context, question string) model.Answer {
	text, err := r.llm.Complete(ctx,
		"Bạn là trợ lý chăm sóc khách hàng tiếng Việt. Hãy xin lỗi khách hàng một cách chân thành, thể hiện sự thấu cảm, và đề nghị hỗ trợ thêm nếu cần.",
		fmt.Sprintf("Khách hàng phản ánh: %q\n\nSố điện thoại hỗ trợ: %s\n\nHãy viết một phản hồi ngắn gọn, chân thành.", question, r.cfg.SupportPhone),
	)
	answer := chooseReply(text, err, fmt.Sprintf(
		"Chúng tôi rất tiếc về trải nghiệm chưa tốt của bạn. Vui lòng liên hệ tổng đài hỗ trợ %s để được hỗ trợ trực tiếp.",
		r.cfg.SupportPhone))

	return model.Answer{
		Text:       answer,
		Status:     model.StatusSuccess,
		References: []model.Reference{{DocumentID: "support-desk", Kind: model.ReferenceSupport}},
	}
}

// Stream returns the single-shot token sequence for Respond's answer.
func (r *ChatterResponder) Stream(ctx context.Context, question string) (<-chan string, <-chan error, []model.Reference, model.Status) {
	ans := r.Respond(ctx, question)
	textCh, errCh := streamFromText(ans.Text)
	return textCh, errCh, ans.References, ans.Status
}

// ReporterResponder acknowledges a system-failure report, reassuring the
// caller that the issue has been logged without promising an engineering
// fix inline.
type ReporterResponder struct {
	llm completer
	cfg ResponderConfig
}

// NewReporterResponder builds a ReporterResponder.
func NewReporterResponder(llm completer, cfg ResponderConfig) *ReporterResponder {
	return &ReporterResponder{llm: llm, cfg: cfg}
}

// Respond produces a single scripted answer; see ChatterResponder.Respond
// for the fallback contract.
func (r *ReporterResponder) Respond(ctx context.Context, question string) model.Answer {
	text, err := r.llm.Complete(ctx,
		"Bạn là trợ lý kỹ thuật tiếp nhận báo lỗi hệ thống, trả lời tiếng Việt.",
		fmt.Sprintf("Người dùng báo lỗi: %q\n\nSố hỗ trợ khẩn cấp: %s\n\nXác nhận đã ghi nhận sự cố và trấn an người dùng.", question, r.cfg.SupportPhone),
	)
	answer := chooseReply(text, err, fmt.Sprintf(
		"Chúng tôi đã ghi nhận sự cố bạn gặp phải và đội kỹ thuật đang xử lý. Vui lòng liên hệ %s nếu cần hỗ trợ khẩn cấp.",
		r.cfg.SupportPhone))

	return model.Answer{
		Text:       answer,
		Status:     model.StatusSuccess,
		References: []model.Reference{{DocumentID: "system-status", Kind: model.ReferenceSystem}},
	}
}

// Stream returns the single-shot token sequence for Respond's answer.
func (r *ReporterResponder) Stream(ctx context.Context, question string) (<-chan string, <-chan error, []model.Reference, model.Status) {
	ans := r.Respond(ctx, question)
	textCh, errCh := streamFromText(ans.Text)
	return textCh, errCh, ans.References, ans.Status
}

// OtherResponder politely declines questions outside the system's domain,
// optionally offering a short general-knowledge reply.
type OtherResponder struct {
	llm completer
}

// NewOtherResponder builds an OtherResponder.
func NewOtherResponder(llm completer) *OtherResponder {
	return &OtherResponder{llm: llm}
}

// Respond produces a single scripted answer; see ChatterResponder.Respond
// for the fallback contract.
func (r *OtherResponder) Respond(ctx context.Context, question string) model.Answer {
	text, err := r.llm.Complete(ctx,
		"Bạn là trợ lý tiếp nhận câu hỏi ngoài phạm vi hỗ trợ, trả lời tiếng Việt lịch sự.",
		fmt.Sprintf("Câu hỏi của người dùng: %q\n\nĐây là câu hỏi ngoài phạm vi hệ thống hỗ trợ. Hãy lịch sự giải thích điều này, và trả lời ngắn gọn bằng kiến thức chung nếu phù hợp.", question),
	)
	answer := chooseReply(text, err,
		"Câu hỏi này nằm ngoài phạm vi hỗ trợ của hệ thống. Vui lòng đặt câu hỏi liên quan đến dịch vụ để chúng tôi có thể hỗ trợ bạn tốt hơn.")

	return model.Answer{
		Text:       answer,
		Status:     model.StatusSuccess,
		References: []model.Reference{{DocumentID: "general-knowledge", Kind: model.ReferenceGeneralKnowledge}},
	}
}

// Stream returns the single-shot token sequence for Respond's answer.
func (r *OtherResponder) Stream(ctx context.Context, question string) (<-chan string, <-chan error, []model.Reference, model.Status) {
	ans := r.Respond(ctx, question)
	textCh, errCh := streamFromText(ans.Text)
	return textCh, errCh, ans.References, ans.Status
}

// NotEnoughInfoResponder produces a graceful decline when no retrieved
// material clears the confidence bar, carrying whichever terminal status
// the caller determines the miss represents (NOT_FOUND when nothing was
// retrieved at all, INSUFFICIENT when the Grader rejected every candidate).
type NotEnoughInfoResponder struct {
	llm completer
	cfg ResponderConfig
}

// NewNotEnoughInfoResponder builds a NotEnoughInfoResponder.
func NewNotEnoughInfoResponder(llm completer, cfg ResponderConfig) *NotEnoughInfoResponder {
	return &NotEnoughInfoResponder{llm: llm, cfg: cfg}
}

// Respond produces a single scripted answer carrying status. It never
// returns references: there is no document to cite.
func (r *NotEnoughInfoResponder) Respond(ctx context.Context, question string, status model.Status) model.Answer {
	text, err := r.llm.Complete(ctx,
		"Bạn là trợ lý trả lời khi không tìm thấy thông tin phù hợp trong tài liệu, trả lời tiếng Việt nhẹ nhàng.",
		fmt.Sprintf("Câu hỏi: %q\n\nKhông tìm thấy tài liệu phù hợp để trả lời chính xác. Hãy lịch sự xin lỗi và gợi ý người dùng cung cấp thêm chi tiết hoặc liên hệ hỗ trợ qua %s.", question, r.cfg.SupportPhone),
	)
	answer := chooseReply(text, err, fmt.Sprintf(
		"Xin lỗi, tôi không tìm thấy thông tin phù hợp để trả lời câu hỏi này. Vui lòng cung cấp thêm chi tiết hoặc liên hệ hỗ trợ qua %s.",
		r.cfg.SupportPhone))

	return model.Answer{Text: answer, Status: status}
}

// Stream returns the single-shot token sequence for Respond's answer.
func (r *NotEnoughInfoResponder) Stream(ctx context.Context, question string, status model.Status) (<-chan string, <-chan error, []model.Reference, model.Status) {
	ans := r.Respond(ctx, question, status)
	textCh, errCh := streamFromText(ans.Text)
	return textCh, errCh, ans.References, ans.Status
}

// chooseReply applies the shared fallback rule every scripted responder
// uses: an LLM failure or an implausibly short reply is replaced by the
// hard-coded fallback string.
func chooseReply(text string, err error, fallback string) string {
	if err != nil {
		return fallback
	}
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minReplyRunes {
		return fallback
	}
	return text
}
