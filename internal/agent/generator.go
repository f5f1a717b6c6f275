package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/vtc-digital/rag-orchestrator/internal/model"
)

const maxGeneratorPassages = 5

// GenerateInput is everything the Generator needs to compose a prompt.
type GenerateInput struct {
	Question       string
	History        []model.ConversationTurn
	IsFollowup     bool
	ContextSummary string
	Passages       []model.RankedCandidate
}

// Generator streams a grounded answer composed from graded passages.
type Generator struct {
	llm streamer
}

// NewGenerator builds a Generator.
func NewGenerator(llm streamer) *Generator {
	return &Generator{llm: llm}
}

// Stream starts generation and returns the token stream, an error stream,
// the references the final answer should carry, and the status to report
// once the stream completes without error. When in.Passages is empty, no
// LLM call is made: a fixed apology is emitted as the only token and the
// status is ERROR.
func (g *Generator) Stream(ctx context.Context, in GenerateInput) (<-chan string, <-chan error, []model.Reference, model.Status) {
	if len(in.Passages) == 0 {
		textCh := make(chan string, 1)
		errCh := make(chan error)
		textCh <- "Xin lỗi, tôi không tìm thấy thông tin phù hợp để trả lời câu hỏi này."
		close(textCh)
		close(errCh)
		return textCh, errCh, nil, model.StatusError
	}

	passages := in.Passages
	if len(passages) > maxGeneratorPassages {
		passages = passages[:maxGeneratorPassages]
	}

	refs := make([]model.Reference, 0, len(passages))
	for _, p := range passages {
		sim := p.SimilarityScore
		rerank := p.RerankScore
		refs = append(refs, model.Reference{
			DocumentID:      p.ID,
			Kind:            model.ReferenceDocument,
			Description:     truncateRunes(p.PayloadText, 500),
			SimilarityScore: &sim,
			RerankScore:     &rerank,
		})
	}
	refs = model.DedupeReferences(refs)

	systemPrompt := "Bạn là trợ lý trả lời câu hỏi dựa trên tài liệu được cung cấp, trả lời bằng tiếng Việt, chính xác và ngắn gọn."
	userPrompt := g.buildUserPrompt(in, passages)

	textCh, errCh := g.llm.Stream(ctx, systemPrompt, userPrompt)
	return textCh, errCh, refs, model.StatusStreaming
}

func (g *Generator) buildUserPrompt(in GenerateInput, passages []model.RankedCandidate) string {
	var b strings.Builder

	b.WriteString("=== TÀI LIỆU THAM KHẢO ===\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] (độ liên quan: %.2f)\n%s\n\n", i+1, p.RerankScore, truncateRunes(p.PayloadText, 500))
	}

	if len(in.History) > 0 {
		b.WriteString("=== LỊCH SỬ HỘI THOẠI ===\n")
		b.WriteString(slidingWindowContext(in.History))
		b.WriteString("\n\n")
	}

	if in.IsFollowup {
		b.WriteString("=== NGỮ CẢNH CÂU HỎI TIẾP THEO ===\n")
		b.WriteString(in.ContextSummary)
		b.WriteString("\nCâu hỏi này là tiếp nối hội thoại trước. Tham chiếu đến nội dung trước đó nhưng không lặp lại nguyên văn.\n\n")
	}

	b.WriteString("=== CÂU HỎI ===\n")
	b.WriteString(in.Question)
	b.WriteString("\n\nTrả lời dựa trên tài liệu tham khảo ở trên. Nếu tài liệu không đủ thông tin, hãy nói rõ điều đó.")

	return b.String()
}
