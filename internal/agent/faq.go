package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vtc-digital/rag-orchestrator/internal/model"
)

// FAQConfig holds the tunable thresholds and weights for the FAQ Responder.
type FAQConfig struct {
	TopK int

	VectorThreshold          float64
	RerankThreshold          float64
	RerankDirectThreshold    float64
	SimilarityForceThreshold float64

	WeightQuestion       float64
	WeightQuestionAnswer float64
	WeightAnswer         float64
	ConsistencyThreshold float64
	ConsistencyBonus     float64
}

// FAQResponder answers when a single FAQ entry covers the question.
type FAQResponder struct {
	embedder embedder
	search   faqSearcher
	rerank   reranker
	llm      completer
	cfg      FAQConfig
}

// NewFAQResponder builds a FAQResponder.
func NewFAQResponder(emb embedder, search faqSearcher, rerank reranker, llm completer, cfg FAQConfig) *FAQResponder {
	return &FAQResponder{embedder: emb, search: search, rerank: rerank, llm: llm, cfg: cfg}
}

// Respond returns (answer, true, nil) when an FAQ entry was confident
// enough to answer with, (nil, false, nil) when the branch defers to the
// rest of the workflow, or (nil, false, err) when the reranker itself
// failed — a fatal condition that must propagate rather than silently fall
// back to similarity-only ranking.
func (f *FAQResponder) Respond(ctx context.Context, question string) (*model.Answer, bool, error) {
	vec, err := f.embedder.EmbedOne(ctx, question)
	if err != nil {
		return nil, false, nil
	}

	candidates, err := f.search.SearchFAQ(ctx, vec, f.cfg.TopK)
	if err != nil {
		return nil, false, nil
	}

	var survivors []model.SearchCandidate
	for _, c := range candidates {
		if c.SimilarityScore >= f.cfg.VectorThreshold {
			survivors = append(survivors, c)
		}
	}
	if len(survivors) == 0 {
		return nil, false, nil
	}

	ranked, err := f.rerankVariants(ctx, question, survivors)
	if err != nil {
		return nil, false, fmt.Errorf("agent.FAQResponder: reranker failed: %w", err)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RerankScore > ranked[j].RerankScore
	})

	return f.decide(ctx, question, ranked)
}

// rerankVariants scores three (query, passage) variants per candidate —
// question-only, question+answer, answer-only — in three concurrent
// batches, then fuses them into one final score per candidate.
func (f *FAQResponder) rerankVariants(ctx context.Context, question string, candidates []model.SearchCandidate) ([]model.RankedCandidate, error) {
	questionVariant := make([]string, len(candidates))
	qaVariant := make([]string, len(candidates))
	answerVariant := make([]string, len(candidates))

	for i, c := range candidates {
		questionVariant[i] = c.Question
		qaVariant[i] = truncateRunes(c.Question+" "+c.Answer, 500)
		answerVariant[i] = truncateRunes(c.Answer, 400)
	}

	var qScores, qaScores, aScores []float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scores, err := f.rerank.Score(gctx, question, questionVariant)
		if err != nil {
			return err
		}
		qScores = scores
		return nil
	})
	g.Go(func() error {
		scores, err := f.rerank.Score(gctx, question, qaVariant)
		if err != nil {
			return err
		}
		qaScores = scores
		return nil
	})
	g.Go(func() error {
		scores, err := f.rerank.Score(gctx, question, answerVariant)
		if err != nil {
			return err
		}
		aScores = scores
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.RankedCandidate, len(candidates))
	for i, c := range candidates {
		variants := &model.VariantBreakdown{
			QuestionScore:       qScores[i],
			QuestionAnswerScore: qaScores[i],
			AnswerScore:         aScores[i],
		}
		final := f.cfg.WeightQuestion*variants.QuestionScore +
			f.cfg.WeightQuestionAnswer*variants.QuestionAnswerScore +
			f.cfg.WeightAnswer*variants.AnswerScore

		if variants.QuestionScore >= f.cfg.ConsistencyThreshold &&
			variants.QuestionAnswerScore >= f.cfg.ConsistencyThreshold &&
			variants.AnswerScore >= f.cfg.ConsistencyThreshold {
			final *= f.cfg.ConsistencyBonus
		}

		out[i] = model.RankedCandidate{
			SearchCandidate: c,
			RerankScore:     final,
			Variants:        variants,
		}
	}
	return out, nil
}

func (f *FAQResponder) decide(ctx context.Context, question string, ranked []model.RankedCandidate) (*model.Answer, bool, error) {
	top := ranked[0]

	if top.SimilarityScore >= f.cfg.SimilarityForceThreshold {
		return directAnswer(top), true, nil
	}
	if top.RerankScore >= f.cfg.RerankDirectThreshold {
		return directAnswer(top), true, nil
	}
	if top.RerankScore >= f.cfg.RerankThreshold {
		topThree := ranked
		if len(topThree) > 3 {
			topThree = topThree[:3]
		}
		text, err := f.llm.Complete(ctx, faqSynthesisSystemPrompt, formatRerankedFAQ(question, topThree))
		if err != nil {
			return nil, false, nil
		}
		text = strings.TrimSpace(text)
		if text == "NOT_FOUND" || len([]rune(text)) < 10 {
			return nil, false, nil
		}
		refs := make([]model.Reference, 0, len(topThree))
		for _, c := range topThree {
			refs = append(refs, model.Reference{DocumentID: c.ID, Kind: model.ReferenceFAQ})
		}
		return &model.Answer{Text: text, Status: model.StatusSuccess, References: model.DedupeReferences(refs)}, true, nil
	}

	return nil, false, nil
}

func directAnswer(c model.RankedCandidate) *model.Answer {
	sim := c.SimilarityScore
	rerank := c.RerankScore
	return &model.Answer{
		Text:   c.Answer,
		Status: model.StatusSuccess,
		References: []model.Reference{
			{
				DocumentID:      c.ID,
				Kind:            model.ReferenceFAQ,
				Description:     c.Question,
				SimilarityScore: &sim,
				RerankScore:     &rerank,
			},
		},
	}
}

const faqSynthesisSystemPrompt = "Bạn là trợ lý tổng hợp câu trả lời từ các câu hỏi thường gặp (FAQ) tiếng Việt."

// formatRerankedFAQ matches the original system's _format_reranked_faq: it
// composes a synthesis prompt from the top 3 reranked FAQ entries.
func formatRerankedFAQ(question string, top []model.RankedCandidate) string {
	var b strings.Builder
	b.WriteString("Câu hỏi của người dùng: ")
	b.WriteString(question)
	b.WriteString("\n\nCác câu hỏi thường gặp liên quan:\n")
	for i, c := range top {
		fmt.Fprintf(&b, "%d. Hỏi: %s\n   Đáp: %s\n", i+1, c.Question, c.Answer)
	}
	b.WriteString("\nTổng hợp một câu trả lời duy nhất, ngắn gọn và chính xác từ các thông tin trên. " +
		"Nếu không có thông tin nào thực sự trả lời được câu hỏi, trả về đúng chuỗi NOT_FOUND.")
	return b.String()
}
