package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vtc-digital/rag-orchestrator/internal/agent"
	"github.com/vtc-digital/rag-orchestrator/internal/model"
)

// Default per-branch timeouts, used when Config leaves a field at zero.
const (
	DefaultClassifierTimeout = 20 * time.Second
	DefaultFAQTimeout        = 10 * time.Second
	DefaultRetrieverTimeout  = 10 * time.Second
)

// Config tunes the per-branch wall-clock budgets of the parallel fan-out
// stage. A zero value in any field falls back to this package's default.
type Config struct {
	ClassifierTimeout time.Duration
	FAQTimeout        time.Duration
	RetrieverTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.ClassifierTimeout <= 0 {
		c.ClassifierTimeout = DefaultClassifierTimeout
	}
	if c.FAQTimeout <= 0 {
		c.FAQTimeout = DefaultFAQTimeout
	}
	if c.RetrieverTimeout <= 0 {
		c.RetrieverTimeout = DefaultRetrieverTimeout
	}
	return c
}

// Workflow wires the nine agents into the fan-out/route/dispatch graph
// described by the service's chat contract.
type Workflow struct {
	classifier    *agent.Classifier
	faq           *agent.FAQResponder
	retriever     *agent.Retriever
	grader        *agent.Grader
	generator     *agent.Generator
	chatter       *agent.ChatterResponder
	reporter      *agent.ReporterResponder
	other         *agent.OtherResponder
	notEnoughInfo *agent.NotEnoughInfoResponder

	cfg Config
}

// New builds a Workflow from its nine constituent agents.
func New(
	classifier *agent.Classifier,
	faq *agent.FAQResponder,
	retriever *agent.Retriever,
	grader *agent.Grader,
	generator *agent.Generator,
	chatter *agent.ChatterResponder,
	reporter *agent.ReporterResponder,
	other *agent.OtherResponder,
	notEnoughInfo *agent.NotEnoughInfoResponder,
	cfg Config,
) *Workflow {
	return &Workflow{
		classifier:    classifier,
		faq:           faq,
		retriever:     retriever,
		grader:        grader,
		generator:     generator,
		chatter:       chatter,
		reporter:      reporter,
		other:         other,
		notEnoughInfo: notEnoughInfo,
		cfg:           cfg.withDefaults(),
	}
}

// newState creates the RequestState a single chat request threads through
// the fan-out, the decision router, and dispatch. It is owned exclusively by
// the goroutine handling this request and is discarded once RunStreaming's
// event channel closes.
func newState(question string, history []model.ConversationTurn) *model.RequestState {
	return &model.RequestState{
		OriginalQuestion: question,
		CurrentQuestion:  question,
		History:          history,
	}
}

// fanOut runs the Classifier, FAQ Responder and Document Retriever
// concurrently, each under its own timeout, writing their outcomes into
// state. A real (non-timeout) FAQ Responder error is fatal — a reranker
// failure the caller must not paper over — and aborts the whole fan-out;
// every other branch degrades silently to its fallback value.
func (w *Workflow) fanOut(ctx context.Context, state *model.RequestState) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)

	g.Go(func() error {
		state.Classification = w.runClassifierBranch(gctx, state.OriginalQuestion, state.History)
		return nil
	})
	g.Go(func() error {
		answer, err := w.runFAQBranch(gctx, state.OriginalQuestion)
		state.FAQAnswer = answer
		return err
	})
	g.Go(func() error {
		state.DocumentCandidates = w.runRetrieverBranch(gctx, state.OriginalQuestion)
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("workflow: fan-out: %w", err)
	}

	state.CurrentQuestion = state.Classification.ContextualizedQuestion
	state.IsFollowup = state.Classification.IsFollowup
	state.ContextSummary = state.Classification.ContextSummary
	return nil
}

func (w *Workflow) runClassifierBranch(parent context.Context, question string, history []model.ConversationTurn) model.Classification {
	ctx, cancel := context.WithTimeout(parent, w.cfg.ClassifierTimeout)
	defer cancel()
	return w.classifier.Classify(ctx, question, history)
}

// runFAQBranch returns (nil, nil) whenever the branch has nothing to
// contribute, whether because it genuinely deferred or because its timeout
// fired, and (answer, nil) only when the FAQ Responder is confident enough
// to answer directly.
func (w *Workflow) runFAQBranch(parent context.Context, question string) (*model.Answer, error) {
	ctx, cancel := context.WithTimeout(parent, w.cfg.FAQTimeout)
	defer cancel()

	answer, ok, err := w.faq.Respond(ctx, question)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Warn("workflow: faq branch timed out, deferring", "error", err)
			return nil, nil
		}
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return answer, nil
}

func (w *Workflow) runRetrieverBranch(parent context.Context, question string) []model.SearchCandidate {
	ctx, cancel := context.WithTimeout(parent, w.cfg.RetrieverTimeout)
	defer cancel()

	candidates, err := w.retriever.Retrieve(ctx, question)
	if err != nil {
		slog.Warn("workflow: retriever branch failed or timed out, routing to not-enough-info", "error", err)
		return nil
	}
	return candidates
}

// dispatch applies the decision router's priority order — special label,
// then FAQ success, then documents present, then not-enough-info — reads and
// mutates state accordingly, and returns a unified (tokens, errors,
// references, status) view regardless of which terminal agent produced it.
// Scripted responders synthesize their token channel from a single buffered
// Respond call; the Generator streams live from the LLM.
func (w *Workflow) dispatch(ctx context.Context, state *model.RequestState) (<-chan string, <-chan error, []model.Reference, model.Status) {
	question := state.CurrentQuestion
	classification := state.Classification

	switch classification.Label {
	case model.LabelChatter:
		return w.chatter.Stream(ctx, question)
	case model.LabelReporter:
		return w.reporter.Stream(ctx, question)
	case model.LabelOther:
		return w.other.Stream(ctx, question)
	}

	if state.FAQAnswer != nil {
		textCh, errCh := streamFromAnswer(*state.FAQAnswer)
		return textCh, errCh, state.FAQAnswer.References, state.FAQAnswer.Status
	}

	if len(state.DocumentCandidates) == 0 {
		return w.notEnoughInfo.Stream(ctx, question, model.StatusNotFound)
	}

	qualified, err := w.grader.Grade(ctx, question, state.DocumentCandidates)
	if err != nil {
		errCh := make(chan error, 1)
		errCh <- fmt.Errorf("workflow: grade: %w", err)
		close(errCh)
		closedText := make(chan string)
		close(closedText)
		return closedText, errCh, nil, model.StatusError
	}
	state.QualifiedDocuments = qualified
	if len(qualified) == 0 {
		return w.notEnoughInfo.Stream(ctx, question, model.StatusInsufficient)
	}

	return w.generator.Stream(ctx, agent.GenerateInput{
		Question:       question,
		History:        state.History,
		IsFollowup:     state.IsFollowup,
		ContextSummary: state.ContextSummary,
		Passages:       state.QualifiedDocuments,
	})
}

func streamFromAnswer(ans model.Answer) (<-chan string, <-chan error) {
	words := strings.Fields(ans.Text)
	textCh := make(chan string, len(words))
	errCh := make(chan error)
	for i, word := range words {
		if i < len(words)-1 {
			textCh <- word + " "
		} else {
			textCh <- word
		}
	}
	close(textCh)
	close(errCh)
	return textCh, errCh
}

// RunStreaming runs the fan-out and decision router, then returns a channel
// of SSE events describing the chosen route's answer as it is produced. A
// non-nil error return means the fan-out itself failed fatally (an FAQ
// reranker failure) before any event was emitted; once the channel is
// returned, every subsequent failure is delivered as an EventError on that
// channel rather than as a Go error, matching the rule that a streaming
// response never closes silently.
func (w *Workflow) RunStreaming(ctx context.Context, question string, history []model.ConversationTurn) (<-chan Event, error) {
	state := newState(question, history)

	if err := w.fanOut(ctx, state); err != nil {
		return nil, err
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)

		events <- Event{Type: EventStart, Status: statusPtr(model.Status("processing"))}

		textCh, errCh, refs, status := w.dispatch(ctx, state)

		for text := range textCh {
			text := text
			events <- Event{Type: EventChunk, Content: &text}
		}

		select {
		case streamErr := <-errCh:
			if streamErr != nil {
				events <- Event{Type: EventError, Content: contentPtr(streamErr.Error()), Status: statusPtr(model.StatusError)}
				return
			}
		default:
		}

		if refs == nil {
			refs = []model.Reference{}
		}
		state.References = refs
		events <- Event{Type: EventReferences, References: state.References}

		if status == model.StatusStreaming {
			status = model.StatusSuccess
		}
		events <- Event{Type: EventEnd, Status: &status}
	}()

	return events, nil
}

// Run drives RunStreaming to completion and buffers it into a single
// Answer, the way the non-streaming /chat response is built. Buffering the
// same event stream the SSE path emits — rather than re-implementing
// dispatch — is what guarantees the two response modes agree on the
// answer text for identical input.
func (w *Workflow) Run(ctx context.Context, question string, history []model.ConversationTurn) (model.Answer, error) {
	events, err := w.RunStreaming(ctx, question, history)
	if err != nil {
		return model.Answer{}, err
	}

	var sb strings.Builder
	var refs []model.Reference
	status := model.StatusError

	for ev := range events {
		switch ev.Type {
		case EventChunk:
			if ev.Content != nil {
				sb.WriteString(*ev.Content)
			}
		case EventReferences:
			refs = ev.References
		case EventEnd:
			if ev.Status != nil {
				status = *ev.Status
			}
		case EventError:
			msg := "unknown error"
			if ev.Content != nil {
				msg = *ev.Content
			}
			return model.Answer{}, fmt.Errorf("workflow: %s", msg)
		}
	}

	return model.Answer{
		Text:       strings.TrimRight(sb.String(), " "),
		Status:     status,
		References: refs,
	}, nil
}
