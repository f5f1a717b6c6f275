package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vtc-digital/rag-orchestrator/internal/model"
	"github.com/vtc-digital/rag-orchestrator/internal/workflow"
)

// chatWorkflow is the subset of *workflow.Workflow the handler needs.
type chatWorkflow interface {
	Run(ctx context.Context, question string, history []model.ConversationTurn) (model.Answer, error)
	RunStreaming(ctx context.Context, question string, history []model.ConversationTurn) (<-chan workflow.Event, error)
}

// metricsRecorder lets the chat handler increment the Not-Enough-Info
// counter without depending on the concrete middleware package.
type metricsRecorder interface {
	IncrementNotEnoughInfoTrigger()
}

type chatRequest struct {
	Question string                   `json:"question"`
	History  []model.ConversationTurn `json:"history"`
	Stream   bool                     `json:"stream"`
}

type chatResponse struct {
	Answer     string             `json:"answer"`
	References []model.Reference `json:"references"`
	Status     model.Status       `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Chat serves POST /chat, dispatching to the workflow's buffered or
// streaming path depending on the request's "stream" field.
func Chat(wf chatWorkflow, metrics metricsRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "yêu cầu không hợp lệ: nội dung JSON không đúng định dạng")
			return
		}

		if err := workflow.ValidateQuestion(req.Question); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if req.Stream {
			streamChat(r.Context(), w, wf, metrics, req)
			return
		}
		bufferedChat(r.Context(), w, wf, metrics, req)
	}
}

func bufferedChat(ctx context.Context, w http.ResponseWriter, wf chatWorkflow, metrics metricsRecorder, req chatRequest) {
	answer, err := wf.Run(ctx, req.Question, req.History)
	if err != nil {
		slog.Error("handler.Chat: workflow failed", "error", err)
		writeError(w, http.StatusInternalServerError, "không thể xử lý yêu cầu, vui lòng thử lại sau")
		return
	}

	recordStatus(metrics, answer.Status)

	refs := answer.References
	if refs == nil {
		refs = []model.Reference{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(chatResponse{
		Answer:     answer.Text,
		References: refs,
		Status:     answer.Status,
	})
}

func streamChat(ctx context.Context, w http.ResponseWriter, wf chatWorkflow, metrics metricsRecorder, req chatRequest) {
	events, err := wf.RunStreaming(ctx, req.Question, req.History)
	if err != nil {
		slog.Error("handler.Chat: workflow failed before streaming began", "error", err)
		writeError(w, http.StatusInternalServerError, "không thể xử lý yêu cầu, vui lòng thử lại sau")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		slog.Error("handler.Chat: response writer does not support flushing")
		writeError(w, http.StatusInternalServerError, "máy chủ không hỗ trợ phản hồi dạng luồng")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	for ev := range events {
		if ev.Type == workflow.EventEnd && ev.Status != nil {
			recordStatus(metrics, *ev.Status)
		}
		fmt.Fprint(w, "data: ")
		enc.Encode(ev)
		fmt.Fprint(w, "\n")
		flusher.Flush()
	}
}

func recordStatus(metrics metricsRecorder, status model.Status) {
	if metrics == nil {
		return
	}
	if status == model.StatusNotFound || status == model.StatusInsufficient {
		metrics.IncrementNotEnoughInfoTrigger()
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorResponse{Error: message})
}
