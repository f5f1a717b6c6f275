package handler

import (
	"encoding/json"
	"net/http"
)

type agentDescriptor struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type agentsResponse struct {
	Flow   string            `json:"flow"`
	Agents []agentDescriptor `json:"agents"`
}

// Agents serves an index of the nine agents the workflow dispatches to,
// and a one-line description of how a request moves through them.
func Agents() http.HandlerFunc {
	body := agentsResponse{
		Flow: "Classifier, FAQ Responder and Document Retriever run in parallel; " +
			"the decision router then picks exactly one terminal agent: a scripted " +
			"responder for CHATTER/REPORTER/OTHER, the FAQ answer when confident enough, " +
			"the Generator when graded documents qualify, or Not-Enough-Info otherwise.",
		Agents: []agentDescriptor{
			{Name: "classifier", Role: "resolves follow-up questions and assigns a routing label"},
			{Name: "faq_responder", Role: "answers directly when a single FAQ entry is confident enough"},
			{Name: "document_retriever", Role: "vector-searches the document collection for candidates"},
			{Name: "grader", Role: "reranks document candidates and filters by dual thresholds"},
			{Name: "generator", Role: "streams a grounded answer composed from graded passages"},
			{Name: "not_enough_info_responder", Role: "declines gracefully when nothing qualifies"},
			{Name: "chatter_responder", Role: "handles complaints and negative-affect messages"},
			{Name: "reporter_responder", Role: "acknowledges system-failure reports"},
			{Name: "other_responder", Role: "declines questions outside the service's domain"},
		},
	}
	data, _ := json.Marshal(body)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}
