package handler

import (
	"encoding/json"
	"net/http"
)

type endpointDescriptor struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

type serviceDescriptor struct {
	Name      string               `json:"name"`
	Version   string               `json:"version"`
	Endpoints []endpointDescriptor `json:"endpoints"`
}

// Root serves a short description of the service and its HTTP surface.
func Root(version string) http.HandlerFunc {
	body := serviceDescriptor{
		Name:    "rag-orchestrator",
		Version: version,
		Endpoints: []endpointDescriptor{
			{Method: http.MethodGet, Path: "/", Description: "this service descriptor"},
			{Method: http.MethodGet, Path: "/health", Description: "liveness and vector-store health"},
			{Method: http.MethodGet, Path: "/agents", Description: "index of the agents the workflow dispatches to"},
			{Method: http.MethodPost, Path: "/chat", Description: "ask a question; JSON or SSE-streaming response"},
		},
	}
	data, _ := json.Marshal(body)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}
