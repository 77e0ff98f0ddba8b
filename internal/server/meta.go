package server

import (
	"encoding/json"
	"net/http"
	"time"

	"civicdiff/internal/llm"
)

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"hasApiKey":     s.deps.Config.HasKey(),
		"defaultModel":  s.deps.Config.Model,
		"thinkingLevel": s.deps.Config.ThinkingLevel,
		"models":        llm.SupportedModels,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	mode := "demo-only"
	if s.deps.Config.HasKey() {
		mode = "live-capable"
	}
	packCount := 0
	if ids, err := s.deps.Repo.List(); err == nil {
		packCount = len(ids)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   Version,
		"mode":      mode,
		"model":     s.deps.Config.Model,
		"packs":     packCount,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	packCount := 0
	if ids, err := s.deps.Repo.List(); err == nil {
		packCount = len(ids)
	}
	entries := s.deps.Ledger.Entries()
	if len(entries) > 10 {
		entries = entries[:10]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":       s.deps.Ledger.Stats(),
		"packsOnDisk": packCount,
		"recentCalls": entries,
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled": s.deps.Ledger.Enabled(),
		"entries": s.deps.Ledger.Entries(),
	})
}

type logsActionRequest struct {
	Action string `json:"action"`
}

// handleLogsAction toggles or clears the provider call ledger.
func (s *Server) handleLogsAction(w http.ResponseWriter, r *http.Request) {
	var req logsActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body", Code: "validation"})
		return
	}
	switch req.Action {
	case "enable":
		s.deps.Ledger.SetEnabled(true)
	case "disable":
		s.deps.Ledger.SetEnabled(false)
	case "clear":
		s.deps.Ledger.Clear()
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "action must be enable, disable or clear", Code: "validation"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "enabled": s.deps.Ledger.Enabled()})
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	client := r.URL.Query().Get("clientId")
	if client == "" {
		client = clientID(r)
	}
	writeJSON(w, http.StatusOK, map[string]any{"budget": s.deps.Limiter.BudgetInfo(client)})
}
