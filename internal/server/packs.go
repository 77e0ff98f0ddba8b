package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"civicdiff/internal/packs"
)

type uploadRequest struct {
	PackID string       `json:"packId"`
	Files  []packs.File `json:"files"`
}

type uploadResponse struct {
	Success      bool   `json:"success"`
	PackID       string `json:"packId"`
	FilesWritten int    `json:"filesWritten"`
	Message      string `json:"message"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body", Code: "validation"})
		return
	}
	if req.PackID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "packId is required", Code: "validation"})
		return
	}
	if len(req.Files) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "files are required", Code: "validation"})
		return
	}

	id, written, err := s.deps.Repo.Save(req.PackID, req.Files)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Success:      true,
		PackID:       id,
		FilesWritten: written,
		Message:      fmt.Sprintf("pack %q saved with %d files", id, written),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	packID := r.URL.Query().Get("packId")
	if packID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "packId is required", Code: "validation"})
		return
	}
	archive, err := s.deps.Repo.Download(packID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, archive)
}

func (s *Server) handleListPacks(w http.ResponseWriter, r *http.Request) {
	ids, err := s.deps.Repo.List()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"packs": ids})
}
