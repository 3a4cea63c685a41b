package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"castplane/internal/actions"
	"castplane/internal/plan"
	"castplane/pkg/api"
)

// ValidateUpload handles POST /uploads/validate.
// Clients call it before sending the file to blob storage.
func (h *Handlers) ValidateUpload(w http.ResponseWriter, r *http.Request) {
	var req api.ValidateUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.actions.ValidateUpload(r.Context(), actions.UploadCheck{
		FileSize: req.FileSize,
		Duration: req.Duration,
	}); err != nil {
		h.writeActionError(w, r, err)
		return
	}

	h.respondJson(w, http.StatusOK, api.SuccessResponse{Success: true})
}

// CreateProject handles POST /projects.
// It records the uploaded file and starts processing.
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req api.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	projectID, err := h.actions.Create(r.Context(), actions.CreateInput{
		FileURL:      req.FileURL,
		FileName:     req.FileName,
		FileSize:     req.FileSize,
		MimeType:     req.MimeType,
		FileDuration: req.FileDuration,
	})
	if err != nil {
		var dispatchErr *actions.DispatchError
		if errors.As(err, &dispatchErr) {
			status, message := classify(err)
			h.logActionError(r, status, err)
			h.respondJson(w, status, api.CreateProjectResponse{
				Success:   false,
				ProjectID: dispatchErr.ProjectID,
				Error:     message,
			})
			return
		}
		h.writeActionError(w, r, err)
		return
	}

	h.respondJson(w, http.StatusCreated, api.CreateProjectResponse{
		Success:   true,
		ProjectID: projectID,
	})
}

// GetProject handles GET /projects/{id}.
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	view, err := h.actions.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeActionError(w, r, err)
		return
	}

	p := view.Project
	detail := api.ProjectDetail{
		ID:           p.ID.String(),
		Name:         p.Name,
		FileName:     p.FileName,
		FileSize:     p.FileSize,
		FileDuration: p.FileDuration,
		FileFormat:   p.FileFormat,
		MimeType:     p.MimeType,
		Status:       string(p.Status),
		OriginalPlan: view.OriginalPlan.String(),
		CurrentPlan:  view.CurrentPlan.String(),
		CreatedAt:    p.CreatedAt,
		Artifacts:    kindNames(p.Artifacts.Present()),
		Missing:      kindNames(view.Missing),
		Locked:       kindNames(lockedFeatures(view.CurrentPlan)),
	}
	if p.ProcessingPlan != nil {
		detail.ProcessingPlan = p.ProcessingPlan.String()
	}

	h.respondJson(w, http.StatusOK, api.ProjectResponse{Success: true, Project: detail})
}

// DeleteProject handles DELETE /projects/{id}.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.actions.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeActionError(w, r, err)
		return
	}
	h.respondJson(w, http.StatusOK, api.SuccessResponse{Success: true})
}

// RenameProject handles PATCH /projects/{id}.
func (h *Handlers) RenameProject(w http.ResponseWriter, r *http.Request) {
	var req api.RenameProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.actions.Rename(r.Context(), r.PathValue("id"), req.DisplayName); err != nil {
		h.writeActionError(w, r, err)
		return
	}
	h.respondJson(w, http.StatusOK, api.SuccessResponse{Success: true})
}

// GenerateMissing handles POST /projects/{id}/generate-missing.
// A partially dispatched batch answers 502 with both lists so the client can
// retry the failed jobs.
func (h *Handlers) GenerateMissing(w http.ResponseWriter, r *http.Request) {
	result, err := h.actions.GenerateMissingFeatures(r.Context(), r.PathValue("id"))
	if err != nil && result == nil {
		h.writeActionError(w, r, err)
		return
	}

	resp := api.GenerateMissingResponse{
		Success:   err == nil,
		Generated: kindNames(result.Generated),
		Failed:    kindNames(result.Failed),
		Message:   result.Message,
	}
	status := http.StatusOK
	if err != nil {
		status, resp.Error = classify(err)
		h.logActionError(r, status, err)
	}
	h.respondJson(w, status, resp)
}

// RetryJob handles POST /projects/{id}/retry.
func (h *Handlers) RetryJob(w http.ResponseWriter, r *http.Request) {
	var req api.RetryJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.actions.RetryJob(r.Context(), r.PathValue("id"), req.Job); err != nil {
		h.writeActionError(w, r, err)
		return
	}
	h.respondJson(w, http.StatusAccepted, api.SuccessResponse{Success: true})
}

// lockedFeatures lists tier-gated kinds the tier does not entitle.
func lockedFeatures(t plan.Tier) []plan.ArtifactKind {
	var out []plan.ArtifactKind
	for _, k := range plan.ArtifactKinds {
		if k.TierGated() && !plan.Entitles(t, k) {
			out = append(out, k)
		}
	}
	return out
}
