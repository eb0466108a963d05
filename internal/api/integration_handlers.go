package api

import (
	"net/http"

	"github.com/technosupport/secops/internal/integration"
)

type IntegrationHandler struct {
	Sessions Sessions
}

func NewIntegrationHandler(s Sessions) *IntegrationHandler {
	return &IntegrationHandler{Sessions: s}
}

// GET /api/v1/integration/config
func (h *IntegrationHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(w, r, h.Sessions)
	if !ok {
		return
	}
	st := f.State()
	if st.Config == nil {
		respondError(w, http.StatusNotFound, integration.MsgNotConfigured)
		return
	}
	respondJSON(w, http.StatusOK, st.Config)
}

// POST /api/v1/integration/config/reload
func (h *IntegrationHandler) ReloadConfig(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(w, r, h.Sessions)
	if !ok {
		return
	}
	if !f.LoadConfig(r.Context()) {
		respondError(w, http.StatusNotFound, integration.MsgNotConfigured)
		return
	}
	respondJSON(w, http.StatusOK, f.State().Config)
}

// GET /api/v1/integration/state
func (h *IntegrationHandler) GetState(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(w, r, h.Sessions)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, f.State())
}

// DELETE /api/v1/integration/error
func (h *IntegrationHandler) ClearError(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(w, r, h.Sessions)
	if !ok {
		return
	}
	f.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/projects/{projectID}/integration/status
func (h *IntegrationHandler) Status(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(w, r, h.Sessions)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectID")
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, f.CheckIntegrationStatus(r.Context(), projectID))
}

// POST /api/v1/projects/{projectID}/integration/refresh
func (h *IntegrationHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(w, r, h.Sessions)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectID")
	if !ok {
		return
	}
	st := f.RefreshIntegration(r.Context(), projectID)
	respondJSON(w, http.StatusOK, map[string]any{
		"integration_status": st,
		"cameras":            f.State().Cameras,
	})
}

// POST /api/v1/projects/{projectID}/integration/sync
func (h *IntegrationHandler) Sync(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(w, r, h.Sessions)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectID")
	if !ok {
		return
	}

	n, synced := f.SyncCameras(r.Context(), projectID)
	if !synced {
		status := http.StatusBadGateway
		if st := f.State().IntegrationStatus; st != nil && st.Status != integration.StatusConnected {
			status = http.StatusConflict
		}
		respondJSON(w, status, map[string]any{
			"error":  failureMessage(f, "Camera sync failed"),
			"synced": n,
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"synced": n})
}
