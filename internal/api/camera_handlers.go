package api

import (
	"encoding/json"
	"net/http"

	"github.com/technosupport/secops/internal/cameras"
)

type CameraHandler struct {
	Sessions Sessions
}

func NewCameraHandler(s Sessions) *CameraHandler {
	return &CameraHandler{Sessions: s}
}

// GET /api/v1/projects/{projectID}/cameras
func (h *CameraHandler) List(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(w, r, h.Sessions)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectID")
	if !ok {
		return
	}

	list := f.LoadCameras(r.Context(), projectID)
	respondJSON(w, http.StatusOK, map[string]any{"cameras": list, "count": len(list)})
}

// POST /api/v1/projects/{projectID}/cameras
func (h *CameraHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(w, r, h.Sessions)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectID")
	if !ok {
		return
	}

	var in cameras.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cam := f.AddCamera(r.Context(), projectID, in)
	if cam == nil {
		respondError(w, http.StatusInternalServerError, failureMessage(f, "Camera could not be added"))
		return
	}
	respondJSON(w, http.StatusCreated, cam)
}

// PATCH /api/v1/projects/{projectID}/cameras/{cameraID}
func (h *CameraHandler) Update(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(w, r, h.Sessions)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectID")
	if !ok {
		return
	}
	cameraID, ok := uuidParam(w, r, "cameraID")
	if !ok {
		return
	}

	var patch cameras.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := patch.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !f.UpdateCameraSettings(r.Context(), projectID, cameraID, patch) {
		respondError(w, http.StatusInternalServerError, failureMessage(f, "Camera settings could not be updated"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// PUT /api/v1/projects/{projectID}/cameras/{cameraID}/status
func (h *CameraHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(w, r, h.Sessions)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectID")
	if !ok {
		return
	}
	cameraID, ok := uuidParam(w, r, "cameraID")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	status, err := cameras.ParseStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !f.UpdateCameraStatus(r.Context(), projectID, cameraID, status) {
		respondError(w, http.StatusInternalServerError, failureMessage(f, "Camera status could not be updated"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

// DELETE /api/v1/projects/{projectID}/cameras/{cameraID}
func (h *CameraHandler) Delete(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(w, r, h.Sessions)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectID")
	if !ok {
		return
	}
	cameraID, ok := uuidParam(w, r, "cameraID")
	if !ok {
		return
	}

	if !f.DeleteCamera(r.Context(), projectID, cameraID) {
		respondError(w, http.StatusInternalServerError, failureMessage(f, "Camera could not be deleted"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/projects/{projectID}/cameras/{cameraID}/urls
// Cameras not yet in the session cache trigger one project reload.
func (h *CameraHandler) URLs(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(w, r, h.Sessions)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectID")
	if !ok {
		return
	}
	cameraID, ok := uuidParam(w, r, "cameraID")
	if !ok {
		return
	}

	stream, found := f.StreamURL(cameraID)
	if !found {
		f.LoadCameras(r.Context(), projectID)
		stream, found = f.StreamURL(cameraID)
	}
	if !found {
		respondError(w, http.StatusNotFound, "Camera not found")
		return
	}
	snapshot, _ := f.SnapshotURL(cameraID)

	respondJSON(w, http.StatusOK, map[string]string{
		"stream_url":   stream,
		"snapshot_url": snapshot,
	})
}
