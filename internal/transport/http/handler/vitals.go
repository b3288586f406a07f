package handler

import (
	"net/http"

	"github.com/go-patient-monitor/internal/application/vitals"
)

// VitalsHandler handles the wearer's vitals endpoints.
type VitalsHandler struct {
	svc vitals.Service
}

func NewVitalsHandler(svc vitals.Service) *VitalsHandler { return &VitalsHandler{svc: svc} }

func (h *VitalsHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Get(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *VitalsHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Location string `json:"location"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := h.svc.UpdateLocation(r.Context(), body.Location)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
