package handler

import (
	"net/http"

	"github.com/go-patient-monitor/internal/application/auth"
)

// SessionHandler handles session endpoints.
type SessionHandler struct {
	svc auth.Service
}

func NewSessionHandler(svc auth.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		Bearer: result.Token,
		UserID: result.UserID,
		Email:  result.Email,
		Role:   result.Role,
	})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.svc.Logout(r.Context())
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}
