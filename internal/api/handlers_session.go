package api

import (
	"net/http"

	"github.com/mycelian/mycelian-crisis/internal/api/respond"
	"github.com/mycelian/mycelian-crisis/internal/api/validate"
	"github.com/mycelian/mycelian-crisis/internal/model"
)

// DefaultEndReason is recorded when a client ends a session without a reason.
const DefaultEndReason = "user_ended"

// StartSession POST /api/users/{userId}/sessions
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	u := h.user(w, r)
	if u == nil {
		return
	}
	var req struct {
		Severity model.Severity `json:"severity"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := validate.Severity(req.Severity); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	s, err := u.Sessions.StartSession(r.Context(), req.Severity)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, s)
}

// ActiveSession GET /api/users/{userId}/sessions/active
func (h *Handler) ActiveSession(w http.ResponseWriter, r *http.Request) {
	u := h.user(w, r)
	if u == nil {
		return
	}
	s := u.Sessions.Active()
	if s == nil {
		writeNoSession(w)
		return
	}
	respond.WriteJSON(w, http.StatusOK, s)
}

// SessionHistory GET /api/users/{userId}/sessions
func (h *Handler) SessionHistory(w http.ResponseWriter, r *http.Request) {
	u := h.user(w, r)
	if u == nil {
		return
	}
	hist, err := u.Sessions.History(r.Context())
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"sessions": hist, "count": len(hist)})
}

// ConnectCounselor POST /api/users/{userId}/sessions/active/counselor
func (h *Handler) ConnectCounselor(w http.ResponseWriter, r *http.Request) {
	u := h.user(w, r)
	if u == nil {
		return
	}
	var req struct {
		CounselorID string `json:"counselorId"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := validate.NonEmpty("counselorId", req.CounselorID); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	s := u.Sessions.ConnectCounselor(r.Context(), req.CounselorID)
	if s == nil {
		writeNoSession(w)
		return
	}
	respond.WriteJSON(w, http.StatusOK, s)
}

// AddMessage POST /api/users/{userId}/sessions/active/messages
func (h *Handler) AddMessage(w http.ResponseWriter, r *http.Request) {
	u := h.user(w, r)
	if u == nil {
		return
	}
	var msg model.Message
	if !decode(w, r, &msg) {
		return
	}
	if err := validate.Message(msg); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	stored, err := u.Sessions.AddMessage(r.Context(), msg)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	if stored == nil {
		writeNoSession(w)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, stored)
}

// EndSession POST /api/users/{userId}/sessions/active/end
// Ending without an active session is a no-op answered with 204.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	u := h.user(w, r)
	if u == nil {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := validate.Reason(req.Reason); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	if req.Reason == "" {
		req.Reason = DefaultEndReason
	}
	s := u.Sessions.EndSession(r.Context(), req.Reason)
	if s == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respond.WriteJSON(w, http.StatusOK, s)
}

// ContactEmergency POST /api/users/{userId}/sessions/active/emergency
func (h *Handler) ContactEmergency(w http.ResponseWriter, r *http.Request) {
	u := h.user(w, r)
	if u == nil {
		return
	}
	var req struct {
		ContactID string `json:"contactId"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := validate.NonEmpty("contactId", req.ContactID); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	contact, err := u.Sessions.ContactEmergencyServices(r.Context(), req.ContactID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	if contact == nil {
		writeNoSession(w)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"contacted": contact})
}
