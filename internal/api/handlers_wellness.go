package api

import (
	"net/http"

	"github.com/mycelian/mycelian-crisis/internal/api/respond"
	"github.com/mycelian/mycelian-crisis/internal/api/validate"
	"github.com/mycelian/mycelian-crisis/internal/model"
)

// SourceOperator marks triggers submitted through the assessment endpoint.
const SourceOperator = "operator"

type assessmentResponse struct {
	Assessment *model.Assessment `json:"assessment"`
}

// RecordMood POST /api/users/{userId}/moods
func (h *Handler) RecordMood(w http.ResponseWriter, r *http.Request) {
	u := h.user(w, r)
	if u == nil {
		return
	}
	var entry model.MoodEntry
	if !decode(w, r, &entry) {
		return
	}
	if err := validate.Mood(entry); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	a, err := h.engine.RecordMood(r.Context(), u.ID, entry)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusAccepted, assessmentResponse{Assessment: a})
}

// RecordActivity POST /api/users/{userId}/activities
func (h *Handler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	u := h.user(w, r)
	if u == nil {
		return
	}
	var activity model.Activity
	if !decode(w, r, &activity) {
		return
	}
	if err := validate.Activity(activity); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	a, err := h.engine.RecordActivity(r.Context(), u.ID, activity)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusAccepted, assessmentResponse{Assessment: a})
}

// ListAssessments GET /api/users/{userId}/assessments
func (h *Handler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	u := h.user(w, r)
	if u == nil {
		return
	}
	hist := u.Assessor.History()
	respond.WriteJSON(w, http.StatusOK, map[string]any{"assessments": hist, "count": len(hist)})
}

// CurrentAssessment GET /api/users/{userId}/assessments/current
func (h *Handler) CurrentAssessment(w http.ResponseWriter, r *http.Request) {
	u := h.user(w, r)
	if u == nil {
		return
	}
	cur := u.Assessor.Current()
	if cur == nil {
		respond.WriteNotFound(w, "no assessments recorded")
		return
	}
	respond.WriteJSON(w, http.StatusOK, cur)
}

// Assess POST /api/users/{userId}/assessments
func (h *Handler) Assess(w http.ResponseWriter, r *http.Request) {
	u := h.user(w, r)
	if u == nil {
		return
	}
	var req struct {
		Triggers []model.Trigger `json:"triggers"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := validate.Triggers(req.Triggers); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	now := h.clock.Now()
	for i := range req.Triggers {
		if req.Triggers[i].Source == "" {
			req.Triggers[i].Source = SourceOperator
		}
		if req.Triggers[i].ObservedAt.IsZero() {
			req.Triggers[i].ObservedAt = now
		}
	}
	a, err := u.Assessor.Assess(r.Context(), req.Triggers)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, a)
}
