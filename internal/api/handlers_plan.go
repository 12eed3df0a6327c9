package api

import (
	"net/http"

	"github.com/mycelian/mycelian-crisis/internal/api/respond"
	"github.com/mycelian/mycelian-crisis/internal/api/validate"
	"github.com/mycelian/mycelian-crisis/internal/model"
)

// GetSafetyPlan GET /api/users/{userId}/safety-plan
func (h *Handler) GetSafetyPlan(w http.ResponseWriter, r *http.Request) {
	u := h.user(w, r)
	if u == nil {
		return
	}
	plan := u.Plan.Get()
	if plan == nil {
		respond.WriteDomainError(w, errNoPlan)
		return
	}
	respond.WriteJSON(w, http.StatusOK, plan)
}

// UpdateSafetyPlan PUT /api/users/{userId}/safety-plan
// Fields omitted from the body are left unchanged.
func (h *Handler) UpdateSafetyPlan(w http.ResponseWriter, r *http.Request) {
	u := h.user(w, r)
	if u == nil {
		return
	}
	var upd model.SafetyPlanUpdate
	if !decode(w, r, &upd) {
		return
	}
	if err := validate.SafetyPlan(upd); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	plan, err := u.Plan.Update(r.Context(), upd)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, plan)
}

// ActivateSafetyPlan POST /api/users/{userId}/safety-plan/activate
func (h *Handler) ActivateSafetyPlan(w http.ResponseWriter, r *http.Request) {
	u := h.user(w, r)
	if u == nil {
		return
	}
	plan := u.Sessions.ActivateSafetyPlan(r.Context())
	if plan == nil {
		respond.WriteDomainError(w, errNoPlan)
		return
	}
	respond.WriteJSON(w, http.StatusOK, plan)
}
