// Package api exposes the crisis engine over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-crisis/internal/api/respond"
	"github.com/mycelian/mycelian-crisis/internal/api/validate"
	"github.com/mycelian/mycelian-crisis/internal/clock"
	"github.com/mycelian/mycelian-crisis/internal/crisis"
	"github.com/mycelian/mycelian-crisis/internal/model"
	"github.com/mycelian/mycelian-crisis/internal/realtime"
)

const maxBodyBytes = 1 << 20

// Handler serves the per-user crisis endpoints.
type Handler struct {
	engine *crisis.Engine
	hub    *realtime.Hub
	clock  clock.Clock
	log    zerolog.Logger
}

func NewHandler(engine *crisis.Engine, hub *realtime.Hub, clk clock.Clock, log zerolog.Logger) *Handler {
	return &Handler{engine: engine, hub: hub, clock: clk, log: log}
}

// user resolves the {userId} path variable to the user's components. It
// writes the error response and returns nil on failure.
func (h *Handler) user(w http.ResponseWriter, r *http.Request) *crisis.User {
	userID := mux.Vars(r)["userId"]
	if err := validate.UserID(userID); err != nil {
		respond.WriteDomainError(w, err)
		return nil
	}
	u, err := h.engine.User(r.Context(), userID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return nil
	}
	return u
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		respond.WriteBadRequest(w, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	return true
}

func writeNoSession(w http.ResponseWriter) {
	respond.WriteNotFound(w, "no active session")
}

// Realtime GET /api/users/{userId}/realtime
func (h *Handler) Realtime(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if err := validate.UserID(userID); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	h.hub.Serve(w, r, userID)
}

// errNoPlan is returned for plan reads and activations when the user has none.
var errNoPlan = fmt.Errorf("%w for this user", model.ErrNoSafetyPlan)
