package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-crisis/internal/api/recovery"
)

// NewRouter wires every HTTP route.
func NewRouter(h *Handler, health *HealthHandler, log zerolog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware(log))

	router.HandleFunc("/api/health", health.CheckHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	user := router.PathPrefix("/api/users/{userId}").Subrouter()

	// Wellness feed and assessments
	user.HandleFunc("/moods", h.RecordMood).Methods("POST")
	user.HandleFunc("/activities", h.RecordActivity).Methods("POST")
	user.HandleFunc("/assessments", h.ListAssessments).Methods("GET")
	user.HandleFunc("/assessments", h.Assess).Methods("POST")
	user.HandleFunc("/assessments/current", h.CurrentAssessment).Methods("GET")

	// Sessions
	user.HandleFunc("/sessions", h.StartSession).Methods("POST")
	user.HandleFunc("/sessions", h.SessionHistory).Methods("GET")
	user.HandleFunc("/sessions/active", h.ActiveSession).Methods("GET")
	user.HandleFunc("/sessions/active/counselor", h.ConnectCounselor).Methods("POST")
	user.HandleFunc("/sessions/active/messages", h.AddMessage).Methods("POST")
	user.HandleFunc("/sessions/active/end", h.EndSession).Methods("POST")
	user.HandleFunc("/sessions/active/emergency", h.ContactEmergency).Methods("POST")

	// Safety plan
	user.HandleFunc("/safety-plan", h.GetSafetyPlan).Methods("GET")
	user.HandleFunc("/safety-plan", h.UpdateSafetyPlan).Methods("PUT")
	user.HandleFunc("/safety-plan/activate", h.ActivateSafetyPlan).Methods("POST")

	// Realtime bridge
	user.HandleFunc("/realtime", h.Realtime).Methods("GET")

	return router
}
