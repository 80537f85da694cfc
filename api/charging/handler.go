// Package charging exposes the negotiation service over HTTP.
package charging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kilianp07/chargeflex/core/logger"
	"github.com/kilianp07/chargeflex/core/model"
	"github.com/kilianp07/chargeflex/core/negotiation"
)

// DefaultChargerCount is reported when no charger count is configured.
const DefaultChargerCount = 4

// Service is the part of the negotiator the handlers need.
type Service interface {
	NegotiateText(ctx context.Context, req negotiation.Request) (model.ChargingPlan, error)
	Snapshot() []model.ChargingPlan
	GridStressed() bool
	SetGridStressed(stressed bool) bool
	Nudge(ctx context.Context, userID string) (negotiation.NudgeResult, error)
}

// Status is the dashboard view of the station.
type Status struct {
	ChargerCount   int                  `json:"charger_count"`
	ChargersInUse  int                  `json:"chargers_in_use"`
	IsGridStressed bool                 `json:"is_grid_stressed"`
	PriorityQueue  []model.ChargingPlan `json:"priority_queue"`
}

// NegotiateResponse is returned by POST /api/negotiate.
type NegotiateResponse struct {
	Status string             `json:"status"`
	Plan   model.ChargingPlan `json:"plan"`
}

// NudgeResponse is returned by POST /api/nudge/{user_id}.
type NudgeResponse struct {
	Status        string `json:"status"`
	UserID        string `json:"user_id"`
	PointsAwarded int    `json:"points_awarded"`
}

type handler struct {
	svc      Service
	chargers int
	log      logger.Logger
}

// StatusOf builds the dashboard view from svc.
func StatusOf(svc Service, chargers int) Status {
	q := svc.Snapshot()
	if q == nil {
		q = []model.ChargingPlan{}
	}
	return Status{
		ChargerCount:   chargers,
		ChargersInUse:  len(q),
		IsGridStressed: svc.GridStressed(),
		PriorityQueue:  q,
	}
}

// Register mounts the charging routes on mux.
func Register(mux *http.ServeMux, svc Service, chargers int, log logger.Logger) {
	if chargers <= 0 {
		chargers = DefaultChargerCount
	}
	h := &handler{svc: svc, chargers: chargers, log: logger.OrNop(log)}
	mux.HandleFunc("POST /api/negotiate", h.negotiate)
	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("POST /api/grid/stress", h.grid(true))
	mux.HandleFunc("POST /api/grid/stabilize", h.grid(false))
	mux.HandleFunc("POST /api/nudge/{user_id}", h.nudge)
}

// NewHandler returns a mux serving only the charging routes.
func NewHandler(svc Service, chargers int, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	Register(mux, svc, chargers, log)
	return mux
}

func (h *handler) negotiate(w http.ResponseWriter, r *http.Request) {
	var req negotiation.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	plan, err := h.svc.NegotiateText(r.Context(), req)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, negotiation.ErrEmptyUserID) {
			code = http.StatusBadRequest
		}
		http.Error(w, err.Error(), code)
		return
	}
	writeJSON(w, http.StatusOK, NegotiateResponse{Status: "plan_committed", Plan: plan})
}

func (h *handler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusOf(h.svc, h.chargers))
}

func (h *handler) grid(stressed bool) http.HandlerFunc {
	status := "grid_stabilized"
	if stressed {
		status = "grid_stressed"
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		h.svc.SetGridStressed(stressed)
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	}
}

func (h *handler) nudge(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	res, err := h.svc.Nudge(r.Context(), userID)
	if err != nil {
		if errors.Is(err, negotiation.ErrNoActivePlan) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, NudgeResponse{Status: "nudge_sent", UserID: res.UserID, PointsAwarded: res.PointsAwarded})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
