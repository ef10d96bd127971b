package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medride/internal/domain"
	"medride/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	lifecycle *service.LifecycleService
	statusLog *service.StatusLogService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(lifecycle *service.LifecycleService, statusLog *service.StatusLogService) *RideHandler {
	return &RideHandler{
		lifecycle: lifecycle,
		statusLog: statusLog,
	}
}

// AdvanceStageRequest is the HTTP request body for advancing a ride.
type AdvanceStageRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// CompleteRideRequest is the HTTP request body for confirming completion.
type CompleteRideRequest struct {
	WaitingMinutes int    `json:"waiting_minutes,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// AdvanceStageResponse is the HTTP response for a stage advance.
type AdvanceStageResponse struct {
	Ride              RideResponse         `json:"ride"`
	Update            StatusUpdateResponse `json:"update"`
	AppointmentStatus string               `json:"appointment_status"`
}

// CompleteRideResponse is the HTTP response for a completion confirmation.
type CompleteRideResponse struct {
	Ride          RideResponse `json:"ride"`
	Party         string       `json:"party"`
	Recorded      bool         `json:"recorded"`
	Finalized     bool         `json:"finalized"`
	WaitingCharge float64      `json:"waiting_charge"`
}

// StageResponse is the HTTP response for the current stage.
type StageResponse struct {
	RideID string `json:"ride_id"`
	Stage  string `json:"stage"`
}

// List handles GET /v1/rides
func (h *RideHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	rides, err := h.lifecycle.ListRides(c.Request.Context(), actor, limitParam(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		response = append(response, toRideResponse(r))
	}
	respondJSON(c, http.StatusOK, response)
}

// Get handles GET /v1/rides/:id
func (h *RideHandler) Get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	ride, err := h.lifecycle.GetRide(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// Timeline handles GET /v1/rides/:id/timeline
func (h *RideHandler) Timeline(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	updates, err := h.statusLog.Timeline(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]StatusUpdateResponse, 0, len(updates))
	for _, u := range updates {
		response = append(response, toStatusUpdateResponse(u))
	}
	respondJSON(c, http.StatusOK, response)
}

// Stage handles GET /v1/rides/:id/stage
func (h *RideHandler) Stage(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	rideID := c.Param("id")
	stage, err := h.statusLog.CurrentStage(c.Request.Context(), rideID, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, StageResponse{RideID: rideID, Stage: string(stage)})
}

// Advance handles POST /v1/rides/:id/advance
func (h *RideHandler) Advance(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req AdvanceStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	result, err := h.lifecycle.AdvanceStage(c.Request.Context(), service.AdvanceStageRequest{
		RideID: c.Param("id"),
		Actor:  actor,
		Status: domain.RideStatus(req.Status),
		Notes:  req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, AdvanceStageResponse{
		Ride:              toRideResponse(result.Ride),
		Update:            toStatusUpdateResponse(result.Update),
		AppointmentStatus: string(result.AppointmentStatus),
	})
}

// Complete handles POST /v1/rides/:id/complete
func (h *RideHandler) Complete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req CompleteRideRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.lifecycle.MarkCompleted(c.Request.Context(), service.MarkCompletedRequest{
		RideID:         c.Param("id"),
		Actor:          actor,
		WaitingMinutes: req.WaitingMinutes,
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CompleteRideResponse{
		Ride:          toRideResponse(result.Ride),
		Party:         string(result.Party),
		Recorded:      result.Recorded,
		Finalized:     result.Finalized,
		WaitingCharge: result.WaitingCharge,
	})
}

// Cancel handles POST /v1/rides/:id/cancel
func (h *RideHandler) Cancel(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req CancelRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.lifecycle.CancelRide(c.Request.Context(), c.Param("id"), actor, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toCancelResponse(result))
}
