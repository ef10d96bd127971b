package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"medride/internal/service"
)

// AppointmentHandler handles HTTP requests for appointments.
type AppointmentHandler struct {
	appointments *service.AppointmentService
	lifecycle    *service.LifecycleService
	invoices     *service.InvoiceService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(appointments *service.AppointmentService, lifecycle *service.LifecycleService, invoices *service.InvoiceService) *AppointmentHandler {
	return &AppointmentHandler{
		appointments: appointments,
		lifecycle:    lifecycle,
		invoices:     invoices,
	}
}

// BookAppointmentRequest is the HTTP request body for booking an appointment.
type BookAppointmentRequest struct {
	HospitalName        string    `json:"hospital_name"`
	HospitalAddress     string    `json:"hospital_address"`
	AppointmentDate     time.Time `json:"appointment_date"`
	EstimatedDuration   string    `json:"estimated_duration,omitempty"`
	PickupLocation      string    `json:"pickup_location"`
	SpecialInstructions string    `json:"special_instructions,omitempty"`
}

// QuoteRequest is the HTTP request body for quoting or accepting an appointment.
type QuoteRequest struct {
	EnhancedSupport bool `json:"enhanced_support"`
}

// CancelRequest is the HTTP request body for cancelling.
type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// AcceptResponse is the HTTP response for accepting an appointment.
type AcceptResponse struct {
	Appointment AppointmentResponse `json:"appointment"`
	Ride        RideResponse        `json:"ride"`
}

// CancelResponse is the HTTP response for a cancellation.
type CancelResponse struct {
	Appointment AppointmentResponse `json:"appointment"`
	Ride        *RideResponse       `json:"ride,omitempty"`
}

// Book handles POST /v1/appointments
func (h *AppointmentHandler) Book(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	appt, err := h.appointments.Book(c.Request.Context(), service.BookRequest{
		Actor:               actor,
		HospitalName:        req.HospitalName,
		HospitalAddress:     req.HospitalAddress,
		AppointmentDate:     req.AppointmentDate,
		EstimatedDuration:   req.EstimatedDuration,
		PickupLocation:      req.PickupLocation,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toAppointmentResponse(appt))
}

// List handles GET /v1/appointments
func (h *AppointmentHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	list, err := h.appointments.ListForUser(c.Request.Context(), actor, limitParam(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toAppointmentList(list))
}

// ListAvailable handles GET /v1/appointments/available
func (h *AppointmentHandler) ListAvailable(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	list, err := h.appointments.ListAvailable(c.Request.Context(), actor, limitParam(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toAppointmentList(list))
}

// Get handles GET /v1/appointments/:id
func (h *AppointmentHandler) Get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	appt, err := h.appointments.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toAppointmentResponse(appt))
}

// Quote handles POST /v1/appointments/:id/quote
func (h *AppointmentHandler) Quote(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req QuoteRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	q, err := h.lifecycle.Quote(c.Request.Context(), c.Param("id"), actor, req.EnhancedSupport)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toQuoteResponse(q))
}

// Accept handles POST /v1/appointments/:id/accept
func (h *AppointmentHandler) Accept(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req QuoteRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.lifecycle.QuoteAndAccept(c.Request.Context(), c.Param("id"), actor, req.EnhancedSupport)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, AcceptResponse{
		Appointment: toAppointmentResponse(result.Appointment),
		Ride:        toRideResponse(result.Ride),
	})
}

// Cancel handles POST /v1/appointments/:id/cancel
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req CancelRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.lifecycle.CancelAppointment(c.Request.Context(), service.CancelRequest{
		AppointmentID: c.Param("id"),
		Actor:         actor,
		Reason:        req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toCancelResponse(result))
}

// Invoice handles GET /v1/appointments/:id/invoice
// ?format=text renders the printable invoice.
func (h *AppointmentHandler) Invoice(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	inv, err := h.invoices.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("format") == "text" {
		c.String(http.StatusOK, h.invoices.Format(inv))
		return
	}
	respondJSON(c, http.StatusOK, toInvoiceResponse(inv))
}

// Delete handles DELETE /v1/admin/appointments/:id
func (h *AppointmentHandler) Delete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if err := h.appointments.Delete(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func toCancelResponse(result *service.CancelResponse) CancelResponse {
	resp := CancelResponse{Appointment: toAppointmentResponse(result.Appointment)}
	if result.Ride != nil {
		ride := toRideResponse(result.Ride)
		resp.Ride = &ride
	}
	return resp
}

// bindOptionalJSON binds the body when one is sent; an empty body keeps the zero value.
func bindOptionalJSON(c *gin.Context, dest any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dest); err != nil {
		respondBadRequest(c, "invalid request body")
		return false
	}
	return true
}
