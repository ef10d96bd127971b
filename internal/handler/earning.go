package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medride/internal/service"
)

// EarningHandler handles HTTP requests for rider earnings.
type EarningHandler struct {
	earnings *service.EarningService
}

// NewEarningHandler creates a new EarningHandler.
func NewEarningHandler(earnings *service.EarningService) *EarningHandler {
	return &EarningHandler{earnings: earnings}
}

// EarningsResponse lists earnings with totals.
type EarningsResponse struct {
	Earnings        []EarningResponse `json:"earnings"`
	TotalAmount     float64           `json:"total_amount"`
	TotalCommission float64           `json:"total_commission"`
	TotalNet        float64           `json:"total_net"`
}

// List handles GET /v1/earnings
func (h *EarningHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	summary, err := h.earnings.ListForRider(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response := EarningsResponse{
		Earnings:        make([]EarningResponse, 0, len(summary.Earnings)),
		TotalAmount:     summary.TotalAmount,
		TotalCommission: summary.TotalCommission,
		TotalNet:        summary.TotalNet,
	}
	for _, e := range summary.Earnings {
		response.Earnings = append(response.Earnings, toEarningResponse(e))
	}
	respondJSON(c, http.StatusOK, response)
}
