package domain

import "time"

// EarningStatus represents the payout status of an earning.
type EarningStatus string

const (
	EarningStatusPending EarningStatus = "pending"
	EarningStatusPaid    EarningStatus = "paid"
)

// Earning is a rider's earning for a completed ride.
type Earning struct {
	ID            string
	RiderID       string
	RideID        string
	Amount        float64
	Commission    float64
	NetAmount     float64
	PaymentStatus EarningStatus
	PaidAt        time.Time
	CreatedAt     time.Time
}
