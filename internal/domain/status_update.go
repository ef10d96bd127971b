package domain

import "time"

// StatusUpdate is one immutable timeline entry for a ride.
type StatusUpdate struct {
	ID        string
	RideID    string
	Seq       int64 // Insertion order, breaks created_at ties
	Status    RideStatus
	Notes     string
	CreatedAt time.Time
}

// CurrentStage returns the stage implied by an ordered timeline.
// A ride without updates is in the accepted stage.
func CurrentStage(timeline []*StatusUpdate) RideStatus {
	if len(timeline) == 0 {
		return RideStatusAccepted
	}
	return timeline[len(timeline)-1].Status
}
