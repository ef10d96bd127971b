package domain

import "time"

// Party is a role whose confirmation is needed to finalize a ride.
type Party string

const (
	PartyRider   Party = "rider"
	PartyPatient Party = "patient"
)

// DefaultCompletionParties are the parties required to finalize a ride.
var DefaultCompletionParties = []Party{PartyRider, PartyPatient}

// CompletionQuorum maps each party to the time it confirmed completion.
// A quorum is complete once every required party has confirmed.
type CompletionQuorum struct {
	Required  []Party
	Confirmed map[Party]time.Time
}

// NewCompletionQuorum creates a quorum; with no parties it requires DefaultCompletionParties.
func NewCompletionQuorum(required ...Party) CompletionQuorum {
	if len(required) == 0 {
		required = DefaultCompletionParties
	}
	req := make([]Party, len(required))
	copy(req, required)
	return CompletionQuorum{
		Required:  req,
		Confirmed: make(map[Party]time.Time),
	}
}

// Confirm records a party's confirmation and reports whether it was new.
func (q *CompletionQuorum) Confirm(p Party, at time.Time) bool {
	if q.Confirmed == nil {
		q.Confirmed = make(map[Party]time.Time)
	}
	if _, ok := q.Confirmed[p]; ok {
		return false
	}
	if len(q.Required) == 0 {
		q.Required = DefaultCompletionParties
	}
	q.Confirmed[p] = at
	return true
}

// Has reports whether the party has confirmed.
func (q CompletionQuorum) Has(p Party) bool {
	_, ok := q.Confirmed[p]
	return ok
}

// Complete reports whether every required party has confirmed.
func (q CompletionQuorum) Complete() bool {
	required := q.Required
	if len(required) == 0 {
		required = DefaultCompletionParties
	}
	for _, p := range required {
		if !q.Has(p) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the quorum.
func (q CompletionQuorum) Clone() CompletionQuorum {
	out := CompletionQuorum{
		Required:  append([]Party(nil), q.Required...),
		Confirmed: make(map[Party]time.Time, len(q.Confirmed)),
	}
	for p, at := range q.Confirmed {
		out.Confirmed[p] = at
	}
	return out
}
