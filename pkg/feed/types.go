// Package feed defines the engine-facing shapes of the two upstream data
// feeds (schedule/score and probabilistic market) and the HTTP clients
// that fetch them. Transport details stay inside this package; everything
// downstream consumes the records defined here.
package feed

import "time"

// EventStatus is the lifecycle state of a scheduled contest.
type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventLive      EventStatus = "live"
	EventFinal     EventStatus = "final"
)

// LiveScore is the running score of an in-progress event.
type LiveScore struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Event is one real-world contest from the schedule feed. The engine
// never mutates events; they are replaced wholesale each cycle.
type Event struct {
	EventID      string      `json:"event_id"`
	Sport        string      `json:"sport"`
	ParticipantA string      `json:"participant_a"`
	ParticipantB string      `json:"participant_b"`
	StartTime    time.Time   `json:"start_time"`
	Status       EventStatus `json:"status"`
	LiveScore    *LiveScore  `json:"live_score,omitempty"`
}

// ContractStatus is the lifecycle state of a market contract.
type ContractStatus string

const (
	ContractActive ContractStatus = "active"
	ContractClosed ContractStatus = "closed"
)

// MarketContract is one tradable yes/no instrument from the market feed.
// YesPrice and NoPrice are probabilities in [0,1]; feeds that quote in
// integer cents are converted by MarketClient before a contract leaves
// this package. A zero price is never a placeholder here: it means the
// upstream quote was missing or malformed and the analyzer will exclude
// the contract with a diagnostic.
type MarketContract struct {
	ContractID   string         `json:"contract_id"`
	SportHint    string         `json:"sport_hint,omitempty"`
	Title        string         `json:"title"`
	YesPrice     float64        `json:"yes_price"`
	NoPrice      float64        `json:"no_price"`
	Volume       float64        `json:"volume"`
	OpenInterest *float64       `json:"open_interest,omitempty"`
	CloseTime    time.Time      `json:"close_time"`
	Status       ContractStatus `json:"status"`
}

// Window bounds a schedule query in time.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// Snapshot is one fetched feed result, cached for TTL-based reuse and as
// the stale fallback when a later fetch fails.
type Snapshot struct {
	Events    []Event          `json:"events,omitempty"`
	Contracts []MarketContract `json:"contracts,omitempty"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// FreshWithin reports whether the snapshot was fetched inside ttl.
func (s *Snapshot) FreshWithin(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.FetchedAt) <= ttl
}
