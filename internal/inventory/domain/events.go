package domain

// ReservationCommitted is published after a reservation's decrements commit.
type ReservationCommitted struct {
	ReservationID string              `json:"reservation_id"`
	Consumed      map[Kind][]Consumed `json:"consumed"`
}

// ReservationRejected is published when a reservation aborts with no effect.
type ReservationRejected struct {
	ReservationID string `json:"reservation_id"`
	Kind          Kind   `json:"kind,omitempty"`
	Reason        string `json:"reason"`
}
