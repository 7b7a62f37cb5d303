package model

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusCancelled}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Transitions maps a status to the statuses it may move to.
type Transitions map[Status][]Status

// StrictTransitions only lets a pending appointment be confirmed or cancelled.
var StrictTransitions = Transitions{
	StatusPending: {StatusConfirmed, StatusCancelled},
}

// LenientTransitions additionally lets a decided appointment flip between
// confirmed and cancelled. Nothing ever returns to pending.
var LenientTransitions = Transitions{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
	StatusCancelled: {StatusConfirmed},
}

func (t Transitions) Allows(from, to Status) bool {
	for _, s := range t[from] {
		if s == to {
			return true
		}
	}
	return false
}
