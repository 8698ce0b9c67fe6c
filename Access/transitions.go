package Access

import "ClientMax/Models"

var transitions = map[Models.AssignmentStatus][]Models.AssignmentStatus{
	Models.StatusPending:    {Models.StatusInProgress, Models.StatusCancelled},
	Models.StatusInProgress: {Models.StatusCompleted, Models.StatusCancelled},
}

// AllowedTransitions returns the statuses an operator is offered from the
// given one. Terminal and unknown statuses offer nothing.
func AllowedTransitions(from Models.AssignmentStatus) []Models.AssignmentStatus {
	next := transitions[from]
	out := make([]Models.AssignmentStatus, len(next))
	copy(out, next)
	return out
}

// IsOffered reports whether to is among the transitions offered from from.
// The store does not enforce this; PATCH accepts any valid status.
func IsOffered(from, to Models.AssignmentStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
