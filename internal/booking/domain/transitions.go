package domain

// statusTransitions is the single source of truth for booking status moves.
// Cancellation is only reachable before completion; completed work can only
// be confirmed.
var statusTransitions = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {StatusConfirmed},
	StatusConfirmed:  {},
	StatusCancelled:  {},
	StatusNoShow:     {},
}

func CanTransition(from, to Status) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// cancellationTransitions drives the refund sub-machine on a cancelled
// booking: cancelled -> processing_refund -> refund_completed.
var cancellationTransitions = map[CancellationState]CancellationState{
	CancellationCancelled:        CancellationProcessingRefund,
	CancellationProcessingRefund: CancellationRefundCompleted,
}

func NextCancellationState(current CancellationState) (CancellationState, bool) {
	next, ok := cancellationTransitions[current]
	return next, ok
}
