package model

import "errors"

// Sentinel errors for the market core. All of them are recoverable at the
// operator/participant boundary; none should terminate the process.
var (
	// ErrInvalidBid rejects a malformed bid (negative amount) with no state change.
	ErrInvalidBid = errors.New("invalid bid")

	// ErrAlreadySubmitted signals that the role already holds a bid for the
	// active period. Informational: the duplicate is ignored.
	ErrAlreadySubmitted = errors.New("bid already submitted for this period")

	// ErrInfeasibleDispatch means supply plus transfer headroom cannot meet
	// load. The clearing aborts and the period stays clearable.
	ErrInfeasibleDispatch = errors.New("dispatch infeasible: supply cannot meet load")

	// ErrAlreadyCleared rejects clearing or settling a period twice.
	ErrAlreadyCleared = errors.New("period already cleared")

	// ErrInvalidTransition rejects a round advance before the current round
	// is complete, or any transition past the final round.
	ErrInvalidTransition = errors.New("invalid game transition")

	// ErrUnknownParticipant rejects actions from identities that never joined
	// or are absent from the assignment table.
	ErrUnknownParticipant = errors.New("unknown participant")
)
