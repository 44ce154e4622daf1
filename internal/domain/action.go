package domain

// SwapToAccept is an inbound offer a strategy proposes to accept, with the
// uses count to spend and the goodness rating that selected it.
type SwapToAccept struct {
	Swap
	UsesToAccept   string
	GoodnessRating float64
}

// SwapToCreate is a new offer a strategy proposes to publish.
type SwapToCreate struct {
	Offered []SwapLeg
	Wanted  []SwapLeg
	Uses    string
}

// SwapToTerminate is one of the agent's own offers a strategy proposes to
// cancel, with a human-readable reason for the notification.
type SwapToTerminate struct {
	Swap
	TerminationReason string
}

// Actions is the full output of one strategy evaluation. The orchestrator
// executes all terminations, then all acceptances, then all creations.
type Actions struct {
	Terminate []SwapToTerminate
	Accept    []SwapToAccept
	Create    []SwapToCreate
}

// Empty reports whether the strategy proposed nothing this tick.
func (a Actions) Empty() bool {
	return len(a.Terminate) == 0 && len(a.Accept) == 0 && len(a.Create) == 0
}
