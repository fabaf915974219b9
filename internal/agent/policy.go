package agent

// Reason explains why the loop stopped.
type Reason int

const (
	// ReasonIdle: an iteration neither explored nor committed. The work is
	// either finished or the model is stuck.
	ReasonIdle Reason = iota
	// ReasonOscillation: the retry counter exceeded the threshold.
	ReasonOscillation
	// ReasonMaxIterations: the iteration ceiling was reached.
	ReasonMaxIterations
	// ReasonTimeout: the wall-clock budget ran out.
	ReasonTimeout
)

func (r Reason) String() string {
	switch r {
	case ReasonIdle:
		return "idle"
	case ReasonOscillation:
		return "oscillation"
	case ReasonMaxIterations:
		return "max_iterations"
	case ReasonTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// IsLimit reports whether the loop was stopped by a configured limit rather
// than by the termination policy.
func (r Reason) IsLimit() bool {
	return r == ReasonMaxIterations || r == ReasonTimeout
}

// Decide applies the termination table to one iteration's flags and returns
// the new retry count and whether to stop.
//
//	explored committed  action
//	false    false      stop
//	false    true       retry++, stop if retry > threshold
//	true     false      retry++, stop if retry > threshold
//	true     true       retry = 0, continue
func Decide(explored, committed bool, retryCount, threshold int) (int, bool) {
	switch {
	case !explored && !committed:
		return retryCount, true
	case explored && committed:
		return 0, false
	default:
		retryCount++
		return retryCount, retryCount > threshold
	}
}

// stopReason maps a stopping Decide outcome to its Reason.
func stopReason(explored, committed bool) Reason {
	if !explored && !committed {
		return ReasonIdle
	}
	return ReasonOscillation
}
