package loader

import "sync/atomic"

// State is the loader mode.
type State int32

const (
	// Incremental serves ranges piecemeal and may fetch out of band.
	Incremental State = iota
	// Transitioning drains pending requests on the way to Complete.
	Transitioning
	// Complete serves every read from the buffer and never fetches.
	Complete
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Incremental:
		return "Incremental"
	case Transitioning:
		return "Transitioning"
	case Complete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// TransitionReason records why the loader left incremental mode.
type TransitionReason int32

const (
	ReasonNone TransitionReason = iota
	ReasonFinished
	ReasonSentinel
	ReasonFailed
	ReasonTornDown
)

// String returns the reason name.
func (r TransitionReason) String() string {
	switch r {
	case ReasonNone:
		return "None"
	case ReasonFinished:
		return "Finished"
	case ReasonSentinel:
		return "Sentinel"
	case ReasonFailed:
		return "Failed"
	case ReasonTornDown:
		return "TornDown"
	default:
		return "Unknown"
	}
}

// Err maps the reason to its error, or nil for a clean finish.
func (r TransitionReason) Err() error {
	switch r {
	case ReasonSentinel:
		return ErrSentinelDetected
	case ReasonFailed:
		return ErrStreamFailed
	case ReasonTornDown:
		return ErrTornDown
	default:
		return nil
	}
}

// ModeController tracks the one-way Incremental → Transitioning → Complete
// progression. Transitions happen on the run loop; State may be read from any
// goroutine.
type ModeController struct {
	state     atomic.Int32
	reason    atomic.Int32
	completed chan struct{}
}

// NewModeController returns a controller in Incremental mode.
func NewModeController() *ModeController {
	return &ModeController{completed: make(chan struct{})}
}

// State returns the current mode.
func (m *ModeController) State() State {
	return State(m.state.Load())
}

// Reason returns why the controller left Incremental, or ReasonNone.
func (m *ModeController) Reason() TransitionReason {
	return TransitionReason(m.reason.Load())
}

// IsIncremental reports whether no transition has started.
func (m *ModeController) IsIncremental() bool {
	return m.State() == Incremental
}

// IsComplete reports whether the controller reached Complete.
func (m *ModeController) IsComplete() bool {
	return m.State() == Complete
}

// Begin moves Incremental to Transitioning. It reports false, changing
// nothing, if a transition already began.
func (m *ModeController) Begin(reason TransitionReason) bool {
	if !m.state.CompareAndSwap(int32(Incremental), int32(Transitioning)) {
		return false
	}
	m.reason.Store(int32(reason))
	return true
}

// Finish moves Transitioning to Complete. It reports false when not
// transitioning.
func (m *ModeController) Finish() bool {
	if !m.state.CompareAndSwap(int32(Transitioning), int32(Complete)) {
		return false
	}
	close(m.completed)
	return true
}

// Completed is closed when the controller reaches Complete.
func (m *ModeController) Completed() <-chan struct{} {
	return m.completed
}
