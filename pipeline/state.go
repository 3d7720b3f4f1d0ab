package pipeline

// State is the lifecycle state of a Driver. Transitions only move forward.
type State int32

const (
	// Idle is a constructed driver that has not warmed the model up.
	Idle State = iota
	// WarmedUp means the untimed warm-up invocation succeeded.
	WarmedUp
	// Running means the tick loop is active.
	Running
	// Stopped is terminal; the frame source and session have been released.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case WarmedUp:
		return "warmed_up"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
