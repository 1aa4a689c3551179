package supervisor

type state int

const (
	stateInit state = iota
	statePipesReady
	statePumpsStarted
	stateChildRunning
	stateChildExited
	stateShutdownSignaled
	statePumpsJoined
	stateDone
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "INIT"
	case statePipesReady:
		return "PIPES_READY"
	case statePumpsStarted:
		return "PUMPS_STARTED"
	case stateChildRunning:
		return "CHILD_RUNNING"
	case stateChildExited:
		return "CHILD_EXITED"
	case stateShutdownSignaled:
		return "SHUTDOWN_SIGNALED"
	case statePumpsJoined:
		return "PUMPS_JOINED"
	case stateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}
