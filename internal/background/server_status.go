package background

import "sync"

type serverState int

const (
	stateStopped serverState = iota
	stateStarting
	stateStarted
	stateStopping
)

func (st serverState) String() string {
	switch st {
	case stateStarting:
		return "正在启动"
	case stateStarted:
		return "已启动"
	case stateStopping:
		return "正在停止"
	default:
		return "已停止"
	}
}

// backgroundServerStatus guards the lifecycle of a background server.
type backgroundServerStatus struct {
	mu    sync.Mutex
	state serverState
}

func newBackgroundServerStatus() *backgroundServerStatus {
	return &backgroundServerStatus{state: stateStopped}
}

// transit moves from `from` to `to`. It reports the current state and false if the server is not in `from`.
func (s *backgroundServerStatus) transit(from, to serverState) (serverState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != from {
		return s.state, false
	}
	s.state = to
	return to, true
}

func (s *backgroundServerStatus) current() serverState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
