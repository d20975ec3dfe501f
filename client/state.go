package client

// State 连接状态
type State int32

const (
	Disconnected State = iota
	Connecting
	BindPending
	Bound
	Closing
	Closed
)

var stateNames = [...]string{"Disconnected", "Connecting", "BindPending", "Bound", "Closing", "Closed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}
