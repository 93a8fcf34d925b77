package registry

// State is the lifecycle state of a tracked node.
//
// Transitions only move forward: Open -> Closing -> Closed.
type State int

const (
	// Open nodes hold their data and graph links.
	Open State = iota
	// Closing is set while a node releases its predecessor references.
	Closing
	// Closed nodes have released their data. Terminal.
	Closed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "State(?)"
	}
}
