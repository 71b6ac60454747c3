package orchestrator

// Phase is the batch lifecycle state of the server.
type Phase int

const (
	// PhaseIdle indicates no batch is in flight. Counters are zero and a
	// start command is accepted.
	PhaseIdle Phase = iota

	// PhaseRunning indicates a batch is executing on the worker pool.
	PhaseRunning

	// PhaseStopping indicates a stop was requested and the batch is
	// draining its already-started tasks.
	PhaseStopping
)

// NOTE: This slice needs to be kept in sync with any changes to the Phase
// values. The strings are part of the wire protocol (status.state).
var phases = []string{
	"idle",
	"running",
	"stopping",
}

// String returns the wire representation of the Phase.
func (p Phase) String() string {
	if int(p) < 0 || int(p) >= len(phases) {
		return phases[PhaseIdle]
	}

	return phases[p]
}
