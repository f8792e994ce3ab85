// Package generation tracks asynchronous video generation jobs from
// submission to terminal state. Task records are ephemeral session state;
// nothing here is persisted.
package generation

// State is the lifecycle position of one tracked task.
type State string

const (
	// StatePending means a task id was obtained but no status observed yet.
	StatePending State = "pending"
	// StateInProgress means the provider reported any non-terminal status.
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether no further transitions can occur from s.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Task is the tracked view of one in-flight job. It is mutated only by the
// poller that owns it; callers receive copies.
type Task struct {
	ID             string
	State          State
	ProviderStatus string // provider's status string, shown verbatim
	VideoURL       string
	Reason         string // failure detail when State == StateFailed
}
