package workflow

// Trigger represents an action that moves a trip between workflow steps
type Trigger string

const (
	TriggerAdvance Trigger = "ADVANCE"
	TriggerRetreat Trigger = "RETREAT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
