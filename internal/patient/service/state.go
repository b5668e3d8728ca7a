package service

// State tracks where a single onboarding operation is in its saga. It lives
// for the duration of the operation; durable progress is carried by the
// patient row's billing status and the outbox.
type State string

const (
	StatePending          State = "PENDING"
	StateStored           State = "STORED"
	StateBillingConfirmed State = "BILLING_CONFIRMED"
	StateBillingFailed    State = "BILLING_FAILED"
	StateEventPublished   State = "EVENT_PUBLISHED"
	StateEventFailed      State = "EVENT_FAILED"
	StateCompensated      State = "COMPENSATED"
)

// validTransitions encodes the saga's state machine. COMPENSATED stays
// reachable from BILLING_FAILED even though the default policy defers
// re-provisioning instead of rolling back; a strict-consistency deployment
// flips one switch without touching the machine.
var validTransitions = map[State][]State{
	StatePending:          {StateStored},
	StateStored:           {StateBillingConfirmed, StateBillingFailed},
	StateBillingConfirmed: {StateEventPublished, StateEventFailed},
	StateBillingFailed:    {StateEventPublished, StateEventFailed, StateCompensated},
}

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	for _, candidate := range validTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}
