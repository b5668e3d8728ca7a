package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateTransitions(t *testing.T) {
	legal := []struct{ from, to State }{
		{StatePending, StateStored},
		{StateStored, StateBillingConfirmed},
		{StateStored, StateBillingFailed},
		{StateBillingConfirmed, StateEventPublished},
		{StateBillingConfirmed, StateEventFailed},
		{StateBillingFailed, StateEventPublished},
		{StateBillingFailed, StateEventFailed},
		{StateBillingFailed, StateCompensated},
	}
	for _, tc := range legal {
		assert.True(t, tc.from.CanTransition(tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	illegal := []struct{ from, to State }{
		{StatePending, StateBillingConfirmed},
		{StatePending, StateEventPublished},
		{StateStored, StateEventPublished},
		{StateStored, StateCompensated},
		{StateBillingConfirmed, StateCompensated},
		{StateEventPublished, StateStored},
		{StateEventFailed, StateEventPublished},
		{StateCompensated, StateStored},
	}
	for _, tc := range illegal {
		assert.False(t, tc.from.CanTransition(tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}
