package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_AdvancesRank(t *testing.T) {
	assert.True(t, CanTransition(MessageSending, MessageSent))
	assert.True(t, CanTransition(MessageSent, MessageDelivered))
	assert.True(t, CanTransition(MessageSent, MessageRead))
	assert.True(t, CanTransition(MessageDelivered, MessageRead))
}

func TestCanTransition_RejectsStaleEvents(t *testing.T) {
	// A late "delivered" after "read" must not regress the message.
	assert.False(t, CanTransition(MessageRead, MessageDelivered))
	assert.False(t, CanTransition(MessageDelivered, MessageSent))
	assert.False(t, CanTransition(MessageSent, MessageSent))
}

func TestCanTransition_FailedIsTerminal(t *testing.T) {
	assert.True(t, CanTransition(MessageSending, MessageFailed))
	assert.True(t, CanTransition(MessageRead, MessageFailed))

	assert.False(t, CanTransition(MessageFailed, MessageSent))
	assert.False(t, CanTransition(MessageFailed, MessageRead))
	assert.False(t, CanTransition(MessageFailed, MessageFailed))
}

func TestCanTransition_UnknownStates(t *testing.T) {
	assert.False(t, CanTransition(MessageSent, MessageStatus("played")))
	assert.False(t, CanTransition(MessageStatus("weird"), MessageRead))
}

func TestIsKnownStatus(t *testing.T) {
	for _, s := range []string{"sending", "sent", "delivered", "read", "failed"} {
		assert.True(t, IsKnownStatus(s), s)
	}
	assert.False(t, IsKnownStatus("played"))
	assert.False(t, IsKnownStatus(""))
}
