package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideOutcome(t *testing.T) {
	assert.Equal(t, OutcomePassed, DecideOutcome(5, 2))
	assert.Equal(t, OutcomeFailed, DecideOutcome(2, 5))
	assert.Equal(t, OutcomeFailed, DecideOutcome(3, 3), "a tie never convicts")
	assert.Equal(t, OutcomeFailed, DecideOutcome(0, 0))
}

func TestOutcomeTarget(t *testing.T) {
	assert.Equal(t, "subject", OutcomePassed.Target("requester", "subject"))
	assert.Equal(t, "requester", OutcomeFailed.Target("requester", "subject"))
}
