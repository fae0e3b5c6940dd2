package scanner

// Outcome is the result of a reaction vote once its window closes.
type Outcome int

const (
	OutcomePassed Outcome = iota
	OutcomeFailed
)

// DecideOutcome compares the net ballot counts. A tie is a failed vote.
func DecideOutcome(yes, no int) Outcome {
	if yes > no {
		return OutcomePassed
	}
	return OutcomeFailed
}

// Target maps the outcome to the user who gets sentenced: the accused when
// the vote passed, the requester when their challenge failed.
func (o Outcome) Target(requesterID, subjectID string) string {
	if o == OutcomePassed {
		return subjectID
	}
	return requesterID
}
