package model

import "errors"

// Errors surfaced to command callers.
var (
	ErrInvalidDuration  = errors.New("sentence duration must not be negative")
	ErrAlreadyVoted     = errors.New("voter has already voted on this message")
	ErrNoSuchVote       = errors.New("no vote tally exists for this message")
	ErrNotFound         = errors.New("record not found")
	ErrAlreadyReleasing = errors.New("sentence is already being released")
	ErrRateLimited      = errors.New("vote request limit reached, try again later")
	ErrStoreUnavailable = errors.New("store unavailable")
)
